// Package service wraps the fungible token that funds escrowed verification
// requests.
package service

import (
	"context"
	"log/slog"
	"strconv"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

type Service struct {
	token   *ledger.Binding
	auditor *audit.Publisher
	logger  *slog.Logger
}

type Option func(*Service)

func WithAuditor(auditor *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(token *ledger.Binding, opts ...Option) *Service {
	s := &Service{token: token, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Address() domain.Address { return s.token.Address() }

func (s *Service) BalanceOf(ctx context.Context, owner domain.Address) (uint64, error) {
	var balance uint64
	if err := s.token.Call(ctx, protocol.MethodBalanceOf, &balance, owner); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Service) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	if err := s.token.Call(ctx, protocol.MethodTotalSupply, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

func (s *Service) Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error) {
	var allowed uint64
	if err := s.token.Call(ctx, protocol.MethodAllowance, &allowed, owner, spender); err != nil {
		return 0, err
	}
	return allowed, nil
}

// Transfer fails with CodeInsufficientBalance when from holds less than amount.
func (s *Service) Transfer(ctx context.Context, from, to domain.Address, amount uint64) (*ledger.Receipt, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	receipt, err := s.token.Submit(ctx, from, protocol.MethodTransfer, to, amount)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionTokensTransferred, from, to, amount, receipt)
	return receipt, nil
}

// Approve replaces spender's allowance on owner's balance.
func (s *Service) Approve(ctx context.Context, owner, spender domain.Address, amount uint64) (*ledger.Receipt, error) {
	receipt, err := s.token.Submit(ctx, owner, protocol.MethodApprove, spender, amount)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionTokensApproved, owner, spender, amount, receipt)
	return receipt, nil
}

// TransferFrom moves amount from from to to on spender's allowance.
func (s *Service) TransferFrom(ctx context.Context, from, to domain.Address, amount uint64, spender domain.Address) (*ledger.Receipt, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	receipt, err := s.token.Submit(ctx, spender, protocol.MethodTransferFrom, from, to, amount)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionTokensTransferred, spender, to, amount, receipt)
	return receipt, nil
}

func requirePositive(amount uint64) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor, subject domain.Address, amount uint64, receipt *ledger.Receipt) {
	s.logger.InfoContext(ctx, "token ledger updated",
		"action", string(action),
		"actor", actor.String(),
		"subject", subject.String(),
		"amount", amount,
		"tx_hash", receipt.TxHash.String(),
	)
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    actor.String(),
		Subject:  subject.String(),
		Contract: protocol.PathToken,
		TxHash:   receipt.TxHash.String(),
		Reason:   "amount=" + strconv.FormatUint(amount, 10),
	})
}
