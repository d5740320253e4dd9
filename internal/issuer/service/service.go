package service

import (
	"context"
	"log/slog"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	"credledger/internal/authz"
	"credledger/internal/issuer/models"
	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

// Service manages the issuer registry. Mutations are pre-checked against the
// registry's owner and deputy so a doomed transaction is never submitted.
type Service struct {
	registry *ledger.Binding
	guard    *authz.Guard
	auditor  *audit.Publisher
	logger   *slog.Logger
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

func New(registry *ledger.Binding, guard *authz.Guard, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		guard:    guard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address is the registry contract address.
func (s *Service) Address() domain.Address { return s.registry.Address() }

func (s *Service) Owner(ctx context.Context) (domain.Address, error) {
	var owner domain.Address
	if err := s.registry.Call(ctx, protocol.MethodOwner, &owner); err != nil {
		return "", err
	}
	return owner, nil
}

// Deputy returns "" when no deputy is set.
func (s *Service) Deputy(ctx context.Context) (domain.Address, error) {
	var deputy domain.Address
	if err := s.registry.Call(ctx, protocol.MethodDeputy, &deputy); err != nil {
		return "", err
	}
	return deputy, nil
}

// AddIssuer marks issuer Active. Re-adding an active issuer is a no-op.
func (s *Service) AddIssuer(ctx context.Context, issuer, caller domain.Address) (*ledger.Receipt, error) {
	if err := s.guard.RequireOwnerOrDeputy(ctx, s, caller, "add an issuer", protocol.Issuers); err != nil {
		return nil, err
	}
	receipt, err := s.registry.Submit(ctx, caller, protocol.MethodAddIssuer, issuer)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionIssuerAdded, protocol.EventIssuerStatusChanged, caller, issuer, receipt)
	return receipt, nil
}

// RemoveIssuer marks issuer Inactive, including issuers never added.
func (s *Service) RemoveIssuer(ctx context.Context, issuer, caller domain.Address) (*ledger.Receipt, error) {
	if err := s.guard.RequireOwnerOrDeputy(ctx, s, caller, "remove an issuer", protocol.Issuers); err != nil {
		return nil, err
	}
	receipt, err := s.registry.Submit(ctx, caller, protocol.MethodRemoveIssuer, issuer)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionIssuerRemoved, protocol.EventIssuerStatusChanged, caller, issuer, receipt)
	return receipt, nil
}

func (s *Service) StatusOf(ctx context.Context, issuer domain.Address) (models.IssuerStatus, error) {
	var status models.IssuerStatus
	if err := s.registry.Call(ctx, protocol.MethodGetIssuerStatus, &status, issuer); err != nil {
		return models.IssuerNone, err
	}
	if !status.IsValid() {
		return models.IssuerNone, dErrors.New(dErrors.CodeInternal, "registry returned unknown issuer status "+status.String())
	}
	return status, nil
}

// SetDeputy is restricted to the owner.
func (s *Service) SetDeputy(ctx context.Context, deputy, caller domain.Address) (*ledger.Receipt, error) {
	if err := s.guard.RequireOwner(ctx, s, caller, "set the deputy", protocol.Issuers); err != nil {
		return nil, err
	}
	receipt, err := s.registry.Submit(ctx, caller, protocol.MethodSetDeputy, deputy)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionDeputyChanged, protocol.EventDeputyChanged, caller, deputy, receipt)
	return receipt, nil
}

// emit records action only when the transaction emitted event; idempotent
// re-adds and re-removes change nothing on the ledger.
func (s *Service) emit(ctx context.Context, action audit.Action, event string, actor, subject domain.Address, receipt *ledger.Receipt) {
	if !receipt.HasEvent(event) {
		s.logger.DebugContext(ctx, "issuer registry unchanged",
			"action", string(action),
			"subject", subject.String(),
			"tx_hash", receipt.TxHash.String(),
		)
		return
	}
	s.logger.InfoContext(ctx, "issuer registry updated",
		"action", string(action),
		"caller", actor.String(),
		"subject", subject.String(),
		"tx_hash", receipt.TxHash.String(),
	)
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    actor.String(),
		Subject:  subject.String(),
		Contract: protocol.Issuers,
		TxHash:   receipt.TxHash.String(),
	})
}
