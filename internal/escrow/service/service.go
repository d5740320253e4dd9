// Package service is the escrow ledger client: seeker deposits, paid
// verification requests and their settlement.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ipfs/go-cid"
	"golang.org/x/sync/errgroup"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	"credledger/internal/escrow/metrics"
	"credledger/internal/escrow/models"
	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=../mocks/mocks.go -package=mocks AllowanceReader

// AllowanceReader reads token allowances. The escrow contract is the spender
// on every deposit.
type AllowanceReader interface {
	Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error)
}

const defaultListConcurrency = 8

type Service struct {
	escrow          *ledger.Binding
	allowances      AllowanceReader
	auditor         *audit.Publisher
	logger          *slog.Logger
	listConcurrency int
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

func WithListConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listConcurrency = n
		}
	}
}

func New(escrow *ledger.Binding, allowances AllowanceReader, opts ...Option) *Service {
	s := &Service{
		escrow:          escrow,
		allowances:      allowances,
		logger:          slog.Default(),
		listConcurrency: defaultListConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address is the escrow contract address, the spender seekers must approve.
func (s *Service) Address() domain.Address { return s.escrow.Address() }

// IncreaseAvailableBalance deposits amount from seeker's token balance. The
// seeker's allowance to the escrow contract is checked before submitting.
func (s *Service) IncreaseAvailableBalance(ctx context.Context, seeker domain.Address, amount uint64) (*ledger.Receipt, error) {
	if amount == 0 {
		return nil, s.reject(dErrors.New(dErrors.CodeInvalidInput, "deposit amount must be positive"))
	}
	allowed, err := s.allowances.Allowance(ctx, seeker, s.Address())
	if err != nil {
		return nil, err
	}
	if allowed < amount {
		return nil, s.reject(dErrors.New(dErrors.CodeInsufficientAllowance,
			fmt.Sprintf("allowance of %s for escrow %s is %d, need %d", seeker, s.Address(), allowed, amount)))
	}

	receipt, err := s.escrow.Submit(ctx, seeker, protocol.MethodIncreaseAvailableBalance, amount)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionEscrowDeposited, seeker, seeker, receipt, "amount="+strconv.FormatUint(amount, 10))
	return receipt, nil
}

// RefundAvailableBalance withdraws the seeker's whole available balance and
// returns the amount. Nothing available is a successful no-op.
func (s *Service) RefundAvailableBalance(ctx context.Context, seeker domain.Address) (uint64, *ledger.Receipt, error) {
	receipt, err := s.escrow.Submit(ctx, seeker, protocol.MethodRefundAvailableBalance)
	if err != nil {
		return 0, nil, err
	}
	var refunded uint64
	if err := receipt.DecodeResult(&refunded); err != nil {
		return 0, receipt, dErrors.Wrap(err, dErrors.CodeInternal, "decode refunded amount")
	}
	if refunded > 0 {
		s.emit(ctx, audit.ActionEscrowRefunded, seeker, seeker, receipt, "amount="+strconv.FormatUint(refunded, 10))
	}
	return refunded, receipt, nil
}

func (s *Service) GetAvailableBalance(ctx context.Context, seeker domain.Address) (uint64, error) {
	var n uint64
	if err := s.escrow.Call(ctx, protocol.MethodSeekerAvailableBalance, &n, seeker); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) GetInflightBalance(ctx context.Context, seeker domain.Address) (uint64, error) {
	var n uint64
	if err := s.escrow.Call(ctx, protocol.MethodSeekerInflightBalance, &n, seeker); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) Balances(ctx context.Context, seeker domain.Address) (models.Balances, error) {
	available, err := s.GetAvailableBalance(ctx, seeker)
	if err != nil {
		return models.Balances{}, err
	}
	inflight, err := s.GetInflightBalance(ctx, seeker)
	if err != nil {
		return models.Balances{}, err
	}
	return models.Balances{Seeker: seeker, Available: available, Inflight: inflight}, nil
}

func (s *Service) RequestCost(ctx context.Context) (uint64, error) {
	var cost uint64
	if err := s.escrow.Call(ctx, protocol.MethodRequestCost, &cost); err != nil {
		return 0, err
	}
	return cost, nil
}

// SubmitRequest opens a request against user's certificate hash, moving the
// request cost from available to in flight. It is never retried: a timeout
// leaves the outcome unknown to the caller.
func (s *Service) SubmitRequest(ctx context.Context, seeker, user domain.Address, hash domain.Hash) (*models.VerificationRequest, *ledger.Receipt, error) {
	req, receipt, err := s.submit(ctx, seeker, protocol.MethodSubmitRequest, user, hash)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "verification request submitted",
		"request_id", req.ID.String(),
		"seeker", seeker.String(),
		"user", user.String(),
		"cost", req.Cost,
		"tx_hash", receipt.TxHash.String(),
	)
	s.emit(ctx, audit.ActionRequestSubmitted, seeker, user, receipt, "request="+req.ID.String())
	return req, receipt, nil
}

// ApproveRequest attaches the content locator of the user's certificate.
func (s *Service) ApproveRequest(ctx context.Context, user domain.Address, id domain.RequestID, locator string) (*models.VerificationRequest, *ledger.Receipt, error) {
	if _, err := cid.Decode(locator); err != nil {
		return nil, nil, s.reject(dErrors.Wrap(err, dErrors.CodeInvalidInput,
			fmt.Sprintf("locator %q is not a content identifier", locator)))
	}
	if err := s.precheck(ctx, id, user, models.RequestUserCompleted); err != nil {
		return nil, nil, err
	}
	req, receipt, err := s.submit(ctx, user, protocol.MethodUserCompleteRequest, uint64(id), locator)
	if err != nil {
		return nil, nil, err
	}
	s.emit(ctx, audit.ActionRequestApproved, user, req.Seeker, receipt, "request="+id.String())
	return req, receipt, nil
}

// DenyRequest refuses the request and releases its cost to the seeker's
// available balance.
func (s *Service) DenyRequest(ctx context.Context, user domain.Address, id domain.RequestID) (*models.VerificationRequest, *ledger.Receipt, error) {
	if err := s.precheck(ctx, id, user, models.RequestUserDenied); err != nil {
		return nil, nil, err
	}
	req, receipt, err := s.submit(ctx, user, protocol.MethodUserDenyRequest, uint64(id))
	if err != nil {
		return nil, nil, err
	}
	s.emit(ctx, audit.ActionRequestDenied, user, req.Seeker, receipt, "request="+id.String())
	return req, receipt, nil
}

// CancelRequest withdraws a request the user has not acted on yet.
func (s *Service) CancelRequest(ctx context.Context, seeker domain.Address, id domain.RequestID) (*models.VerificationRequest, *ledger.Receipt, error) {
	if err := s.precheck(ctx, id, seeker, models.RequestSeekerCancelled); err != nil {
		return nil, nil, err
	}
	req, receipt, err := s.submit(ctx, seeker, protocol.MethodSeekerCancelRequest, uint64(id))
	if err != nil {
		return nil, nil, err
	}
	s.emit(ctx, audit.ActionRequestCancelled, seeker, seeker, receipt, "request="+id.String())
	return req, receipt, nil
}

// CompleteRequest settles an approved request with the hash of the document
// the seeker retrieved. A match pays the cost to the user; a mismatch ends in
// RequestSeekerFailed with the cost left in flight.
func (s *Service) CompleteRequest(ctx context.Context, seeker domain.Address, id domain.RequestID, retrieved string) (*models.VerificationRequest, *ledger.Receipt, error) {
	if err := s.precheck(ctx, id, seeker, models.RequestSeekerCompleted); err != nil {
		return nil, nil, err
	}
	req, receipt, err := s.submit(ctx, seeker, protocol.MethodSeekerCompleteRequest, uint64(id), retrieved)
	if err != nil {
		return nil, nil, err
	}
	action := audit.ActionRequestCompleted
	if req.Status == models.RequestSeekerFailed {
		action = audit.ActionRequestFailed
		s.logger.WarnContext(ctx, "retrieved certificate does not match registered hash",
			"request_id", id.String(),
			"seeker", seeker.String(),
		)
	}
	s.emit(ctx, action, seeker, req.User, receipt, "request="+id.String())
	return req, receipt, nil
}

// GetRequest fails with CodeNotFound for ids never assigned.
func (s *Service) GetRequest(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	var r protocol.Request
	if err := s.escrow.Call(ctx, protocol.MethodGetRequest, &r, uint64(id)); err != nil {
		return nil, err
	}
	return models.FromProtocol(r), nil
}

// ListRequestsBySeeker returns the seeker's requests in submission order.
func (s *Service) ListRequestsBySeeker(ctx context.Context, seeker domain.Address) ([]*models.VerificationRequest, error) {
	var ids []uint64
	if err := s.escrow.Call(ctx, protocol.MethodGetSeekerRequests, &ids, seeker); err != nil {
		return nil, err
	}
	out := make([]*models.VerificationRequest, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.listConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			req, err := s.GetRequest(gctx, domain.RequestID(id))
			if err != nil {
				return err
			}
			out[i] = req
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// precheck rejects transitions the ledger would revert, without submitting.
func (s *Service) precheck(ctx context.Context, id domain.RequestID, caller domain.Address, to models.RequestStatus) error {
	if id.IsNil() {
		return s.reject(dErrors.New(dErrors.CodeNotFound, "no request 0"))
	}
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	party := req.User
	if to == models.RequestSeekerCancelled || to == models.RequestSeekerCompleted {
		party = req.Seeker
	}
	if !party.Equal(caller) {
		return s.reject(dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("address %s may not move request %s to %s", caller, id, to)))
	}
	if !models.CanTransition(req.Status, to) {
		return s.reject(dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("request %s is %s and cannot become %s", id, req.Status, to)))
	}
	return nil
}

func (s *Service) submit(ctx context.Context, from domain.Address, method string, args ...any) (*models.VerificationRequest, *ledger.Receipt, error) {
	receipt, err := s.escrow.Submit(ctx, from, method, args...)
	if err != nil {
		return nil, nil, err
	}
	var r protocol.Request
	if err := receipt.DecodeResult(&r); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode request from "+method+" receipt")
	}
	req := models.FromProtocol(r)
	metrics.IncTransition(req.Status.String())
	return req, receipt, nil
}

func (s *Service) reject(err error) error {
	metrics.IncPrecheckRejection(string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor, subject domain.Address, receipt *ledger.Receipt, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    actor.String(),
		Subject:  subject.String(),
		Contract: protocol.Escrow,
		TxHash:   receipt.TxHash.String(),
		Reason:   reason,
	})
}
