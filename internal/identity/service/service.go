// Package service is the identity directory: one write-once public key per
// account, held by the PublicKeys contract and fronted by a read-through cache.
package service

import (
	"context"
	"errors"
	"log/slog"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	"credledger/internal/identity/models"
	"credledger/internal/ledger"
	"credledger/internal/sentinel"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

//go:generate mockgen -source=service.go -destination=../mocks/mocks.go -package=mocks Cache

// Cache holds registered keys. Get returns sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, identity domain.Address) (domain.PublicKey, error)
	Set(ctx context.Context, identity domain.Address, key domain.PublicKey) error
}

type Service struct {
	directory *ledger.Binding
	cache     Cache
	auditor   *audit.Publisher
	logger    *slog.Logger
}

type Option func(*Service)

// WithCache enables read-through caching of registered keys.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

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

func New(directory *ledger.Binding, opts ...Option) *Service {
	s := &Service{
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Address() domain.Address { return s.directory.Address() }

// Register stores key for identity. A second registration fails with
// CodeAlreadyRegistered; the ledger enforces it.
func (s *Service) Register(ctx context.Context, identity domain.Address, key domain.PublicKey) (*ledger.Receipt, error) {
	canonical, err := domain.ParsePublicKey(key.String())
	if err != nil {
		return nil, err
	}
	receipt, err := s.directory.Submit(ctx, identity, protocol.MethodAddPublicKey, canonical)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, identity, canonical)

	s.logger.InfoContext(ctx, "public key registered",
		"identity", identity.String(),
		"tx_hash", receipt.TxHash.String(),
	)
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Action:   audit.ActionPubKeyRegistered,
			Actor:    identity.String(),
			Subject:  identity.String(),
			Contract: protocol.PublicKeys,
			TxHash:   receipt.TxHash.String(),
		})
	}
	return receipt, nil
}

// Lookup returns the key on file, or domain.UnsetPublicKey when there is none.
func (s *Service) Lookup(ctx context.Context, identity domain.Address) (models.Registration, error) {
	if s.cache != nil {
		key, err := s.cache.Get(ctx, identity)
		switch {
		case err == nil:
			return models.Registration{Identity: identity, PublicKey: key}, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "public key cache read failed", "error", err, "identity", identity.String())
		}
	}

	var raw string
	if err := s.directory.Call(ctx, protocol.MethodPublicKeyStore, &raw, identity); err != nil {
		return models.Registration{}, err
	}
	canonical, err := hexcodec.Canonical(raw)
	if err != nil {
		return models.Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "directory returned malformed key")
	}
	reg := models.Registration{Identity: identity, PublicKey: domain.PublicKey(canonical)}
	if reg.Registered() {
		s.remember(ctx, identity, reg.PublicKey)
	}
	return reg, nil
}

// remember never caches the unset sentinel: a later registration would
// otherwise be hidden.
func (s *Service) remember(ctx context.Context, identity domain.Address, key domain.PublicKey) {
	if s.cache == nil || key.IsUnset() {
		return
	}
	if err := s.cache.Set(ctx, identity, key); err != nil {
		s.logger.WarnContext(ctx, "public key cache write failed", "error", err, "identity", identity.String())
	}
}

// WarmFromReceipt caches keys registered in receipt. It consumes receipts
// replayed from the chain event stream, so keys registered through another
// gateway are served from cache on first lookup here.
func (s *Service) WarmFromReceipt(ctx context.Context, receipt *ledger.Receipt) error {
	if s.cache == nil {
		return nil
	}
	for _, ev := range receipt.Events {
		if ev.Name != protocol.EventPublicKeyAdded || !ev.Contract.Equal(s.Address()) {
			continue
		}
		owner, err := domain.ParseAddress(ev.Attributes["owner"])
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed key event", "error", err, "tx_hash", receipt.TxHash.String())
			continue
		}
		if _, err := s.Lookup(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}
