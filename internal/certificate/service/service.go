// Package service is the certificate ledger client: per-owner append-only
// certificate lists held by the Certificates contract.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	"credledger/internal/certificate/metrics"
	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

const defaultListConcurrency = 8

type Service struct {
	certificates    *ledger.Binding
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

// WithListConcurrency bounds the concurrent reads made by ListCertificates.
func WithListConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listConcurrency = n
		}
	}
}

func New(certificates *ledger.Binding, opts ...Option) *Service {
	s := &Service{
		certificates:    certificates,
		logger:          slog.Default(),
		listConcurrency: defaultListConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Address() domain.Address { return s.certificates.Address() }

// AddCertificate appends hash to owner's list, issued by issuer. An issuer
// that is not Active is rejected by the ledger with CodeIssuerNotActive.
func (s *Service) AddCertificate(ctx context.Context, owner domain.Address, hash domain.Hash, issuer domain.Address) (*ledger.Receipt, error) {
	receipt, err := s.certificates.Submit(ctx, issuer, protocol.MethodAddCertificate, owner, hash)
	if err != nil {
		return nil, err
	}
	var index uint64
	if err := receipt.DecodeResult(&index); err != nil {
		s.logger.WarnContext(ctx, "certificate index missing from receipt", "error", err, "tx_hash", receipt.TxHash.String())
	}
	s.logger.InfoContext(ctx, "certificate added",
		"owner", owner.String(),
		"hash", hash.String(),
		"issuer", issuer.String(),
		"index", index,
		"tx_hash", receipt.TxHash.String(),
	)
	s.emit(ctx, audit.ActionCertificateAdded, issuer, owner, receipt, "")
	return receipt, nil
}

// RevokeCertificate resolves hash to its index, then revokes by index. The
// two phases are separate ledger round trips. When the second phase is
// rejected with NotFound or Unauthorized and the record at index no longer
// holds hash, the rejection comes back as a *models.RevokeRaceError; any other
// rejection is returned as is. Revoking an already revoked certificate
// succeeds without changing counts.
func (s *Service) RevokeCertificate(ctx context.Context, owner domain.Address, hash domain.Hash, issuer domain.Address) (*ledger.Receipt, error) {
	index, err := s.GetCertificateIndex(ctx, owner, hash)
	if err != nil {
		return nil, err
	}

	receipt, err := s.certificates.Submit(ctx, issuer, protocol.MethodRevokeCertificate, owner, index)
	if err != nil {
		code := dErrors.CodeOf(err)
		if code != dErrors.CodeNotFound && code != dErrors.CodeUnauthorized {
			return nil, err
		}
		if !s.indexMoved(ctx, owner, hash, index) {
			return nil, err
		}
		metrics.IncRevokeRace(string(code))
		s.logger.WarnContext(ctx, "certificate revoke lost a race",
			"owner", owner.String(),
			"hash", hash.String(),
			"index", index,
			"issuer", issuer.String(),
			"code", string(code),
		)
		s.emit(ctx, audit.ActionRevokeRaceDetected, issuer, owner, nil, err.Error())
		return nil, &models.RevokeRaceError{Owner: owner, Hash: hash, Index: index, Err: err}
	}

	var changed bool
	if err := receipt.DecodeResult(&changed); err != nil {
		s.logger.WarnContext(ctx, "revoke outcome missing from receipt", "error", err, "tx_hash", receipt.TxHash.String())
	}
	if changed {
		s.emit(ctx, audit.ActionCertificateRevoked, issuer, owner, receipt, "")
	}
	return receipt, nil
}

// indexMoved re-reads index and reports whether it stopped holding hash
// between the two revoke phases.
func (s *Service) indexMoved(ctx context.Context, owner domain.Address, hash domain.Hash, index uint64) bool {
	cert, err := s.GetCertificateAt(ctx, owner, index)
	if err != nil {
		return true
	}
	return !hexcodec.Equal(cert.Hash.String(), hash.String())
}

// GetCertificateIndex returns the first index holding hash in owner's list.
func (s *Service) GetCertificateIndex(ctx context.Context, owner domain.Address, hash domain.Hash) (uint64, error) {
	var index uint64
	if err := s.certificates.Call(ctx, protocol.MethodGetCertificateIndex, &index, owner, hash); err != nil {
		return 0, err
	}
	return index, nil
}

func (s *Service) GetCertificateCount(ctx context.Context, owner domain.Address, includeRevoked bool) (uint64, error) {
	var n uint64
	if err := s.certificates.Call(ctx, protocol.MethodGetCertificateCount, &n, owner, includeRevoked); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) GetCertificateMetadata(ctx context.Context, owner domain.Address, hash domain.Hash) (models.Metadata, error) {
	var meta protocol.CertificateMetadata
	if err := s.certificates.Call(ctx, protocol.MethodGetCertificateMetadata, &meta, owner, hash); err != nil {
		return models.Metadata{}, err
	}
	return models.Metadata{Issuer: domain.Address(meta.Issuer), Revoked: meta.Revoked}, nil
}

// GetCertificateAt fails with CodeIndexOutOfRange past the end of the list.
func (s *Service) GetCertificateAt(ctx context.Context, owner domain.Address, index uint64) (models.Certificate, error) {
	var entry protocol.CertificateEntry
	if err := s.certificates.Call(ctx, protocol.MethodGetCertificateAt, &entry, owner, index); err != nil {
		return models.Certificate{}, err
	}
	return models.Certificate{
		Owner:   owner,
		Hash:    domain.Hash(entry.Hash),
		Issuer:  domain.Address(entry.Issuer),
		Revoked: entry.Revoked,
		Index:   index,
	}, nil
}

// ListCertificates returns owner's full list, revoked entries included, in
// index order.
func (s *Service) ListCertificates(ctx context.Context, owner domain.Address) ([]models.Certificate, error) {
	total, err := s.GetCertificateCount(ctx, owner, true)
	if err != nil {
		return nil, err
	}
	certs := make([]models.Certificate, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.listConcurrency)
	for i := range total {
		g.Go(func() error {
			cert, err := s.GetCertificateAt(gctx, owner, i)
			if err != nil {
				return fmt.Errorf("list certificates of %s: %w", owner, err)
			}
			certs[i] = cert
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return certs, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor, subject domain.Address, receipt *ledger.Receipt, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:   action,
		Actor:    actor.String(),
		Subject:  subject.String(),
		Contract: protocol.Certificates,
		Reason:   reason,
	}
	if receipt != nil {
		event.TxHash = receipt.TxHash.String()
	}
	_ = s.auditor.Emit(ctx, event)
}
