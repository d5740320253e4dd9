package httptransport

import (
	"log/slog"

	"credledger/contracts/protocol"
	"credledger/internal/audit"
	audithandler "credledger/internal/audit/handler"
	"credledger/internal/authz"
	certhandler "credledger/internal/certificate/handler"
	certsvc "credledger/internal/certificate/service"
	escrowhandler "credledger/internal/escrow/handler"
	escrowsvc "credledger/internal/escrow/service"
	identityhandler "credledger/internal/identity/handler"
	identitysvc "credledger/internal/identity/service"
	issuerhandler "credledger/internal/issuer/handler"
	issuersvc "credledger/internal/issuer/service"
	"credledger/internal/ledger"
	"credledger/internal/ledger/devnet"
	"credledger/internal/ledger/tracer"
	tokenhandler "credledger/internal/token/handler"
	tokensvc "credledger/internal/token/service"
	"credledger/pkg/domain"
)

// Deps are what the domain services are built from.
type Deps struct {
	Ledger    ledger.Client
	Contracts devnet.Addresses
	Logger    *slog.Logger
	Tracer    tracer.Tracer
	// Auditor is optional.
	Auditor *audit.Publisher
	// PubKeyCache is optional.
	PubKeyCache identitysvc.Cache
}

// Services is one instance of every domain service, each bound to its
// contract.
type Services struct {
	Identity     *identitysvc.Service
	Issuers      *issuersvc.Service
	Certificates *certsvc.Service
	Tokens       *tokensvc.Service
	Escrow       *escrowsvc.Service
	// Audit is nil when Deps.Auditor was.
	Audit *audit.Publisher
}

func NewServices(d Deps) *Services {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bind := func(address domain.Address, contract string) *ledger.Binding {
		opts := []ledger.BindingOption{ledger.WithLogger(logger)}
		if d.Tracer != nil {
			opts = append(opts, ledger.WithTracer(d.Tracer))
		}
		return ledger.NewBinding(d.Ledger, address, contract, opts...)
	}

	identityOpts := []identitysvc.Option{identitysvc.WithLogger(logger), identitysvc.WithAuditor(d.Auditor)}
	if d.PubKeyCache != nil {
		identityOpts = append(identityOpts, identitysvc.WithCache(d.PubKeyCache))
	}

	tokens := tokensvc.New(bind(d.Contracts.Token, protocol.PathToken),
		tokensvc.WithLogger(logger), tokensvc.WithAuditor(d.Auditor))
	return &Services{
		Identity: identitysvc.New(bind(d.Contracts.PublicKeys, protocol.PublicKeys), identityOpts...),
		Issuers: issuersvc.New(bind(d.Contracts.Issuers, protocol.Issuers), authz.NewGuard(authz.WithLogger(logger)),
			issuersvc.WithLogger(logger), issuersvc.WithAuditor(d.Auditor)),
		Certificates: certsvc.New(bind(d.Contracts.Certificates, protocol.Certificates),
			certsvc.WithLogger(logger), certsvc.WithAuditor(d.Auditor)),
		Tokens: tokens,
		Escrow: escrowsvc.New(bind(d.Contracts.Escrow, protocol.Escrow), tokens,
			escrowsvc.WithLogger(logger), escrowsvc.WithAuditor(d.Auditor)),
		Audit: d.Auditor,
	}
}

// Handlers returns one HTTP handler per service, ready for NewRouter.
func (s *Services) Handlers(logger *slog.Logger) []Registrar {
	handlers := []Registrar{
		identityhandler.New(s.Identity, logger),
		issuerhandler.New(s.Issuers, logger),
		certhandler.New(s.Certificates, logger),
		tokenhandler.New(s.Tokens, logger),
		escrowhandler.New(s.Escrow, logger),
	}
	if s.Audit != nil {
		handlers = append(handlers, audithandler.New(s.Audit, logger))
	}
	return handlers
}
