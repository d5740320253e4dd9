// Package authz pre-checks ownership before a mutating ledger call. The
// contracts enforce the same rule atomically; the guard only saves a
// transaction that would revert.
package authz

import (
	"context"
	"fmt"
	"log/slog"

	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

//go:generate mockgen -source=guard.go -destination=mocks/mocks.go -package=mocks RoleSource

// RoleSource reads the roles an ownable contract grants.
type RoleSource interface {
	Owner(ctx context.Context) (domain.Address, error)
	Deputy(ctx context.Context) (domain.Address, error)
}

type Guard struct {
	logger *slog.Logger
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func NewGuard(opts ...Option) *Guard {
	g := &Guard{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireOwnerOrDeputy fails with CodeUnauthorized unless caller is the
// contract's owner or deputy. The deputy is read only when caller is not the
// owner.
func (g *Guard) RequireOwnerOrDeputy(ctx context.Context, source RoleSource, caller domain.Address, action, contract string) error {
	owner, err := source.Owner(ctx)
	if err != nil {
		return err
	}
	if caller.Equal(owner) {
		return nil
	}
	deputy, err := source.Deputy(ctx)
	if err != nil {
		return err
	}
	if !deputy.IsZero() && caller.Equal(deputy) {
		return nil
	}
	return g.deny(ctx, caller, action, contract)
}

// RequireOwner fails with CodeUnauthorized unless caller is the owner.
func (g *Guard) RequireOwner(ctx context.Context, source RoleSource, caller domain.Address, action, contract string) error {
	owner, err := source.Owner(ctx)
	if err != nil {
		return err
	}
	if caller.Equal(owner) {
		return nil
	}
	return g.deny(ctx, caller, action, contract)
}

func (g *Guard) deny(ctx context.Context, caller domain.Address, action, contract string) error {
	deniedTotal.WithLabelValues(contract).Inc()
	g.logger.InfoContext(ctx, "authorization pre-check denied",
		"caller", caller.String(),
		"action", action,
		"contract", contract,
	)
	return dErrors.New(dErrors.CodeUnauthorized,
		fmt.Sprintf("address %s is not allowed to %s on the %s contract", caller, action, contract))
}
