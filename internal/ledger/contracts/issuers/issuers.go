// Package issuers is the issuer registry contract.
//
// Status only moves None -> Active -> Inactive, except that removing an
// unknown issuer moves it straight to Inactive. Mutations are restricted to the
// owner and deputy, and no account may change its own status.
package issuers

import (
	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/contracts/ownable"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

type Contract struct {
	*chain.Router
}

func New() *Contract {
	c := &Contract{Router: chain.NewRouter(protocol.Issuers)}
	ownable.Register(c.Router)
	c.Write(protocol.MethodAddIssuer, 1, c.addIssuer).
		Write(protocol.MethodRemoveIssuer, 1, c.removeIssuer).
		Read(protocol.MethodGetIssuerStatus, 1, c.getIssuerStatus)
	return c
}

func (c *Contract) Init(tx *chain.TxContext) error {
	return ownable.Init(tx)
}

func statusKey(issuer domain.Address) string { return "status/" + issuer.Key() }

func status(tx *chain.TxContext, issuer domain.Address) (protocol.IssuerStatus, error) {
	s := protocol.IssuerNone
	_, err := tx.Get(statusKey(issuer), &s)
	return s, err
}

func (c *Contract) mutate(tx *chain.TxContext, args chain.Args, action string, to protocol.IssuerStatus) (any, error) {
	issuer, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if err := ownable.RequireOwnerOrDeputy(tx, action+" on the "+protocol.Issuers+" contract"); err != nil {
		return nil, err
	}
	if issuer.Equal(tx.Sender()) {
		return nil, ledger.Revert(dErrors.CodeUnauthorized, "address %s cannot change its own issuer status", issuer)
	}
	from, err := status(tx, issuer)
	if err != nil {
		return nil, err
	}
	if from == to {
		return to, nil
	}
	if from == protocol.IssuerInactive {
		return nil, ledger.Revert(dErrors.CodeInvalidState, "issuer %s is inactive and cannot be reactivated", issuer)
	}
	if err := tx.Put(statusKey(issuer), to); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventIssuerStatusChanged, map[string]string{
		"issuer": issuer.String(),
		"from":   from.String(),
		"to":     to.String(),
	})
	return to, nil
}

func (c *Contract) addIssuer(tx *chain.TxContext, args chain.Args) (any, error) {
	return c.mutate(tx, args, "add an issuer", protocol.IssuerActive)
}

func (c *Contract) removeIssuer(tx *chain.TxContext, args chain.Args) (any, error) {
	return c.mutate(tx, args, "remove an issuer", protocol.IssuerInactive)
}

func (c *Contract) getIssuerStatus(tx *chain.TxContext, args chain.Args) (any, error) {
	issuer, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return status(tx, issuer)
}
