// Package ownable gives a contract an owner and an optional deputy with
// owner-equivalent authority over administrative methods.
package ownable

import (
	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

const (
	keyOwner  = "ownable/owner"
	keyDeputy = "ownable/deputy"
)

// Init records the deployer as owner.
func Init(tx *chain.TxContext) error {
	return tx.Put(keyOwner, tx.Sender())
}

// Register adds owner(), deputy() and setDeputy(address) to r.
func Register(r *chain.Router) {
	r.Read(protocol.MethodOwner, 0, func(tx *chain.TxContext, _ chain.Args) (any, error) {
		return Owner(tx)
	})
	r.Read(protocol.MethodDeputy, 0, func(tx *chain.TxContext, _ chain.Args) (any, error) {
		return Deputy(tx)
	})
	r.Write(protocol.MethodSetDeputy, 1, setDeputy)
}

func Owner(tx *chain.TxContext) (domain.Address, error) {
	var owner domain.Address
	_, err := tx.Get(keyOwner, &owner)
	return owner, err
}

// Deputy returns "" when none is set.
func Deputy(tx *chain.TxContext) (domain.Address, error) {
	var deputy domain.Address
	_, err := tx.Get(keyDeputy, &deputy)
	return deputy, err
}

// RequireOwnerOrDeputy reverts unless the sender is the owner or the deputy.
func RequireOwnerOrDeputy(tx *chain.TxContext, action string) error {
	owner, err := Owner(tx)
	if err != nil {
		return err
	}
	if owner != "" && owner.Equal(tx.Sender()) {
		return nil
	}
	deputy, err := Deputy(tx)
	if err != nil {
		return err
	}
	if deputy != "" && deputy.Equal(tx.Sender()) {
		return nil
	}
	return ledger.Revert(dErrors.CodeUnauthorized, "address %s is not allowed to %s", tx.Sender(), action)
}

func setDeputy(tx *chain.TxContext, args chain.Args) (any, error) {
	deputy, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	owner, err := Owner(tx)
	if err != nil {
		return nil, err
	}
	if !owner.Equal(tx.Sender()) {
		return nil, ledger.Revert(dErrors.CodeUnauthorized, "only the owner may set the deputy")
	}
	if err := tx.Put(keyDeputy, deputy); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventDeputyChanged, map[string]string{"deputy": deputy.String()})
	return nil, nil
}
