// Package pubkeys is the identity directory contract: one write-once public
// key per account.
package pubkeys

import (
	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

type Contract struct {
	*chain.Router
}

func New() *Contract {
	c := &Contract{Router: chain.NewRouter(protocol.PublicKeys)}
	c.Write(protocol.MethodAddPublicKey, 1, c.addPublicKey).
		Read(protocol.MethodPublicKeyStore, 1, c.publicKeyStore)
	return c
}

func keyOf(owner string) string { return "key/" + owner }

func (c *Contract) addPublicKey(tx *chain.TxContext, args chain.Args) (any, error) {
	key, err := args.Hex(0)
	if err != nil {
		return nil, err
	}
	if key == hexcodec.Empty {
		return nil, ledger.Revert(dErrors.CodeInvalidInput, "public key cannot be empty")
	}
	var existing string
	found, err := tx.Get(keyOf(tx.Sender().Key()), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ledger.Revert(dErrors.CodeAlreadyRegistered, "address %s already has a public key", tx.Sender())
	}
	if err := tx.Put(keyOf(tx.Sender().Key()), key); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventPublicKeyAdded, map[string]string{"owner": tx.Sender().String()})
	return nil, nil
}

// publicKeyStore returns the unset sentinel for accounts with no key.
func (c *Contract) publicKeyStore(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	key := hexcodec.Empty
	if _, err := tx.Get(keyOf(owner.Key()), &key); err != nil {
		return nil, err
	}
	return key, nil
}
