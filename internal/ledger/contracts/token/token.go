// Package token is the fungible asset used to fund escrowed verification
// requests. The whole supply is minted to the deployer.
package token

import (
	"strconv"

	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

type Contract struct {
	*chain.Router
	supply uint64
}

func New(supply uint64) *Contract {
	c := &Contract{Router: chain.NewRouter(protocol.PathToken), supply: supply}
	c.Read(protocol.MethodBalanceOf, 1, c.balanceOf).
		Read(protocol.MethodTotalSupply, 0, c.totalSupply).
		Read(protocol.MethodAllowance, 2, c.allowance).
		Write(protocol.MethodTransfer, 2, c.transfer).
		Write(protocol.MethodApprove, 2, c.approve).
		Write(protocol.MethodTransferFrom, 3, c.transferFrom)
	return c
}

func (c *Contract) Init(tx *chain.TxContext) error {
	if err := tx.Put("supply", c.supply); err != nil {
		return err
	}
	return tx.Put(balanceKey(tx.Sender()), c.supply)
}

func balanceKey(a domain.Address) string { return "balance/" + a.Key() }
func allowanceKey(owner, spender domain.Address) string {
	return "allowance/" + owner.Key() + "/" + spender.Key()
}

func getUint(tx *chain.TxContext, key string) (uint64, error) {
	var n uint64
	_, err := tx.Get(key, &n)
	return n, err
}

func move(tx *chain.TxContext, from, to domain.Address, amount uint64) error {
	if to.IsZero() {
		return ledger.Revert(dErrors.CodeInvalidInput, "transfer to the zero address")
	}
	fromBal, err := getUint(tx, balanceKey(from))
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ledger.Revert(dErrors.CodeInsufficientBalance, "balance of %s is %d, need %d", from, fromBal, amount)
	}
	if err := tx.Put(balanceKey(from), fromBal-amount); err != nil {
		return err
	}
	toBal, err := getUint(tx, balanceKey(to))
	if err != nil {
		return err
	}
	if err := tx.Put(balanceKey(to), toBal+amount); err != nil {
		return err
	}
	tx.Emit(protocol.EventTransfer, map[string]string{
		"from":   from.String(),
		"to":     to.String(),
		"amount": strconv.FormatUint(amount, 10),
	})
	return nil
}

func (c *Contract) balanceOf(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return getUint(tx, balanceKey(owner))
}

func (c *Contract) totalSupply(tx *chain.TxContext, _ chain.Args) (any, error) {
	return getUint(tx, "supply")
}

func (c *Contract) allowance(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	spender, err := args.Address(1)
	if err != nil {
		return nil, err
	}
	return getUint(tx, allowanceKey(owner, spender))
}

func (c *Contract) transfer(tx *chain.TxContext, args chain.Args) (any, error) {
	to, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	amount, err := args.Uint64(1)
	if err != nil {
		return nil, err
	}
	if err := move(tx, tx.Sender(), to, amount); err != nil {
		return nil, err
	}
	return true, nil
}

// approve replaces any existing allowance.
func (c *Contract) approve(tx *chain.TxContext, args chain.Args) (any, error) {
	spender, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	amount, err := args.Uint64(1)
	if err != nil {
		return nil, err
	}
	if err := tx.Put(allowanceKey(tx.Sender(), spender), amount); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventApproval, map[string]string{
		"owner":   tx.Sender().String(),
		"spender": spender.String(),
		"amount":  strconv.FormatUint(amount, 10),
	})
	return true, nil
}

// transferFrom spends the sender's allowance on from.
func (c *Contract) transferFrom(tx *chain.TxContext, args chain.Args) (any, error) {
	from, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	to, err := args.Address(1)
	if err != nil {
		return nil, err
	}
	amount, err := args.Uint64(2)
	if err != nil {
		return nil, err
	}
	key := allowanceKey(from, tx.Sender())
	allowed, err := getUint(tx, key)
	if err != nil {
		return nil, err
	}
	if allowed < amount {
		return nil, ledger.Revert(dErrors.CodeInsufficientAllowance,
			"allowance of %s for %s is %d, need %d", from, tx.Sender(), allowed, amount)
	}
	if err := tx.Put(key, allowed-amount); err != nil {
		return nil, err
	}
	if err := move(tx, from, to, amount); err != nil {
		return nil, err
	}
	return true, nil
}
