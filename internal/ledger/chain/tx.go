package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

// TxContext is a contract's view of the transaction it runs in. Writes go to
// an overlay that is committed only if the outermost invocation succeeds.
// Nested invocations share the overlay and the event list.
type TxContext struct {
	chain    *Chain
	sender   domain.Address
	self     domain.Address
	block    uint64
	time     time.Time
	readOnly bool
	overlay  map[string][]byte
	events   *[]ledger.Event
}

func (tx *TxContext) Sender() domain.Address { return tx.sender }
func (tx *TxContext) Self() domain.Address   { return tx.self }
func (tx *TxContext) Block() uint64          { return tx.block }
func (tx *TxContext) Time() time.Time        { return tx.time }

func (tx *TxContext) stateKey(key string) string {
	return tx.self.Key() + "/" + key
}

// Get decodes the value stored under key into out and reports whether it exists.
func (tx *TxContext) Get(key string, out any) (bool, error) {
	k := tx.stateKey(key)
	raw, ok := tx.overlay[k]
	if !ok {
		raw, ok = tx.chain.state[k]
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, ledger.Revert(dErrors.CodeInternal, "corrupt state at %s: %v", key, err)
	}
	return true, nil
}

// Put stores v under key for this transaction.
func (tx *TxContext) Put(key string, v any) error {
	if tx.readOnly {
		return ledger.Revert(dErrors.CodeInternal, "state write to %s during a read-only call", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ledger.Revert(dErrors.CodeInternal, "encode state at %s: %v", key, err)
	}
	tx.overlay[tx.stateKey(key)] = raw
	return nil
}

// Emit records an event. Events of read-only calls are dropped.
func (tx *TxContext) Emit(name string, attrs map[string]string) {
	if tx.readOnly {
		return
	}
	*tx.events = append(*tx.events, ledger.Event{Contract: tx.self, Name: name, Attributes: attrs})
}

// Invoke calls another contract with this contract as the sender and decodes
// the result into out, which may be nil.
func (tx *TxContext) Invoke(to domain.Address, method string, out any, args ...any) error {
	contract, ok := tx.chain.contracts[to.Key()]
	if !ok {
		return ledger.Revert(dErrors.CodeNotFound, "no contract at %s", to)
	}
	msg, err := ledger.NewCallMsg(tx.self, to, method, args...)
	if err != nil {
		return ledger.Revert(dErrors.CodeInternal, "%v", err)
	}
	abi := contract.ABI()
	if m, ok := abi.Methods[method]; ok && m.Mutating && tx.readOnly {
		return ledger.Revert(dErrors.CodeInternal, "%s.%s mutates state and cannot run in a read-only call", abi.Name, method)
	}
	if err := abi.Validate(method, len(args), abi.Methods[method].Mutating); err != nil {
		return ledger.Revert(dErrors.CodeBadRequest, "%v", err)
	}

	child := *tx
	child.sender = tx.self
	child.self = to
	result, err := invoke(contract, &child, method, Args(msg.Args))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return ledger.Revert(dErrors.CodeInternal, "encode %s result: %v", method, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return ledger.Revert(dErrors.CodeInternal, "decode %s result: %v", method, err)
	}
	return nil
}

// invoke runs a contract method and normalizes any failure into a revert.
func invoke(c Contract, tx *TxContext, method string, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, ledger.Revert(dErrors.CodeInternal, "%s.%s panicked: %v", c.ABI().Name, method, r)
		}
	}()
	result, err = c.Invoke(tx, method, args)
	if err == nil {
		return result, nil
	}
	if _, ok := ledger.AsRevert(err); ok {
		return nil, err
	}
	return nil, ledger.Revert(dErrors.CodeOf(err), "%s", fmt.Sprint(err))
}
