// Package ledger is the boundary to the authoritative system of record. Every
// component reaches its contract through a Binding over a Client; the Client
// may be the in-process chain or the RPC transport.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"credledger/pkg/domain"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

// Client submits calls to contracts hosted by a ledger.
type Client interface {
	// Call runs a read-only method and returns its JSON-encoded result.
	Call(ctx context.Context, msg CallMsg) (json.RawMessage, error)
	// Submit runs a mutating method as one atomic transaction. A rejected
	// transaction returns a *RevertError and leaves no state behind.
	Submit(ctx context.Context, msg CallMsg) (*Receipt, error)
	// Describe returns the interface of the contract deployed at address.
	Describe(ctx context.Context, address domain.Address) (*ABI, error)
}

// CallMsg names a method on a contract, its ordered arguments and the caller.
type CallMsg struct {
	From   domain.Address    `json:"from,omitempty"`
	To     domain.Address    `json:"to"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args,omitempty"`
}

// NewCallMsg encodes args in order.
func NewCallMsg(from, to domain.Address, method string, args ...any) (CallMsg, error) {
	msg := CallMsg{From: from, To: to, Method: method, Args: make([]json.RawMessage, 0, len(args))}
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return CallMsg{}, fmt.Errorf("encode %s arg %d: %w", method, i, err)
		}
		msg.Args = append(msg.Args, raw)
	}
	return msg, nil
}

// Arg decodes argument i into out.
func (m CallMsg) Arg(i int, out any) error {
	if i >= len(m.Args) {
		return fmt.Errorf("%s: missing argument %d", m.Method, i)
	}
	if err := json.Unmarshal(m.Args[i], out); err != nil {
		return fmt.Errorf("%s: argument %d: %w", m.Method, i, err)
	}
	return nil
}

// ReceiptStatusSuccessful marks a committed transaction. Reverted transactions
// never produce a receipt.
const ReceiptStatusSuccessful uint8 = 1

// Receipt describes a committed transaction.
type Receipt struct {
	TxHash    domain.TxHash   `json:"tx_hash"`
	Block     uint64          `json:"block"`
	Contract  domain.Address  `json:"contract"`
	From      domain.Address  `json:"from"`
	Method    string          `json:"method"`
	Status    uint8           `json:"status"`
	Events    []Event         `json:"events,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Event is emitted by a contract during a committed transaction.
type Event struct {
	Contract   domain.Address    `json:"contract"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HasEvent reports whether the transaction emitted an event called name.
func (r *Receipt) HasEvent(name string) bool {
	for _, e := range r.Events {
		if e.Name == name {
			return true
		}
	}
	return false
}

// DecodeResult unmarshals the receipt's return value into out.
func (r *Receipt) DecodeResult(out any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("%s: receipt carries no result", r.Method)
	}
	return json.Unmarshal(r.Result, out)
}
