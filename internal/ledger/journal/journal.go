// Package journal stores the append-only log of committed ledger transactions.
// The chain appends every transaction before committing it and can rebuild its
// state by replaying the log.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
)

// Entry is one committed transaction.
type Entry struct {
	Block     uint64            `json:"block"`
	TxHash    domain.TxHash     `json:"tx_hash"`
	From      domain.Address    `json:"from"`
	To        domain.Address    `json:"to"`
	Method    string            `json:"method"`
	Args      []json.RawMessage `json:"args,omitempty"`
	Events    []ledger.Event    `json:"events,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Journal is an append-only transaction log. Blocks start at 1 and are dense.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	// Range returns entries with from <= block <= to in block order.
	Range(ctx context.Context, from, to uint64) ([]Entry, error)
	// Height returns the last appended block, or 0 when empty.
	Height(ctx context.Context) (uint64, error)
}
