// Package shared holds response shapes common to every ledger-backed handler.
package shared

import (
	"time"

	"credledger/internal/ledger"
)

// ReceiptResponse reports a committed ledger transaction.
type ReceiptResponse struct {
	TxHash    string         `json:"tx_hash"`
	Block     uint64         `json:"block"`
	Contract  string         `json:"contract"`
	Method    string         `json:"method"`
	Timestamp time.Time      `json:"timestamp"`
	Events    []ledger.Event `json:"events,omitempty"`
}

func ToReceiptResponse(r *ledger.Receipt) *ReceiptResponse {
	if r == nil {
		return nil
	}
	return &ReceiptResponse{
		TxHash:    r.TxHash.String(),
		Block:     r.Block,
		Contract:  r.Contract.String(),
		Method:    r.Method,
		Timestamp: r.Timestamp,
		Events:    r.Events,
	}
}
