// Package tracer is the tracing port used around ledger calls. It keeps
// OpenTelemetry out of the binding and contract code paths.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute        { return Attribute{Key: key, Value: value} }
func Bool(key string, value bool) Attribute     { return Attribute{Key: key, Value: value} }
func Int64(key string, value int64) Attribute   { return Attribute{Key: key, Value: value} }
func Uint64(key string, value uint64) Attribute { return Attribute{Key: key, Value: int64(value)} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanLedgerConnect = "ledger.connect"
	SpanLedgerCall    = "ledger.call"
	SpanLedgerSubmit  = "ledger.submit"
)

// Attribute keys.
const (
	AttrContract = "ledger.contract"
	AttrAddress  = "ledger.address"
	AttrMethod   = "ledger.method"
	AttrFrom     = "ledger.from"
	AttrTxHash   = "ledger.tx_hash"
	AttrBlock    = "ledger.block"
	AttrErrCode  = "ledger.error_code"
)

// Event names.
const (
	EventReverted = "ledger.reverted"
)
