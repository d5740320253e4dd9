package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"credledger/internal/ledger/tracer"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

// Binding is a component's connected handle to one deployed contract.
//
// The remote interface is fetched on first use. Concurrent first callers share
// a single Describe round-trip; a failed connect leaves the binding
// unconnected so a later call can retry.
type Binding struct {
	client   Client
	address  domain.Address
	contract string
	logger   *slog.Logger
	tracer   tracer.Tracer

	abi atomic.Pointer[ABI]
	mu  sync.Mutex
}

type BindingOption func(*Binding)

func WithLogger(logger *slog.Logger) BindingOption {
	return func(b *Binding) {
		b.logger = logger
	}
}

func WithTracer(t tracer.Tracer) BindingOption {
	return func(b *Binding) {
		b.tracer = t
	}
}

// NewBinding does no I/O; see Connect.
func NewBinding(client Client, address domain.Address, contract string, opts ...BindingOption) *Binding {
	b := &Binding{
		client:   client,
		address:  address,
		contract: contract,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binding) Address() domain.Address { return b.address }
func (b *Binding) Contract() string        { return b.contract }

// Connected reports whether the interface has been fetched.
func (b *Binding) Connected() bool { return b.abi.Load() != nil }

// Connect fetches and checks the remote interface once.
func (b *Binding) Connect(ctx context.Context) (*ABI, error) {
	if abi := b.abi.Load(); abi != nil {
		return abi, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if abi := b.abi.Load(); abi != nil {
		return abi, nil
	}

	ctx, span := b.tracer.Start(ctx, tracer.SpanLedgerConnect,
		tracer.String(tracer.AttrContract, b.contract),
		tracer.String(tracer.AttrAddress, b.address.String()),
	)
	abi, err := b.client.Describe(ctx, b.address)
	if err != nil {
		err = translate(err, "connect", b.target())
		span.End(err)
		return nil, err
	}
	if abi.Name != b.contract {
		err = dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("connect %s: address hosts %q", b.target(), abi.Name))
		span.End(err)
		return nil, err
	}
	span.End(nil)

	b.abi.Store(abi)
	b.logger.DebugContext(ctx, "ledger binding connected",
		"contract", b.contract,
		"address", b.address.String(),
		"methods", len(abi.Methods),
	)
	return abi, nil
}

// Call runs a read-only method and decodes its result into out. out may be nil.
func (b *Binding) Call(ctx context.Context, method string, out any, args ...any) (err error) {
	start := time.Now()
	defer func() { b.observe(method, start, err) }()

	abi, err := b.Connect(ctx)
	if err != nil {
		return err
	}
	if err = abi.Validate(method, len(args), false); err != nil {
		return err
	}

	ctx, span := b.tracer.Start(ctx, tracer.SpanLedgerCall,
		tracer.String(tracer.AttrContract, b.contract),
		tracer.String(tracer.AttrMethod, method),
	)
	defer func() { span.End(err) }()

	msg, err := NewCallMsg("", b.address, method, args...)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	}
	raw, err := b.client.Call(ctx, msg)
	if err != nil {
		b.annotateRevert(span, err)
		return translate(err, method, b.target())
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("%s %s: decode result: %v", method, b.target(), err))
	}
	return nil
}

// Submit sends a mutating method from the given account. It is never retried.
func (b *Binding) Submit(ctx context.Context, from domain.Address, method string, args ...any) (receipt *Receipt, err error) {
	start := time.Now()
	defer func() { b.observe(method, start, err) }()

	abi, err := b.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if err = abi.Validate(method, len(args), true); err != nil {
		return nil, err
	}

	ctx, span := b.tracer.Start(ctx, tracer.SpanLedgerSubmit,
		tracer.String(tracer.AttrContract, b.contract),
		tracer.String(tracer.AttrMethod, method),
		tracer.String(tracer.AttrFrom, from.String()),
	)
	defer func() { span.End(err) }()

	msg, err := NewCallMsg(from, b.address, method, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	}
	receipt, err = b.client.Submit(ctx, msg)
	if err != nil {
		b.annotateRevert(span, err)
		return nil, translate(err, method, b.target())
	}
	span.SetAttributes(
		tracer.String(tracer.AttrTxHash, receipt.TxHash.String()),
		tracer.Uint64(tracer.AttrBlock, receipt.Block),
	)
	return receipt, nil
}

func (b *Binding) target() string {
	return b.contract + " at " + b.address.String()
}

func (b *Binding) annotateRevert(span tracer.Span, err error) {
	if rev, ok := AsRevert(err); ok {
		span.AddEvent(tracer.EventReverted, tracer.String(tracer.AttrErrCode, string(rev.Code)))
	}
}

func (b *Binding) observe(method string, start time.Time, err error) {
	callsTotal.WithLabelValues(b.contract, method, outcomeOf(err)).Inc()
	callDuration.WithLabelValues(b.contract, method).Observe(time.Since(start).Seconds())
}
