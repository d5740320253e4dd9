package chain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"credledger/internal/ledger"
)

const defaultPublishTimeout = 15 * time.Second

type pendingReceipt struct {
	ctx     context.Context
	receipt *ledger.Receipt
}

// outbox hands committed receipts to the sink on its own goroutine, in the
// order they were enqueued. Enqueue never waits on the sink.
type outbox struct {
	sink    EventSink
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []pendingReceipt
	closed bool
	done   chan struct{}
}

func newOutbox(sink EventSink, timeout time.Duration, logger *slog.Logger) *outbox {
	o := &outbox{
		sink:    sink,
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)
	go o.run()
	return o
}

// enqueue keeps ctx values (request ID, caller) but not its cancellation:
// a committed transaction is published even if its submitter went away.
func (o *outbox) enqueue(ctx context.Context, receipt *ledger.Receipt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		sinkFailuresTotal.Inc()
		o.logger.WarnContext(ctx, "event outbox closed, receipt not published",
			"tx_hash", receipt.TxHash.String(),
			"block", receipt.Block,
		)
		return
	}
	o.queue = append(o.queue, pendingReceipt{ctx: context.WithoutCancel(ctx), receipt: receipt})
	outboxBacklog.Set(float64(len(o.queue)))
	o.cond.Signal()
}

func (o *outbox) run() {
	defer close(o.done)
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if len(o.queue) == 0 {
			o.mu.Unlock()
			return
		}
		next := o.queue[0]
		o.queue[0] = pendingReceipt{}
		o.queue = o.queue[1:]
		outboxBacklog.Set(float64(len(o.queue)))
		o.mu.Unlock()

		o.deliver(next)
	}
}

func (o *outbox) deliver(p pendingReceipt) {
	ctx, cancel := context.WithTimeout(p.ctx, o.timeout)
	defer cancel()
	if err := o.sink.Publish(ctx, p.receipt); err != nil {
		sinkFailuresTotal.Inc()
		o.logger.ErrorContext(ctx, "event sink publish failed",
			"error", err,
			"tx_hash", p.receipt.TxHash.String(),
			"block", p.receipt.Block,
		)
	}
}

// close stops accepting receipts and waits until the queue has drained or
// ctx is done.
func (o *outbox) close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
