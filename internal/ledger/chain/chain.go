// Package chain is an in-process authoritative ledger. It hosts contracts,
// serializes every submission through a single writer, journals committed
// transactions and fans their events out to a sink.
//
// It trusts CallMsg.From: there is no signing, consensus or fee accounting.
package chain

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"credledger/internal/ledger"
	"credledger/internal/ledger/journal"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

// EventSink receives the receipt of every committed transaction.
type EventSink interface {
	Publish(ctx context.Context, receipt *ledger.Receipt) error
}

// Chain implements ledger.Client.
type Chain struct {
	mu        sync.RWMutex
	state     map[string][]byte
	contracts map[string]Contract
	height    uint64

	journal        journal.Journal
	sink           EventSink
	outbox         *outbox
	publishTimeout time.Duration
	logger         *slog.Logger
	clock          func() time.Time
}

type Option func(*Chain)

func WithJournal(j journal.Journal) Option {
	return func(c *Chain) {
		c.journal = j
	}
}

func WithEventSink(s EventSink) Option {
	return func(c *Chain) {
		c.sink = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithPublishTimeout bounds each sink delivery.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

// WithClock overrides the block timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(c *Chain) {
		c.clock = clock
	}
}

func New(opts ...Option) *Chain {
	c := &Chain{
		state:          make(map[string][]byte),
		contracts:      make(map[string]Contract),
		logger:         slog.Default(),
		clock:          func() time.Time { return time.Now().UTC() },
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink != nil {
		c.outbox = newOutbox(c.sink, c.publishTimeout, c.logger)
	}
	return c
}

// Close flushes receipts still waiting for the event sink. Submissions after
// Close commit but are not published.
func (c *Chain) Close(ctx context.Context) error {
	if c.outbox == nil {
		return nil
	}
	return c.outbox.close(ctx)
}

// Deploy hosts contract at address and runs its initializer with deployer as
// sender. Deployments are genesis state: they are not journaled and must be
// repeated identically before Replay.
func (c *Chain) Deploy(ctx context.Context, address, deployer domain.Address, contract Contract) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.contracts[address.Key()]; exists {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("address %s already hosts a contract", address))
	}
	c.contracts[address.Key()] = contract

	if init, ok := contract.(Initializer); ok {
		tx, _ := c.newTx(deployer, address, c.height, c.clock(), false)
		if err := init.Init(tx); err != nil {
			delete(c.contracts, address.Key())
			return fmt.Errorf("init %s at %s: %w", contract.ABI().Name, address, err)
		}
		c.commit(tx.overlay)
	}
	c.logger.InfoContext(ctx, "contract deployed",
		"contract", contract.ABI().Name,
		"address", address.String(),
	)
	return nil
}

// Height returns the number of committed transactions.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

func (c *Chain) Describe(_ context.Context, address domain.Address) (*ledger.ABI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contract, ok := c.contracts[address.Key()]
	if !ok {
		return nil, ledger.Revert(dErrors.CodeNotFound, "no contract at %s", address)
	}
	abi := contract.ABI()
	out := ledger.NewABI(abi.Name)
	for name, m := range abi.Methods {
		out.Methods[name] = m
	}
	return out, nil
}

// Call runs a read-only method against committed state.
func (c *Chain) Call(ctx context.Context, msg ledger.CallMsg) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	contract, err := c.resolve(msg, false)
	if err != nil {
		return nil, err
	}
	tx, _ := c.newTx(msg.From, msg.To, c.height, c.clock(), true)
	result, err := invoke(contract, tx, msg.Method, Args(msg.Args))
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", msg.Method, err)
	}
	return raw, nil
}

// Submit executes msg as the next block. A revert leaves state untouched.
// Events are queued in block order and published after the write lock is
// released.
func (c *Chain) Submit(ctx context.Context, msg ledger.CallMsg) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, overlay, err := c.execute(msg, c.height+1, c.clock())
	if err != nil {
		revertsTotal.WithLabelValues(msg.Method).Inc()
		return nil, err
	}

	if c.journal != nil {
		if err := c.journal.Append(ctx, entryOf(msg, receipt)); err != nil {
			return nil, fmt.Errorf("journal block %d: %w", receipt.Block, err)
		}
	}
	c.commit(overlay)
	c.height = receipt.Block
	blockHeight.Set(float64(c.height))
	txTotal.WithLabelValues(msg.Method).Inc()

	c.publish(ctx, receipt)
	return receipt, nil
}

// Replay re-executes journaled transactions above the current height. It is
// used at boot, after the genesis deployments, to rebuild state.
func (c *Chain) Replay(ctx context.Context, j journal.Journal) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, err := j.Height(ctx)
	if err != nil {
		return 0, err
	}
	if head <= c.height {
		return 0, nil
	}
	entries, err := j.Range(ctx, c.height+1, head)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Block != c.height+1 {
			return 0, fmt.Errorf("replay: journal gap at block %d", c.height+1)
		}
		msg := ledger.CallMsg{From: e.From, To: e.To, Method: e.Method, Args: e.Args}
		receipt, overlay, err := c.execute(msg, e.Block, e.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("replay block %d: %w", e.Block, err)
		}
		if receipt.TxHash != e.TxHash {
			return 0, fmt.Errorf("replay block %d: tx hash %s does not match journal %s", e.Block, receipt.TxHash, e.TxHash)
		}
		c.commit(overlay)
		c.height = e.Block
	}
	blockHeight.Set(float64(c.height))
	c.logger.InfoContext(ctx, "journal replayed", "blocks", len(entries), "height", c.height)
	return len(entries), nil
}

func (c *Chain) resolve(msg ledger.CallMsg, mutating bool) (Contract, error) {
	contract, ok := c.contracts[msg.To.Key()]
	if !ok {
		return nil, ledger.Revert(dErrors.CodeNotFound, "no contract at %s", msg.To)
	}
	if err := contract.ABI().Validate(msg.Method, len(msg.Args), mutating); err != nil {
		return nil, ledger.Revert(dErrors.CodeBadRequest, "%v", err)
	}
	return contract, nil
}

func (c *Chain) execute(msg ledger.CallMsg, block uint64, at time.Time) (*ledger.Receipt, map[string][]byte, error) {
	contract, err := c.resolve(msg, true)
	if err != nil {
		return nil, nil, err
	}
	if msg.From == "" {
		return nil, nil, ledger.Revert(dErrors.CodeUnauthorized, "%s requires a sender", msg.Method)
	}

	tx, events := c.newTx(msg.From, msg.To, block, at, false)
	result, err := invoke(contract, tx, msg.Method, Args(msg.Args))
	if err != nil {
		return nil, nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, nil, ledger.Revert(dErrors.CodeInternal, "encode %s result: %v", msg.Method, err)
	}

	return &ledger.Receipt{
		TxHash:    txHash(msg, block),
		Block:     block,
		Contract:  msg.To,
		From:      msg.From,
		Method:    msg.Method,
		Status:    ledger.ReceiptStatusSuccessful,
		Events:    *events,
		Result:    raw,
		Timestamp: at,
	}, tx.overlay, nil
}

func (c *Chain) newTx(sender, self domain.Address, block uint64, at time.Time, readOnly bool) (*TxContext, *[]ledger.Event) {
	events := make([]ledger.Event, 0)
	return &TxContext{
		chain:    c,
		sender:   sender,
		self:     self,
		block:    block,
		time:     at,
		readOnly: readOnly,
		overlay:  make(map[string][]byte),
		events:   &events,
	}, &events
}

func (c *Chain) commit(overlay map[string][]byte) {
	for k, v := range overlay {
		c.state[k] = v
	}
}

// publish must run under c.mu so the outbox sees receipts in block order.
func (c *Chain) publish(ctx context.Context, receipt *ledger.Receipt) {
	if c.outbox == nil || len(receipt.Events) == 0 {
		return
	}
	c.outbox.enqueue(ctx, receipt)
}

// txHash is keccak256 over the block number and the canonical call encoding.
func txHash(msg ledger.CallMsg, block uint64) domain.TxHash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], block)
	payload, _ := json.Marshal(ledger.CallMsg{From: domain.Address(msg.From.Key()), To: domain.Address(msg.To.Key()), Method: msg.Method, Args: msg.Args}) //nolint:errcheck // fixed shape
	return domain.TxHash(hexutil.Encode(crypto.Keccak256(b[:], payload)))
}

func entryOf(msg ledger.CallMsg, r *ledger.Receipt) journal.Entry {
	return journal.Entry{
		Block:     r.Block,
		TxHash:    r.TxHash,
		From:      msg.From,
		To:        msg.To,
		Method:    msg.Method,
		Args:      msg.Args,
		Events:    r.Events,
		Timestamp: r.Timestamp,
	}
}

var _ ledger.Client = (*Chain)(nil)
