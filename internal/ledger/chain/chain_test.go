package chain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/journal"
	dErrors "credledger/pkg/domain-errors"
)

var (
	deployer = chaintest.Addr("d0")
	alice    = chaintest.Addr("a1")
	counterA = chaintest.Addr("c1")
	counterB = chaintest.Addr("c2")
)

// counter is a minimal contract: add(n) increments, and reverts after
// writing when the total would exceed limit, so atomicity is observable.
type counter struct {
	*chain.Router
	limit uint64
}

func newCounter(limit uint64) *counter {
	c := &counter{Router: chain.NewRouter("Counter"), limit: limit}
	c.Write("add", 1, c.add).
		Write("addBoth", 1, c.addBoth).
		Read("value", 0, c.value).
		Read("badRead", 0, c.badRead)
	return c
}

func (c *counter) Init(tx *chain.TxContext) error {
	return tx.Put("value", uint64(0))
}

func (c *counter) add(tx *chain.TxContext, args chain.Args) (any, error) {
	n, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	var v uint64
	if _, err := tx.Get("value", &v); err != nil {
		return nil, err
	}
	v += n
	if err := tx.Put("value", v); err != nil {
		return nil, err
	}
	tx.Emit("Added", map[string]string{"by": tx.Sender().String()})
	if v > c.limit {
		return nil, ledger.Revert(dErrors.CodeInvalidState, "limit exceeded")
	}
	return v, nil
}

// addBoth adds locally and then on counterB, so a revert in the nested call
// must also discard the local write.
func (c *counter) addBoth(tx *chain.TxContext, args chain.Args) (any, error) {
	n, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	if _, err := c.add(tx, args); err != nil {
		return nil, err
	}
	return nil, tx.Invoke(counterB, "add", nil, n)
}

func (c *counter) value(tx *chain.TxContext, _ chain.Args) (any, error) {
	var v uint64
	_, err := tx.Get("value", &v)
	return v, err
}

func (c *counter) badRead(tx *chain.TxContext, _ chain.Args) (any, error) {
	return nil, tx.Put("value", uint64(99))
}

type recordingSink struct {
	mu       sync.Mutex
	receipts []*ledger.Receipt
	err      error
}

func (s *recordingSink) Publish(_ context.Context, r *ledger.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return s.err
}

type ChainSuite struct {
	suite.Suite
	chain   *chain.Chain
	journal *journal.InMemoryJournal
	sink    *recordingSink
	ctx     context.Context
}

func TestChainSuite(t *testing.T) {
	suite.Run(t, new(ChainSuite))
}

func (s *ChainSuite) SetupTest() {
	s.ctx = context.Background()
	s.journal = journal.NewInMemory()
	s.sink = &recordingSink{}
	s.chain = s.newChain(s.journal)
}

func (s *ChainSuite) TearDownTest() {
	s.NoError(s.chain.Close(s.ctx))
}

func (s *ChainSuite) newChain(j journal.Journal) *chain.Chain {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := chain.New(
		chain.WithJournal(j),
		chain.WithEventSink(s.sink),
		chain.WithClock(func() time.Time { return clock }),
	)
	s.Require().NoError(c.Deploy(s.ctx, counterA, deployer, newCounter(10)))
	s.Require().NoError(c.Deploy(s.ctx, counterB, deployer, newCounter(5)))
	return c
}

func (s *ChainSuite) TestSubmitCommitsAndIssuesReceipt() {
	receipt := chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "add", uint64(3))

	s.Equal(uint64(1), receipt.Block)
	s.Equal(ledger.ReceiptStatusSuccessful, receipt.Status)
	s.Len(string(receipt.TxHash), 66)
	s.Require().Len(receipt.Events, 1)
	s.Equal("Added", receipt.Events[0].Name)
	s.Equal(counterA, receipt.Events[0].Contract)

	var v uint64
	s.Require().NoError(receipt.DecodeResult(&v))
	s.Equal(uint64(3), v)
	s.Equal(uint64(1), s.chain.Height())
}

func (s *ChainSuite) TestRevertLeavesNoWrites() {
	chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "add", uint64(8))

	_, err := chaintest.Submit(s.T(), s.chain, alice, counterA, "add", uint64(5))
	s.Require().Error(err)
	s.Equal(string(dErrors.CodeInvalidState), chaintest.RevertCode(err))

	var v uint64
	chaintest.MustCall(s.T(), s.chain, counterA, "value", &v)
	s.Equal(uint64(8), v)
	s.Equal(uint64(1), s.chain.Height(), "reverted tx does not consume a block")
}

func (s *ChainSuite) TestNestedRevertUnwindsCaller() {
	_, err := chaintest.Submit(s.T(), s.chain, alice, counterA, "addBoth", uint64(6))
	s.Require().Error(err)

	var a, b uint64
	chaintest.MustCall(s.T(), s.chain, counterA, "value", &a)
	chaintest.MustCall(s.T(), s.chain, counterB, "value", &b)
	s.Zero(a)
	s.Zero(b)
}

func (s *ChainSuite) TestNestedCallSeesCallerAsSender() {
	receipt := chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "addBoth", uint64(1))

	s.Require().Len(receipt.Events, 2)
	s.Equal(alice.String(), receipt.Events[0].Attributes["by"])
	s.Equal(counterA.String(), receipt.Events[1].Attributes["by"])
}

func (s *ChainSuite) TestReadsCannotWrite() {
	err := chaintest.Call(s.T(), s.chain, counterA, "badRead", new(uint64))
	s.Equal(string(dErrors.CodeInternal), chaintest.RevertCode(err))
}

func (s *ChainSuite) TestCallRejectsWrites() {
	err := chaintest.Call(s.T(), s.chain, counterA, "add", new(uint64), uint64(1))
	s.Equal(string(dErrors.CodeBadRequest), chaintest.RevertCode(err))
}

func (s *ChainSuite) TestUnknownContract() {
	_, err := chaintest.Submit(s.T(), s.chain, alice, chaintest.Addr("ff"), "add", uint64(1))
	s.Equal(string(dErrors.CodeNotFound), chaintest.RevertCode(err))

	_, err = s.chain.Describe(s.ctx, chaintest.Addr("ff"))
	s.Equal(string(dErrors.CodeNotFound), chaintest.RevertCode(err))
}

func (s *ChainSuite) TestSubmitRequiresSender() {
	_, err := chaintest.Submit(s.T(), s.chain, "", counterA, "add", uint64(1))
	s.Equal(string(dErrors.CodeUnauthorized), chaintest.RevertCode(err))
}

func (s *ChainSuite) TestDeployTwiceConflicts() {
	err := s.chain.Deploy(s.ctx, counterA, deployer, newCounter(1))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ChainSuite) TestDescribe() {
	abi, err := s.chain.Describe(s.ctx, counterA)
	s.Require().NoError(err)
	s.Equal("Counter", abi.Name)
	s.True(abi.Methods["add"].Mutating)
	s.False(abi.Methods["value"].Mutating)
}

func (s *ChainSuite) TestJournalAndReplay() {
	chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "add", uint64(2))
	chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "addBoth", uint64(3))

	height, err := s.journal.Height(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), height)

	replica := s.newChain(nil)
	defer func() { s.NoError(replica.Close(s.ctx)) }()
	n, err := replica.Replay(s.ctx, s.journal)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(uint64(2), replica.Height())

	var a, b uint64
	chaintest.MustCall(s.T(), replica, counterA, "value", &a)
	chaintest.MustCall(s.T(), replica, counterB, "value", &b)
	s.Equal(uint64(5), a)
	s.Equal(uint64(3), b)

	n, err = replica.Replay(s.ctx, s.journal)
	s.Require().NoError(err)
	s.Zero(n, "replay is a no-op at head")
}

func (s *ChainSuite) TestSinkReceivesCommittedTransactionsOnly() {
	chaintest.MustSubmit(s.T(), s.chain, alice, counterA, "add", uint64(1))
	_, _ = chaintest.Submit(s.T(), s.chain, alice, counterA, "add", uint64(100))
	s.Require().NoError(s.chain.Close(s.ctx))

	s.Require().Len(s.sink.receipts, 1)
	s.Equal(uint64(1), s.sink.receipts[0].Block)
}

func (s *ChainSuite) TestSinkFailureDoesNotFailCommit() {
	s.sink.err = errors.New("broker down")

	_, err := chaintest.Submit(s.T(), s.chain, alice, counterA, "add", uint64(1))
	s.NoError(err)
	s.Equal(uint64(1), s.chain.Height())
	s.Require().NoError(s.chain.Close(s.ctx))
	s.Len(s.sink.receipts, 1)
}

func (s *ChainSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, err := ledger.NewCallMsg(alice, counterA, "add", uint64(1))
	s.Require().NoError(err)

	_, err = s.chain.Submit(ctx, msg)
	s.ErrorIs(err, context.Canceled)
}

func TestSubmitsAreSerialized(t *testing.T) {
	c := chain.New()
	require.NoError(t, c.Deploy(context.Background(), counterA, deployer, newCounter(1_000)))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := chaintest.Submit(t, c, alice, counterA, "add", uint64(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var v uint64
	chaintest.MustCall(t, c, counterA, "value", &v)
	assert.Equal(t, uint64(50), v)
	assert.Equal(t, uint64(50), c.Height())
}

// gatedSink holds every Publish until release is closed and records whether
// the context it was handed was still live at delivery time.
type gatedSink struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	blocks  []uint64
	ctxErrs []error
}

func (g *gatedSink) Publish(ctx context.Context, r *ledger.Receipt) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocks = append(g.blocks, r.Block)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	return nil
}

func TestSlowSinkDoesNotHoldTheLedger(t *testing.T) {
	sink := &gatedSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := chain.New(chain.WithEventSink(sink))
	require.NoError(t, c.Deploy(context.Background(), counterA, deployer, newCounter(100)))

	reqCtx, cancel := context.WithCancel(context.Background())
	msg, err := ledger.NewCallMsg(alice, counterA, "add", uint64(1))
	require.NoError(t, err)
	_, err = c.Submit(reqCtx, msg)
	require.NoError(t, err)
	cancel()

	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the committed receipt")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var v uint64
		assert.NoError(t, chaintest.Call(t, c, counterA, "value", &v))
		assert.Equal(t, uint64(1), v)
		_, err := chaintest.Submit(t, c, alice, counterA, "add", uint64(2))
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reads and writes waited on the event sink")
	}
	assert.Equal(t, uint64(2), c.Height())

	close(sink.release)
	require.NoError(t, c.Close(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, sink.blocks, "receipts are published in block order")
	assert.Equal(t, []error{nil, nil}, sink.ctxErrs, "delivery outlives the submitter's context")
}

func TestCloseGivesUpAtDeadline(t *testing.T) {
	sink := &gatedSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	defer close(sink.release)
	c := chain.New(chain.WithEventSink(sink))
	require.NoError(t, c.Deploy(context.Background(), counterA, deployer, newCounter(100)))
	chaintest.MustSubmit(t, c, alice, counterA, "add", uint64(1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Close(ctx), context.DeadlineExceeded)
}
