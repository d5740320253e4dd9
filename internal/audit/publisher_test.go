package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credledger/pkg/requestcontext"
)

func TestPublisherSync(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-7"), at)

	require.NoError(t, p.Emit(ctx, Event{
		Action:  ActionIssuerAdded,
		Actor:   "0x00000000000000000000000000000000000000A0",
		Subject: "0x00000000000000000000000000000000000001E0",
	}))

	events, err := p.ListBySubject(ctx, "0x00000000000000000000000000000000000001e0")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, at, events[0].Timestamp)
	assert.Equal(t, "req-7", events[0].RequestID)
	assert.Equal(t, ActionIssuerAdded, events[0].Action)
}

func TestPublisherAsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(8), WithPublisherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	for range 5 {
		require.NoError(t, p.Emit(context.Background(), Event{Action: ActionEscrowDeposited, Subject: "seeker"}))
	}
	p.Close()

	assert.Len(t, store.All(), 5)
}

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error { return errors.New("disk full") }
func (failingStore) ListBySubject(context.Context, string) ([]Event, error) {
	return nil, nil
}
func (failingStore) ListByTx(context.Context, string) ([]Event, error) { return nil, nil }

func TestPublisherSyncReturnsStoreError(t *testing.T) {
	err := NewPublisher(failingStore{}).Emit(context.Background(), Event{Action: ActionIssuerRemoved})
	assert.EqualError(t, err, "disk full")
}

func TestInMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	p := NewPublisher(store)

	require.NoError(t, p.Emit(ctx, Event{ID: "e1", Action: ActionRequestSubmitted, Subject: "0xABC", TxHash: "0x01"}))
	require.NoError(t, p.Emit(ctx, Event{ID: "e2", Action: ActionEscrowDeposited, Subject: "0xdef", TxHash: "0x01"}))
	require.NoError(t, p.Emit(ctx, Event{ID: "e3", Action: ActionRequestApproved, Subject: "0xabc", TxHash: "0x02"}))
	require.NoError(t, p.Emit(ctx, Event{ID: "e1", Action: ActionRequestSubmitted, Subject: "0xabc", TxHash: "0x01"}))

	bySubject, err := p.ListBySubject(ctx, "0xAbc")
	require.NoError(t, err)
	require.Len(t, bySubject, 2)
	assert.Equal(t, ActionRequestSubmitted, bySubject[0].Action)
	assert.Equal(t, ActionRequestApproved, bySubject[1].Action)

	byTx, err := p.ListByTx(ctx, "0x01")
	require.NoError(t, err)
	assert.Len(t, byTx, 2)

	none, err := p.ListByTx(ctx, "0x03")
	require.NoError(t, err)
	assert.Empty(t, none)
}
