package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"credledger/pkg/domain"
)

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestCaller(t *testing.T) {
	_, ok := Caller(context.Background())
	assert.False(t, ok)

	addr := domain.MustAddress("0x00000000000000000000000000000000000000aa")
	got, ok := Caller(WithCaller(context.Background(), addr))
	assert.True(t, ok)
	assert.Equal(t, addr, got)

	_, ok = Caller(WithCaller(context.Background(), ""))
	assert.False(t, ok, "empty caller is not authenticated")
}

func TestNow(t *testing.T) {
	pinned := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, pinned, Now(WithTime(context.Background(), pinned)))
	assert.False(t, Now(context.Background()).IsZero())
}
