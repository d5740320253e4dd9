package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestNewValidatesConfig(t *testing.T) {
	noop := HandlerFunc(func(context.Context, *Message) error { return nil })
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"brokers", Config{GroupID: "g", Topics: []string{"t"}}, "kafka brokers not configured"},
		{"group", Config{Brokers: "b:9092", Topics: []string{"t"}}, "kafka consumer group ID not configured"},
		{"topics", Config{Brokers: "b:9092", GroupID: "g"}, "kafka consumer topics not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, noop, nil)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestToMessage(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     "credledger.events",
		Partition: 2,
		Offset:    41,
		Key:       []byte("0xabc"),
		Value:     []byte(`{}`),
		Headers:   []kgo.RecordHeader{{Key: "tx_hash", Value: []byte("0x01")}},
		Timestamp: at,
	})

	assert.Equal(t, "credledger.events", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "0x01", msg.Headers["tx_hash"])
	assert.Equal(t, at, msg.Timestamp)
}
