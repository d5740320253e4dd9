// Package events fans committed ledger receipts out to observers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"credledger/internal/ledger"
	"credledger/internal/platform/kafka/consumer"
	"credledger/internal/platform/kafka/producer"
)

// Sink receives committed receipts. It matches chain.EventSink.
type Sink interface {
	Publish(ctx context.Context, receipt *ledger.Receipt) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, receipt *ledger.Receipt) error

func (f SinkFunc) Publish(ctx context.Context, receipt *ledger.Receipt) error { return f(ctx, receipt) }

// LogSink writes one log line per contract event.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, receipt *ledger.Receipt) error {
	for _, ev := range receipt.Events {
		attrs := []any{
			"tx_hash", receipt.TxHash,
			"block", receipt.Block,
			"contract", ev.Contract,
			"event", ev.Name,
		}
		for k, v := range ev.Attributes {
			attrs = append(attrs, k, v)
		}
		s.logger.InfoContext(ctx, "ledger event", attrs...)
	}
	return nil
}

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes each receipt as one JSON record keyed by contract
// address, so a contract's transactions stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, receipt *ledger.Receipt) error {
	if len(receipt.Events) == 0 {
		return nil
	}
	value, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt %s: %w", receipt.TxHash, err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(receipt.Contract.Key()),
		Value: value,
		Headers: map[string]string{
			"tx_hash": string(receipt.TxHash),
			"method":  receipt.Method,
			"block":   strconv.FormatUint(receipt.Block, 10),
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish receipt %s: %w", receipt.TxHash, err)
	}
	return nil
}

// Broker is the subset of the AMQP publisher the sink needs.
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error
}

// AMQPSink publishes each receipt to a topic exchange under
// "<contract>.<method>", so subscribers can bind to one contract or one call.
type AMQPSink struct {
	broker Broker
}

func NewAMQPSink(b Broker) *AMQPSink {
	return &AMQPSink{broker: b}
}

func (s *AMQPSink) Publish(ctx context.Context, receipt *ledger.Receipt) error {
	if len(receipt.Events) == 0 {
		return nil
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt %s: %w", receipt.TxHash, err)
	}
	key := RoutingKey(receipt)
	headers := map[string]string{
		"tx_hash": string(receipt.TxHash),
		"block":   strconv.FormatUint(receipt.Block, 10),
	}
	if err := s.broker.Publish(ctx, key, body, headers); err != nil {
		return fmt.Errorf("publish receipt %s: %w", receipt.TxHash, err)
	}
	return nil
}

// RoutingKey is the AMQP topic for a receipt. Dots in the method name would
// split the topic, so they are replaced.
func RoutingKey(receipt *ledger.Receipt) string {
	return receipt.Contract.Key() + "." + strings.ReplaceAll(receipt.Method, ".", "_")
}

// Fanout publishes to every sink and returns the first failure after trying
// all of them.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, receipt *ledger.Receipt) error {
	var first error
	for _, sink := range f {
		if err := sink.Publish(ctx, receipt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Dispatcher decodes receipts published by KafkaSink and hands them to a
// Sink. It is the consumer side of the event stream.
type Dispatcher struct {
	sink Sink
}

func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// Handle implements consumer.Handler.
func (d *Dispatcher) Handle(ctx context.Context, msg *consumer.Message) error {
	var receipt ledger.Receipt
	if err := json.Unmarshal(msg.Value, &receipt); err != nil {
		// a record that never decodes would block its partition forever
		return nil
	}
	return d.sink.Publish(ctx, &receipt)
}
