//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/chain/chaintest"
	"credledger/internal/ledger/devnet"
	"credledger/internal/ledger/events"
	"credledger/internal/platform/kafka/consumer"
	"credledger/internal/platform/kafka/producer"
	"credledger/pkg/testutil"
	"credledger/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	p, err := producer.New(producer.Config{Brokers: s.kafka.Brokers, Retries: 3, DeliveryTimeout: 10 * time.Second}, nil)
	s.Require().NoError(err)
	s.producer = p
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(5 * time.Second)
	}
}

func (s *KafkaSinkSuite) TestChainReceiptsReachTheTopic() {
	ctx := context.Background()
	topic := "credledger-events-sink"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))

	owner := testutil.TestAddresses.Owner
	net, err := devnet.NewNet(ctx, devnet.Config{Deployer: owner},
		chain.WithEventSink(events.NewKafkaSink(s.producer, topic)))
	s.Require().NoError(err)
	defer func() { s.NoError(net.Chain.Close(ctx)) }()
	issuer := testutil.TestAddresses.Issuer
	receipt := chaintest.MustSubmit(s.T(), net.Chain, owner, net.Addresses.Issuers, protocol.MethodAddIssuer, issuer)

	record, err := s.kafka.WaitForRecord(ctx, topic, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == net.Addresses.Issuers.Key()
	})
	s.Require().NoError(err)
	s.Require().NotNil(record, "receipt never reached the topic")

	var got ledger.Receipt
	s.Require().NoError(json.Unmarshal(record.Value, &got))
	s.Equal(receipt.TxHash, got.TxHash)
	s.Equal(protocol.EventIssuerStatusChanged, got.Events[0].Name)
}

func (s *KafkaSinkSuite) TestDispatcherConsumesPublishedReceipts() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	topic := "credledger-events-dispatch"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))

	sent := &ledger.Receipt{TxHash: "0xfeed", Contract: testutil.TestAddresses.Other, Events: []ledger.Event{{Name: "Ping"}}}
	s.Require().NoError(events.NewKafkaSink(s.producer, topic).Publish(ctx, sent))

	var (
		mu  sync.Mutex
		got []*ledger.Receipt
	)
	c, err := consumer.New(consumer.Config{Brokers: s.kafka.Brokers, GroupID: "dispatch-test", Topics: []string{topic}},
		events.NewDispatcher(events.SinkFunc(func(_ context.Context, r *ledger.Receipt) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, r)
			return nil
		})), nil)
	s.Require().NoError(err)
	go func() { _ = c.Run(ctx) }()

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].TxHash == sent.TxHash
	}, 15*time.Second, 100*time.Millisecond)
}
