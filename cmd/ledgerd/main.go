// Command ledgerd hosts the authoritative ledger: it deploys the contract
// suite on an in-process chain, replays the Postgres journal when one is
// configured, streams receipts to Kafka and RabbitMQ, and serves the ledger RPC API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/devnet"
	"credledger/internal/ledger/events"
	"credledger/internal/ledger/journal"
	"credledger/internal/ledger/rpc"
	"credledger/internal/platform/amqp"
	"credledger/internal/platform/config"
	"credledger/internal/platform/database"
	"credledger/internal/platform/health"
	"credledger/internal/platform/kafka/producer"
	"credledger/internal/platform/logger"
	"credledger/internal/platform/metrics"
	"credledger/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "ledgerd"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ledgerd stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("ledgerd stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	metrics.RecordBuildInfo("ledgerd", health.Version)
	checks := health.New(cfg.Environment)

	deployer, err := domain.ParseAddress(cfg.Ledger.Deployer)
	if err != nil {
		return fmt.Errorf("DEPLOYER_ADDRESS: %w", err)
	}

	opts := []chain.Option{chain.WithLogger(log)}
	sinks := events.Fanout{events.NewLogSink(log)}

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // process exit
	var j journal.Journal
	if pool != nil {
		if err := database.Migrate(ctx, pool.DB()); err != nil {
			return err
		}
		j = journal.NewPostgres(pool.DB())
		opts = append(opts, chain.WithJournal(j))
		checks.RegisterCheck("postgres", pool.Health)
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         5,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return err
		}
		defer p.Close(10 * time.Second)
		sinks = append(sinks, events.NewKafkaSink(p, cfg.Kafka.EventsTopic))
		checks.RegisterCheck("kafka", p.Health)
	}
	if cfg.AMQP.URL != "" {
		pub, err := amqp.New(amqp.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange}, log)
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck // process exit
		sinks = append(sinks, events.NewAMQPSink(pub))
		checks.RegisterCheck("amqp", pub.Health)
	}
	opts = append(opts, chain.WithEventSink(sinks))

	net, err := devnet.NewNet(ctx, devnet.Config{
		Deployer:    deployer,
		Supply:      cfg.Ledger.Supply,
		RequestCost: cfg.Ledger.RequestCost,
	}, opts...)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := net.Chain.Close(flushCtx); err != nil {
			log.Warn("event outbox not drained", "error", err)
		}
	}()
	if j != nil {
		replayed, err := net.Chain.Replay(ctx, j)
		if err != nil {
			return fmt.Errorf("replay journal: %w", err)
		}
		log.Info("ledger state restored", "blocks", replayed, "height", net.Chain.Height())
	}
	log.Info("contracts deployed",
		"pubkeys", net.Addresses.PublicKeys.String(),
		"issuers", net.Addresses.Issuers.String(),
		"certificates", net.Addresses.Certificates.String(),
		"token", net.Addresses.Token.String(),
		"escrow", net.Addresses.Escrow.String(),
	)

	router := rpc.NewServer(net.Chain, rpc.WithServerLogger(log)).Router()
	checks.Register(router)
	router.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.Ledger.RPCAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving ledger rpc", "addr", cfg.Ledger.RPCAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
