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

	"credledger/internal/audit"
	identitystore "credledger/internal/identity/store"
	jwttoken "credledger/internal/jwt_token"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/internal/ledger/devnet"
	"credledger/internal/ledger/events"
	"credledger/internal/ledger/rpc"
	"credledger/internal/ledger/tracer"
	"credledger/internal/platform/config"
	"credledger/internal/platform/database"
	"credledger/internal/platform/health"
	"credledger/internal/platform/kafka/consumer"
	"credledger/internal/platform/logger"
	"credledger/internal/platform/metrics"
	"credledger/internal/platform/redis"
	ratelimit "credledger/internal/ratelimit/middleware"
	"credledger/internal/ratelimit/store/bucket"
	httptransport "credledger/internal/transport/http"
	"credledger/pkg/domain"
	"credledger/pkg/platform/middleware/auth"
	"credledger/pkg/platform/middleware/request"
)

const (
	tokenIssuer   = "credledger"
	tokenAudience = "credledger-api"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "gateway"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	metrics.RecordBuildInfo("gateway", health.Version)
	checks := health.New(cfg.Environment)

	client, contracts, err := connectLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return err
	}
	if embedded, ok := client.(*chain.Chain); ok {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Close(flushCtx); err != nil {
				log.Warn("event outbox not drained", "error", err)
			}
		}()
	}
	checks.RegisterCheck("ledger", func(ctx context.Context) error {
		_, err := client.Describe(ctx, contracts.Issuers)
		return err
	})

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // process exit
	var auditStore audit.Store = audit.NewInMemoryStore()
	if pool != nil {
		if err := database.Migrate(ctx, pool.DB()); err != nil {
			return err
		}
		auditStore = audit.NewPostgresStore(pool.DB())
		checks.RegisterCheck("postgres", pool.Health)
	}
	auditor := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(1024), audit.WithPublisherLogger(log))
	defer auditor.Close()

	deps := httptransport.Deps{
		Ledger:    client,
		Contracts: contracts,
		Logger:    log,
		Tracer:    tracer.NewOTel(),
		Auditor:   auditor,
	}

	g, ctx := errgroup.WithContext(ctx)

	var limitStore ratelimit.Store = bucket.NewInMemoryBucketStore()
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck // process exit
		deps.PubKeyCache = identitystore.NewRedisCache(rdb, cfg.Redis.CacheTTL)
		limitStore = bucket.NewRedisBucketStore(rdb)
		checks.RegisterCheck("redis", rdb.Health)
		g.Go(func() error {
			rdb.RecordPoolStats(ctx, 15*time.Second)
			return nil
		})
	} else {
		deps.PubKeyCache = identitystore.NewInMemoryCache()
	}

	services := httptransport.NewServices(deps)

	if cfg.Kafka.Brokers != "" {
		warmer := events.NewDispatcher(events.SinkFunc(services.Identity.WarmFromReceipt))
		c, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroup,
			Topics:  []string{cfg.Kafka.EventsTopic},
		}, warmer, log)
		if err != nil {
			return err
		}
		checks.RegisterCheck("kafka", c.Health)
		g.Go(func() error { return c.Run(ctx) })
	}

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience, cfg.TokenTTL)
	jwt.SetEnv(cfg.Environment)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:        log,
		RequireCaller: auth.RequireCaller(jwttoken.NewJWTServiceAdapter(jwt), log),
		WriteLimiter:  ratelimit.New(limitStore, cfg.Limits.Writes, cfg.Limits.Window, log).PerCaller,
		Metrics:       request.NewMetrics(),
		Health:        checks,
	}, services.Handlers(log)...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr, "ledger_rpc", cfg.Ledger.RPCURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connectLedger dials the remote ledger when LEDGER_RPC_URL is set and
// otherwise boots an embedded devnet.
func connectLedger(ctx context.Context, cfg config.Ledger, log *slog.Logger) (ledger.Client, devnet.Addresses, error) {
	deployer, err := domain.ParseAddress(cfg.Deployer)
	if err != nil {
		return nil, devnet.Addresses{}, fmt.Errorf("DEPLOYER_ADDRESS: %w", err)
	}

	if cfg.RPCURL == "" {
		net, err := devnet.NewNet(ctx, devnet.Config{
			Deployer:    deployer,
			Supply:      cfg.Supply,
			RequestCost: cfg.RequestCost,
		}, chain.WithLogger(log), chain.WithEventSink(events.NewLogSink(log)))
		if err != nil {
			return nil, devnet.Addresses{}, err
		}
		log.Info("embedded devnet deployed", "deployer", deployer.String(), "escrow", net.Addresses.Escrow.String())
		return net.Chain, net.Addresses, nil
	}

	contracts := devnet.DeriveAddresses(deployer)
	if cfg.Contracts.Complete() {
		contracts, err = parseContracts(cfg.Contracts)
		if err != nil {
			return nil, devnet.Addresses{}, err
		}
	}
	return rpc.NewClient(cfg.RPCURL, cfg.RPCTimeout, rpc.WithClientLogger(log)), contracts, nil
}

func parseContracts(c config.Contracts) (devnet.Addresses, error) {
	var out devnet.Addresses
	for _, f := range []struct {
		env string
		raw string
		dst *domain.Address
	}{
		{"PUBKEYS_ADDRESS", c.PublicKeys, &out.PublicKeys},
		{"ISSUERS_ADDRESS", c.Issuers, &out.Issuers},
		{"CERTIFICATES_ADDRESS", c.Certificates, &out.Certificates},
		{"TOKEN_ADDRESS", c.Token, &out.Token},
		{"ESCROW_ADDRESS", c.Escrow, &out.Escrow},
	} {
		a, err := domain.ParseAddress(f.raw)
		if err != nil {
			return devnet.Addresses{}, fmt.Errorf("%s: %w", f.env, err)
		}
		*f.dst = a
	}
	return out, nil
}
