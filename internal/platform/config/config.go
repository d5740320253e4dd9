package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP gateway configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string
	TokenTTL      time.Duration

	Ledger   Ledger
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	AMQP     AMQPConfig
	Limits   RateLimitConfig
}

// Ledger locates the ledger and its deployed contracts. An empty RPCURL
// means the gateway embeds its own devnet.
type Ledger struct {
	// RPCAddr is where ledgerd serves the RPC API.
	RPCAddr     string
	RPCURL      string
	RPCTimeout  time.Duration
	Deployer    string
	RequestCost uint64
	Supply      uint64
	Contracts   Contracts
}

// Contracts are the deployed contract addresses, as hex.
type Contracts struct {
	PublicKeys   string
	Issuers      string
	Certificates string
	Token        string
	Escrow       string
}

// Complete reports whether every contract address is known.
func (c Contracts) Complete() bool {
	return c.PublicKeys != "" && c.Issuers != "" && c.Certificates != "" && c.Token != "" && c.Escrow != ""
}

// DatabaseConfig is the optional Postgres connection backing the journal and
// the audit store.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis connection settings for the public-key cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig holds the chain event stream settings.
type KafkaConfig struct {
	Brokers       string
	EventsTopic   string
	ConsumerGroup string
}

// AMQPConfig is the optional RabbitMQ exchange ledgerd mirrors receipts to.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// RateLimitConfig caps authenticated writes per caller. Writes <= 0 disables it.
type RateLimitConfig struct {
	Writes int
	Window time.Duration
}

var TokenTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// dev default, override outside local runs
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envOr("CREDLEDGER_ADDR", ":8080"),
		Environment:   envOr("ENVIRONMENT", "development"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      durationOr("TOKEN_TTL", TokenTTL),
		Ledger: Ledger{
			RPCAddr:     envOr("LEDGER_RPC_ADDR", ":8545"),
			RPCURL:      strings.TrimRight(os.Getenv("LEDGER_RPC_URL"), "/"),
			RPCTimeout:  durationOr("LEDGER_RPC_TIMEOUT", 10*time.Second),
			Deployer:    envOr("DEPLOYER_ADDRESS", "0x00000000000000000000000000000000000000d0"),
			RequestCost: uintOr("ESCROW_REQUEST_COST", 10),
			Supply:      uintOr("TOKEN_SUPPLY", 1_000_000),
			Contracts: Contracts{
				PublicKeys:   os.Getenv("PUBKEYS_ADDRESS"),
				Issuers:      os.Getenv("ISSUERS_ADDRESS"),
				Certificates: os.Getenv("CERTIFICATES_ADDRESS"),
				Token:        os.Getenv("TOKEN_ADDRESS"),
				Escrow:       os.Getenv("ESCROW_ADDRESS"),
			},
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     int(uintOr("REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(uintOr("REDIS_MIN_IDLE_CONNS", 2)),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     durationOr("PUBKEY_CACHE_TTL", time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:       os.Getenv("KAFKA_BROKERS"),
			EventsTopic:   envOr("KAFKA_EVENTS_TOPIC", "credledger.events"),
			ConsumerGroup: envOr("KAFKA_CONSUMER_GROUP", "credledger-gateway"),
		},
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: envOr("AMQP_EXCHANGE", "credledger.events"),
		},
		Limits: RateLimitConfig{
			Writes: int(uintOr("RATE_LIMIT_WRITES", 120)),
			Window: durationOr("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Unparseable values fall back silently, matching how TOKEN_TTL always behaved.
func durationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func uintOr(key string, fallback uint64) uint64 {
	if n, err := strconv.ParseUint(os.Getenv(key), 10, 64); err == nil {
		return n
	}
	return fallback
}
