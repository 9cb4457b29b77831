package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"circulight/internal/validation/ledger"
	textutil "circulight/pkg/platform/strings"
)

// Registry source kinds.
const (
	RegistrySourceFile     = "file"
	RegistrySourcePostgres = "postgres"
)

// Ledger scopes and backends.
const (
	LedgerScopeSession = "session"
	LedgerScopeDurable = "durable"

	LedgerBackendMemory   = "memory"
	LedgerBackendRedis    = "redis"
	LedgerBackendPostgres = "postgres"
)

// Config is the full runtime configuration for a validation run.
type Config struct {
	Log      LogConfig
	Registry RegistryConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Matching MatchingConfig

	DatabaseURL string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// RegistryConfig describes where reference records come from.
type RegistryConfig struct {
	Source   string
	File     string
	PageSize int
	// CacheTTL of zero disables snapshot caching.
	CacheTTL time.Duration
}

// LedgerConfig controls duplicate detection scope.
type LedgerConfig struct {
	Scope   string
	Backend string
	Policy  ledger.Policy
	// TTL bounds how long durable history entries live. Zero keeps them forever.
	TTL time.Duration
}

// Durable reports whether duplicates are checked against cross-batch history.
func (c LedgerConfig) Durable() bool {
	return c.Scope == LedgerScopeDurable
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables result publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// BreakerThreshold consecutive publish failures suspend publishing for
	// BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Enabled reports whether a publisher should be wired.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// MatchingConfig tunes concurrency of the validation engine.
type MatchingConfig struct {
	// Concurrency bounds how many candidates of a batch are scored at once.
	Concurrency int
	// Workers and ParallelThreshold control chunked scans of large registries.
	Workers           int
	ParallelThreshold int
}

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed numeric or duration values are reported rather than defaulted.
func FromEnv() (Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		errs = append(errs, err)
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		errs = append(errs, err)
		return v
	}

	policy, err := ledger.ParsePolicy(os.Getenv("LEDGER_POLICY"))
	errs = append(errs, err)

	cfg := Config{
		Log: LogConfig{
			Level:  envOr("CIRCULIGHT_LOG_LEVEL", "info"),
			Format: envOr("CIRCULIGHT_LOG_FORMAT", "json"),
		},
		Registry: RegistryConfig{
			Source:   envOr("REGISTRY_SOURCE", RegistrySourceFile),
			File:     os.Getenv("REGISTRY_FILE"),
			PageSize: intVar("REGISTRY_PAGE_SIZE", 500),
			CacheTTL: durVar("REGISTRY_CACHE_TTL", 5*time.Minute),
		},
		Ledger: LedgerConfig{
			Scope:   envOr("LEDGER_SCOPE", LedgerScopeSession),
			Backend: envOr("LEDGER_BACKEND", LedgerBackendMemory),
			Policy:  policy,
			TTL:     durVar("LEDGER_TTL", 0),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: textutil.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			Topic:   envOr("KAFKA_TOPIC", "circulight.validation.results"),

			BreakerThreshold: intVar("PUBLISH_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  durVar("PUBLISH_BREAKER_COOLDOWN", 30*time.Second),
		},
		Matching: MatchingConfig{
			Concurrency:       intVar("VALIDATION_CONCURRENCY", 4),
			Workers:           intVar("MATCH_WORKERS", 1),
			ParallelThreshold: intVar("MATCH_PARALLEL_THRESHOLD", 5000),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and missing connection settings.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	switch c.Registry.Source {
	case RegistrySourceFile:
		if c.Registry.File == "" {
			errs = append(errs, errors.New("REGISTRY_FILE is required for file registry source"))
		}
	case RegistrySourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres registry source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown registry source %q", c.Registry.Source))
	}
	if c.Registry.PageSize < 1 {
		errs = append(errs, fmt.Errorf("registry page size must be positive, got %d", c.Registry.PageSize))
	}

	switch c.Ledger.Scope {
	case LedgerScopeSession, LedgerScopeDurable:
	default:
		errs = append(errs, fmt.Errorf("unknown ledger scope %q", c.Ledger.Scope))
	}
	switch c.Ledger.Backend {
	case LedgerBackendMemory:
	case LedgerBackendRedis:
		if c.Ledger.Durable() && c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for redis ledger backend"))
		}
	case LedgerBackendPostgres:
		if c.Ledger.Durable() && c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres ledger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	if c.Matching.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("validation concurrency must be at least 1, got %d", c.Matching.Concurrency))
	}
	if c.Matching.Workers < 1 {
		errs = append(errs, fmt.Errorf("match workers must be at least 1, got %d", c.Matching.Workers))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
