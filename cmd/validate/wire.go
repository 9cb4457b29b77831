package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"circulight/internal/platform/config"
	platformredis "circulight/internal/platform/redis"
	"circulight/internal/publisher"
	kafkapub "circulight/internal/publisher/kafka"
	"circulight/internal/registry"
	registrystore "circulight/internal/registry/store"
	"circulight/internal/validation/ledger"
	ledgerstore "circulight/internal/validation/ledger/store"
	"circulight/internal/validation/metrics"
	"circulight/internal/validation/service"
	"circulight/pkg/platform/circuit"
)

// closers runs cleanups in reverse registration order.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func buildService(ctx context.Context, cfg config.Config, migrate bool, log *slog.Logger, m *metrics.Metrics) (*service.Service, func(), error) {
	var cleanup closers
	fail := func(err error) (*service.Service, func(), error) {
		cleanup.close()
		return nil, nil, err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fail(fmt.Errorf("build engine: %w", err))
	}

	source, err := buildRegistry(ctx, cfg, migrate, &cleanup)
	if err != nil {
		return fail(err)
	}

	opts := serviceOptions(cfg, log, m)

	history, err := buildHistory(ctx, cfg, migrate, &cleanup)
	if err != nil {
		return fail(err)
	}
	if history != nil {
		opts = append(opts, service.WithHistory(history))
	}

	if cfg.Kafka.Enabled() {
		pub, err := kafkapub.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, kafkapub.WithLogger(log))
		if err != nil {
			return fail(err)
		}
		cleanup.add(pub.Close)
		if migrate {
			if err := pub.EnsureTopic(ctx, 1, 1); err != nil {
				return fail(err)
			}
		}
		breaker := circuit.New("kafka",
			circuit.WithFailureThreshold(cfg.Kafka.BreakerThreshold),
			circuit.WithCooldown(cfg.Kafka.BreakerCooldown),
		)
		guarded, err := publisher.NewGuarded(pub, breaker, publisher.WithLogger(log))
		if err != nil {
			return fail(err)
		}
		opts = append(opts, service.WithPublisher(guarded))
	}

	svc, err := service.New(engine, source, opts...)
	if err != nil {
		return fail(err)
	}
	return svc, cleanup.close, nil
}

func buildRegistry(ctx context.Context, cfg config.Config, migrate bool, cleanup *closers) (service.RegistrySource, error) {
	var source registry.Source
	switch cfg.Registry.Source {
	case config.RegistrySourceFile:
		f, err := registry.NewFile(cfg.Registry.File)
		if err != nil {
			return nil, err
		}
		source = f
	case config.RegistrySourcePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect registry database: %w", err)
		}
		cleanup.add(pool.Close)
		pg, err := registrystore.NewPostgresSource(pool, registrystore.WithPageSize(cfg.Registry.PageSize))
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		source = pg
	default:
		return nil, fmt.Errorf("unknown registry source %q", cfg.Registry.Source)
	}

	if cfg.Registry.CacheTTL > 0 {
		return registry.NewCached(source, cfg.Registry.CacheTTL)
	}
	return source, nil
}

func buildHistory(ctx context.Context, cfg config.Config, migrate bool, cleanup *closers) (service.HistoryStore, error) {
	if !cfg.Ledger.Durable() {
		return nil, nil
	}
	switch cfg.Ledger.Backend {
	case config.LedgerBackendMemory:
		return ledger.NewMemoryHistory(), nil
	case config.LedgerBackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis ledger backend requires REDIS_URL")
		}
		cleanup.add(func() { _ = client.Close() })
		return ledgerstore.NewRedisHistory(client.Client, ledgerstore.WithRedisTTL(cfg.Ledger.TTL)), nil
	case config.LedgerBackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open ledger database: %w", err)
		}
		cleanup.add(func() { _ = db.Close() })
		h := ledgerstore.NewPostgresHistory(db)
		if migrate {
			if err := h.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
