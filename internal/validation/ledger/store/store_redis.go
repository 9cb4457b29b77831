package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"circulight/internal/validation/ledger"
	"circulight/pkg/platform/sentinel"
)

const (
	// Redis key prefix for ledgered submission fingerprints
	ledgerKeyPrefix = "ledger:fp:"
)

// RedisHistory is a Redis-backed ledger.History for deployments where several
// validator instances must share cross-batch duplicate state.
type RedisHistory struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisHistoryOption configures a RedisHistory instance.
type RedisHistoryOption func(*RedisHistory)

// WithRedisTTL expires ledgered keys after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisHistoryOption {
	return func(h *RedisHistory) {
		h.ttl = ttl
	}
}

// NewRedisHistory constructs a Redis-backed history.
func NewRedisHistory(client *redis.Client, opts ...RedisHistoryOption) *RedisHistory {
	h := &RedisHistory{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Existing checks every key with one pipelined round trip.
func (h *RedisHistory) Existing(ctx context.Context, keys []ledger.Key) ([]ledger.Key, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := h.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Exists(ctx, ledgerKeyPrefix+k.Fingerprint())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check ledger history: %w: %w", sentinel.ErrUnavailable, err)
	}

	var found []ledger.Key
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			found = append(found, keys[i])
		}
	}
	return found, nil
}

// Append stores a marker per key. Uses a pipeline for batch writes.
func (h *RedisHistory) Append(ctx context.Context, keys []ledger.Key) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := h.client.Pipeline()
	for _, k := range keys {
		// The key existence is what matters
		pipe.Set(ctx, ledgerKeyPrefix+k.Fingerprint(), "1", h.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append ledger history: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
