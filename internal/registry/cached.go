package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"circulight/internal/validation/models"
)

// Cached serves a snapshot of an underlying Source until it is older than
// the TTL. Concurrent callers during a refresh share one Load.
type Cached struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	snapshot []models.Reference
	loadedAt time.Time
}

// CachedOption configures a Cached source.
type CachedOption func(*Cached)

// WithCacheClock overrides the clock used for expiry.
func WithCacheClock(now func() time.Time) CachedOption {
	return func(c *Cached) {
		c.now = now
	}
}

// NewCached wraps source with a TTL snapshot cache.
func NewCached(source Source, ttl time.Duration, opts ...CachedOption) (*Cached, error) {
	if source == nil {
		return nil, errors.New("registry source is required")
	}
	if ttl <= 0 {
		return nil, errors.New("registry cache ttl must be positive")
	}
	c := &Cached{source: source, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load returns the cached snapshot, refreshing it when expired. A failed
// refresh leaves the previous snapshot in place for the next attempt but
// returns the error.
func (c *Cached) Load(ctx context.Context) ([]models.Reference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.snapshot, nil
	}

	refs, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []models.Reference{}
	}
	c.snapshot = refs
	c.loadedAt = c.now()
	return refs, nil
}

// Invalidate drops the snapshot so the next Load reads through.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}
