// Package publisher holds transport-independent wrappers for result
// publishers.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circulight/internal/validation/models"
	id "circulight/pkg/domain"
	"circulight/pkg/platform/circuit"
	"circulight/pkg/platform/sentinel"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = fmt.Errorf("result publisher circuit open: %w", sentinel.ErrUnavailable)

type Publisher interface {
	Publish(ctx context.Context, batchID id.BatchID, index int, result models.Result) error
}

// Guarded drops results without calling the wrapped publisher while its
// circuit is open.
type Guarded struct {
	next    Publisher
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(*Guarded)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guarded) {
		g.logger = logger
	}
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Publisher, breaker *circuit.Breaker, opts ...Option) (*Guarded, error) {
	if next == nil {
		return nil, errors.New("publisher is required")
	}
	if breaker == nil {
		return nil, errors.New("circuit breaker is required")
	}
	g := &Guarded{next: next, breaker: breaker}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Publish forwards to the wrapped publisher unless the circuit is open.
func (g *Guarded) Publish(ctx context.Context, batchID id.BatchID, index int, result models.Result) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := g.next.Publish(ctx, batchID, index, result); err != nil {
		if g.breaker.RecordFailure() && g.logger != nil {
			g.logger.WarnContext(ctx, "result publishing suspended",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if g.breaker.RecordSuccess() && g.logger != nil {
		g.logger.InfoContext(ctx, "result publishing resumed", "breaker", g.breaker.Name())
	}
	return nil
}
