package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"circulight/internal/validation/ledger"
	"circulight/pkg/platform/sentinel"
)

// Schema creates the table used by PostgresHistory.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_history (
	fingerprint TEXT PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL
)`

// PostgresHistory persists ledgered fingerprints in PostgreSQL.
type PostgresHistory struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresHistoryOption configures a PostgresHistory instance.
type PostgresHistoryOption func(*PostgresHistory)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresHistoryOption {
	return func(h *PostgresHistory) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewPostgresHistory constructs a PostgreSQL-backed history.
func NewPostgresHistory(db *sql.DB, opts ...PostgresHistoryOption) *PostgresHistory {
	h := &PostgresHistory{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Migrate creates the history table if it does not exist.
func (h *PostgresHistory) Migrate(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate ledger history: %w", err)
	}
	return nil
}

// Existing returns the keys whose fingerprints are already recorded.
func (h *PostgresHistory) Existing(ctx context.Context, keys []ledger.Key) ([]ledger.Key, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	byFingerprint := make(map[string]ledger.Key, len(keys))
	fingerprints := make([]string, 0, len(keys))
	for _, k := range keys {
		fp := k.Fingerprint()
		if _, ok := byFingerprint[fp]; ok {
			continue
		}
		byFingerprint[fp] = k
		fingerprints = append(fingerprints, fp)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT fingerprint FROM ledger_history WHERE fingerprint = ANY($1)`,
		pq.Array(fingerprints),
	)
	if err != nil {
		return nil, fmt.Errorf("check ledger history: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	present := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan ledger history: %w", err)
		}
		present[fp] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ledger history: %w: %w", sentinel.ErrUnavailable, err)
	}

	// Preserve the caller's key order.
	var found []ledger.Key
	for _, fp := range fingerprints {
		if _, ok := present[fp]; ok {
			found = append(found, byFingerprint[fp])
		}
	}
	return found, nil
}

// Append records keys with a single batch INSERT using unnest.
func (h *PostgresHistory) Append(ctx context.Context, keys []ledger.Key) error {
	if len(keys) == 0 {
		return nil
	}

	fingerprints := make([]string, len(keys))
	for i, k := range keys {
		fingerprints[i] = k.Fingerprint()
	}

	query := `
		INSERT INTO ledger_history (fingerprint, recorded_at)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (fingerprint) DO NOTHING
	`
	if _, err := h.db.ExecContext(ctx, query, pq.Array(fingerprints), h.clock()); err != nil {
		return fmt.Errorf("append ledger history: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
