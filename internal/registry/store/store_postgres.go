package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"circulight/internal/validation/models"
	"circulight/pkg/platform/sentinel"
)

// Schema creates the registry table read by PostgresSource. position fixes
// the registry order used for tie-breaking.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_records (
	position BIGSERIAL PRIMARY KEY,
	id       TEXT NOT NULL DEFAULT '',
	name     TEXT NOT NULL DEFAULT '',
	address  TEXT NOT NULL DEFAULT '',
	city     TEXT NOT NULL DEFAULT '',
	zip      TEXT NOT NULL DEFAULT ''
)`

const pageQuery = `
SELECT position, id, name, address, city, zip
FROM registry_records
WHERE position > $1
ORDER BY position
LIMIT $2`

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 500

// PostgresSource reads the registry from PostgreSQL in keyset-paged order.
type PostgresSource struct {
	pool     *pgxpool.Pool
	pageSize int
}

// Option configures a PostgresSource.
type Option func(*PostgresSource)

// WithPageSize sets the number of rows fetched per round trip.
func WithPageSize(n int) Option {
	return func(s *PostgresSource) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewPostgresSource constructs a PostgreSQL-backed registry source.
func NewPostgresSource(pool *pgxpool.Pool, opts ...Option) (*PostgresSource, error) {
	if pool == nil {
		return nil, errors.New("pgx pool is required")
	}
	s := &PostgresSource{pool: pool, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate applies Schema.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate registry schema: %w", err)
	}
	return nil
}

// Load reads every row ordered by position, one page at a time, stopping at
// the first short page.
func (s *PostgresSource) Load(ctx context.Context) ([]models.Reference, error) {
	refs := []models.Reference{}
	var after int64
	for {
		page, last, err := s.page(ctx, after)
		if err != nil {
			return nil, err
		}
		refs = append(refs, page...)
		if len(page) < s.pageSize {
			return refs, nil
		}
		after = last
	}
}

func (s *PostgresSource) page(ctx context.Context, after int64) ([]models.Reference, int64, error) {
	rows, err := s.pool.Query(ctx, pageQuery, after, s.pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query registry page: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	page := make([]models.Reference, 0, s.pageSize)
	last := after
	for rows.Next() {
		var ref models.Reference
		if err := rows.Scan(&last, &ref.ID, &ref.Name, &ref.Address, &ref.City, &ref.PostalCode); err != nil {
			return nil, 0, fmt.Errorf("scan registry row: %w", err)
		}
		page = append(page, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read registry page: %w: %w", sentinel.ErrUnavailable, err)
	}
	return page, last, nil
}

// Insert appends references in order. Used to seed a registry from a file.
func (s *PostgresSource) Insert(ctx context.Context, refs []models.Reference) error {
	if len(refs) == 0 {
		return nil
	}
	rows := make([][]any, len(refs))
	for i, r := range refs {
		rows[i] = []any{r.ID, r.Name, r.Address, r.City, r.PostalCode}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"registry_records"},
		[]string{"id", "name", "address", "city", "zip"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert registry records: %w", err)
	}
	return nil
}
