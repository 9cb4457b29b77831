//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"circulight/internal/validation/ledger"
	"circulight/internal/validation/ledger/store"
	"circulight/pkg/testutil/containers"
)

var (
	johnSmith = ledger.Key{Name: "john smith", Address: "123 main st"}
	janeDoe   = ledger.Key{Name: "jane doe", Address: "456 oak ave"}
	maryW     = ledger.Key{Name: "mary williams", Address: "321 pine dr"}
)

// historyContract runs the same behavioural checks against any History.
type historyContract struct {
	suite.Suite
	history ledger.History
	reset   func(ctx context.Context) error
}

func (s *historyContract) SetupTest() {
	s.Require().NoError(s.reset(context.Background()))
}

func (s *historyContract) TestAppendThenExisting() {
	ctx := context.Background()

	found, err := s.history.Existing(ctx, []ledger.Key{johnSmith, janeDoe})
	s.Require().NoError(err)
	s.Empty(found)

	s.Require().NoError(s.history.Append(ctx, []ledger.Key{johnSmith, maryW}))

	found, err = s.history.Existing(ctx, []ledger.Key{janeDoe, maryW, johnSmith})
	s.Require().NoError(err)
	s.Equal([]ledger.Key{maryW, johnSmith}, found)
}

func (s *historyContract) TestAppendIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.history.Append(ctx, []ledger.Key{johnSmith, johnSmith}))
	s.Require().NoError(s.history.Append(ctx, []ledger.Key{johnSmith}))

	found, err := s.history.Existing(ctx, []ledger.Key{johnSmith})
	s.Require().NoError(err)
	s.Len(found, 1)
}

func (s *historyContract) TestEmptyInputs() {
	ctx := context.Background()
	s.Require().NoError(s.history.Append(ctx, nil))
	found, err := s.history.Existing(ctx, nil)
	s.Require().NoError(err)
	s.Empty(found)
}

// TestConcurrentAppends verifies parallel batches appending the same key
// neither fail nor duplicate state.
func (s *historyContract) TestConcurrentAppends() {
	ctx := context.Background()
	const goroutines = 30

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.history.Append(ctx, []ledger.Key{janeDoe}); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	found, err := s.history.Existing(ctx, []ledger.Key{janeDoe})
	s.Require().NoError(err)
	s.Equal([]ledger.Key{janeDoe}, found)
}

type RedisHistorySuite struct {
	historyContract
}

func TestRedisHistorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)
	s := &RedisHistorySuite{}
	s.history = store.NewRedisHistory(rc.Client)
	s.reset = rc.FlushAll
	suite.Run(t, s)
}

func TestRedisHistoryTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	h := store.NewRedisHistory(rc.Client, store.WithRedisTTL(time.Second))

	if err := h.Append(ctx, []ledger.Key{johnSmith}); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)

	found, err := h.Existing(ctx, []ledger.Key{johnSmith})
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected key to expire, found %v", found)
	}
}

type PostgresHistorySuite struct {
	historyContract
}

func TestPostgresHistorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.NewPostgresContainer(t)
	h := store.NewPostgresHistory(pg.DB)
	if err := h.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := &PostgresHistorySuite{}
	s.history = h
	s.reset = func(ctx context.Context) error {
		return pg.TruncateTables(ctx, "ledger_history")
	}
	suite.Run(t, s)
}
