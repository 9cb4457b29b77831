package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"circulight/internal/validation"
	"circulight/internal/validation/ledger"
	"circulight/internal/validation/metrics"
	"circulight/internal/validation/models"
	id "circulight/pkg/domain"
	dErrors "circulight/pkg/domain-errors"
)

const tracerName = "circulight/validation"

type RegistrySource interface {
	Load(ctx context.Context) ([]models.Reference, error)
}

type HistoryStore interface {
	Existing(ctx context.Context, keys []ledger.Key) ([]ledger.Key, error)
	Append(ctx context.Context, keys []ledger.Key) error
}

type Publisher interface {
	Publish(ctx context.Context, batchID id.BatchID, index int, result models.Result) error
}

// Service runs validation batches against a registry source, wiring in
// durable duplicate history, result publishing and observability around the
// pure engine.
type Service struct {
	engine      *validation.Engine
	registry    RegistrySource
	history     HistoryStore
	publisher   Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithHistory enables cross-batch duplicate detection.
func WithHistory(h HistoryStore) Option {
	return func(s *Service) {
		s.history = h
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithConcurrency bounds how many candidates are scored at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(engine *validation.Engine, registry RegistrySource, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("validation engine is required")
	}
	if registry == nil {
		return nil, errors.New("registry source is required")
	}
	s := &Service{
		engine:      engine,
		registry:    registry,
		tracer:      otel.Tracer(tracerName),
		concurrency: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", s.concurrency)
	}
	return s, nil
}

// ValidateBatch validates candidates in input order. Scoring runs in
// parallel; duplicate checks and ledger appends run sequentially afterwards,
// so results are identical to a sequential run. If ctx is cancelled before
// the batch completes, the context error is returned, no report is produced
// and history is left untouched.
func (s *Service) ValidateBatch(ctx context.Context, candidates []models.Candidate) (*models.BatchReport, error) {
	batchID := id.NewBatchID()
	ctx, span := s.tracer.Start(ctx, "validation.batch", trace.WithAttributes(
		attribute.String("batch.id", batchID.String()),
		attribute.Int("batch.size", len(candidates)),
	))
	defer span.End()

	started := s.now()

	refs, err := s.loadRegistry(ctx)
	if err != nil {
		return nil, s.fail(span, err)
	}

	session, err := s.seedSession(ctx, candidates)
	if err != nil {
		return nil, s.fail(span, err)
	}

	outcomes, err := s.score(ctx, candidates, refs)
	if err != nil {
		return nil, s.fail(span, err)
	}

	results := make([]models.Result, len(candidates))
	for i := range candidates {
		results[i] = s.engine.Decide(candidates[i], outcomes[i], session)
	}

	if err := s.recordHistory(ctx, session); err != nil {
		return nil, s.fail(span, err)
	}

	for i, r := range results {
		s.metrics.ObserveResult(r)
		s.publish(ctx, batchID, i, r)
	}

	finished := s.now()
	report := &models.BatchReport{
		BatchID:    batchID,
		StartedAt:  started,
		FinishedAt: finished,
		Results:    results,
		Summary:    models.Summarize(results),
	}

	s.metrics.ObserveBatchDuration(finished.Sub(started))
	span.SetAttributes(
		attribute.Int("batch.accepted", report.Summary.Accepted),
		attribute.Int("batch.duplicate", report.Summary.Duplicate),
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "validation batch completed",
			"batch_id", batchID.String(),
			"total", report.Summary.Total,
			"accepted", report.Summary.Accepted,
			"needs_review", report.Summary.NeedsReview,
			"rejected", report.Summary.Rejected,
			"duplicate", report.Summary.Duplicate,
			"registry_size", len(refs),
			"duration_ms", finished.Sub(started).Milliseconds(),
		)
	}
	return report, nil
}

// ValidateOne validates a single candidate against a fresh session ledger,
// seeded from history when configured. Single results are not published.
func (s *Service) ValidateOne(ctx context.Context, candidate *models.Candidate) (models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "validation.one")
	defer span.End()

	if candidate == nil {
		return models.Result{}, s.fail(span, validation.ErrNilCandidate)
	}

	refs, err := s.loadRegistry(ctx)
	if err != nil {
		return models.Result{}, s.fail(span, err)
	}
	session, err := s.seedSession(ctx, []models.Candidate{*candidate})
	if err != nil {
		return models.Result{}, s.fail(span, err)
	}

	result, err := s.engine.ValidateOne(candidate, refs, session)
	if err != nil {
		return models.Result{}, s.fail(span, err)
	}
	if err := s.recordHistory(ctx, session); err != nil {
		return models.Result{}, s.fail(span, err)
	}

	s.metrics.ObserveResult(result)
	span.SetAttributes(attribute.String("result.code", string(result.Code)))
	return result, nil
}

func (s *Service) loadRegistry(ctx context.Context) ([]models.Reference, error) {
	start := time.Now()
	refs, err := s.registry.Load(ctx)
	s.metrics.ObserveRegistryLoad(time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}
	return refs, nil
}

// seedSession returns a fresh session holding every candidate key already
// present in history.
func (s *Service) seedSession(ctx context.Context, candidates []models.Candidate) (*ledger.Session, error) {
	session := ledger.NewSession()
	if s.history == nil || len(candidates) == 0 {
		return session, nil
	}

	seen := make(map[ledger.Key]struct{}, len(candidates))
	keys := make([]ledger.Key, 0, len(candidates))
	for _, c := range candidates {
		k := ledger.KeyOf(c.Record)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	existing, err := s.history.Existing(ctx, keys)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger history")
	}
	session.Seed(existing)
	return session, nil
}

// score matches every candidate concurrently. Matching is side-effect free,
// so ordering is restored simply by writing into the candidate's slot.
func (s *Service) score(ctx context.Context, candidates []models.Candidate, refs []models.Reference) ([]models.MatchOutcome, error) {
	outcomes := make([]models.MatchOutcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.engine.Match(candidates[i], refs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) recordHistory(ctx context.Context, session *ledger.Session) error {
	if s.history == nil {
		return nil
	}
	appended := session.Appended()
	if len(appended) == 0 {
		return nil
	}
	if err := s.history.Append(ctx, appended); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ledger history")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, batchID id.BatchID, index int, r models.Result) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, batchID, index, r); err != nil {
		s.metrics.IncrementPublishFailures()
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to publish validation result",
				"batch_id", batchID.String(),
				"index", index,
				"error", err,
			)
		}
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
