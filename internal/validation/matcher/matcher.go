// Package matcher scans a reference registry for the best match to a
// candidate record.
//
// The scan always visits every reference. Ties on composite score resolve to
// the reference that appears first in registry order, so sources must supply
// a stable order.
package matcher

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"circulight/internal/validation/models"
	"circulight/internal/validation/scoring"
)

const (
	// MaxSuggestions caps the near-miss hints attached to one outcome.
	MaxSuggestions = 3
	// SuggestionFloor is the exclusive lower bound on name similarity for a
	// reference to be suggested. Identical names (similarity 1) are never
	// suggested.
	SuggestionFloor = 0.7
)

// Matcher finds the best registry match for a candidate.
type Matcher struct {
	weigher   *scoring.Weigher
	workers   int
	threshold int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithParallelism scores registries of at least threshold records across
// workers goroutines. Results are identical to the sequential scan.
func WithParallelism(workers, threshold int) Option {
	return func(m *Matcher) {
		m.workers = workers
		m.threshold = threshold
	}
}

// New constructs a Matcher. The weigher is required.
func New(weigher *scoring.Weigher, opts ...Option) (*Matcher, error) {
	if weigher == nil {
		return nil, errors.New("weigher is required")
	}
	m := &Matcher{weigher: weigher, workers: 1}
	for _, opt := range opts {
		opt(m)
	}
	if m.workers < 1 {
		return nil, fmt.Errorf("match workers must be at least 1, got %d", m.workers)
	}
	return m, nil
}

// FindBestMatch scores the candidate against every reference and returns the
// highest-scoring one. An empty registry, or one where every composite is 0,
// yields no match and score 0.
func (m *Matcher) FindBestMatch(c models.Candidate, registry []models.Reference) models.MatchOutcome {
	if m.parallel(len(registry)) {
		return m.scanParallel(c, registry).outcome(registry)
	}
	return m.scan(c, registry, 0).outcome(registry)
}

func (m *Matcher) parallel(n int) bool {
	return m.workers > 1 && n > 1 && n >= m.threshold
}

// partial is the best match and suggestions found over one contiguous
// registry range.
type partial struct {
	best        int
	score       float64
	suggestions []string
}

func (p partial) outcome(registry []models.Reference) models.MatchOutcome {
	out := models.MatchOutcome{Score: p.score}
	if p.best >= 0 {
		ref := registry[p.best]
		out.Matched = &ref
	}
	if len(p.suggestions) > 0 {
		out.Suggestions = p.suggestions
	}
	return out
}

// scan covers refs, whose first element sits at offset in the full registry.
func (m *Matcher) scan(c models.Candidate, refs []models.Reference, offset int) partial {
	p := partial{best: -1}
	for i, ref := range refs {
		fields := m.weigher.Fields(c, ref)
		score := m.weigher.Combine(fields)

		// Strict > keeps the earliest reference on ties.
		if score > p.score {
			p.score = score
			p.best = offset + i
		}

		if len(p.suggestions) < MaxSuggestions && fields.Name > SuggestionFloor && fields.Name < 1 {
			p.suggestions = append(p.suggestions, Suggestion(ref))
		}
	}
	return p
}

func (m *Matcher) scanParallel(c models.Candidate, registry []models.Reference) partial {
	chunk := (len(registry) + m.workers - 1) / m.workers
	parts := make([]partial, 0, m.workers)
	for start := 0; start < len(registry); start += chunk {
		parts = append(parts, partial{best: -1})
	}

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i := range parts {
		start := i * chunk
		end := min(start+chunk, len(registry))
		g.Go(func() error {
			parts[i] = m.scan(c, registry[start:end], start)
			return nil
		})
	}
	_ = g.Wait()

	return merge(parts)
}

// merge folds chunk results in registry order, so a later chunk only wins
// with a strictly higher score and suggestions keep registry order.
func merge(parts []partial) partial {
	out := partial{best: -1}
	for _, p := range parts {
		if p.best >= 0 && p.score > out.score {
			out.score = p.score
			out.best = p.best
		}
		for _, s := range p.suggestions {
			if len(out.suggestions) == MaxSuggestions {
				break
			}
			out.suggestions = append(out.suggestions, s)
		}
	}
	return out
}

// Suggestion formats the near-miss hint for a reference, using the name as
// stored in the registry.
func Suggestion(ref models.Reference) string {
	return fmt.Sprintf("did you mean %q?", ref.Name)
}
