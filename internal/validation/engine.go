// Package validation is the signature validation engine: it scores each
// candidate against a reference registry, flags in-run duplicates and
// classifies the result.
//
// The engine performs no I/O. The registry is an explicit read-only argument
// and the duplicate ledger is owned by the caller, so one Engine can serve
// any number of concurrent batches.
package validation

import (
	"errors"

	"circulight/internal/validation/classify"
	"circulight/internal/validation/ledger"
	"circulight/internal/validation/matcher"
	"circulight/internal/validation/models"
	dErrors "circulight/pkg/domain-errors"
)

// ErrNilCandidate is returned by ValidateOne for a nil candidate.
var ErrNilCandidate = dErrors.New(dErrors.CodeInvalidInput, "candidate is required")

// Engine runs match, duplicate check, classification and ledger append for
// each candidate, in that order.
type Engine struct {
	matcher *matcher.Matcher
	policy  ledger.Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithLedgerPolicy selects which classified records enter the session ledger.
func WithLedgerPolicy(p ledger.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// New constructs an Engine. The matcher is required.
func New(m *matcher.Matcher, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, errors.New("matcher is required")
	}
	e := &Engine{matcher: m, policy: ledger.PolicyNonDuplicate}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := ledger.ParsePolicy(string(e.policy)); err != nil {
		return nil, err
	}
	return e, nil
}

// Policy returns the configured ledger policy.
func (e *Engine) Policy() ledger.Policy {
	return e.policy
}

// Match scores a candidate against the registry. It has no side effects and
// may run concurrently for different candidates.
func (e *Engine) Match(c models.Candidate, registry []models.Reference) models.MatchOutcome {
	return e.matcher.FindBestMatch(c, registry)
}

// Decide classifies a scored candidate against the session ledger and, when
// the policy admits the outcome, ledgers it. The duplicate check and append
// happen under one write lock, so calls for records of the same batch must be
// made in input order to get input-order duplicate semantics.
func (e *Engine) Decide(c models.Candidate, outcome models.MatchOutcome, session *ledger.Session) models.Result {
	var result models.Result
	session.CheckAndRecord(ledger.KeyOf(c.Record), func(duplicate bool) bool {
		result = classify.Result(outcome, duplicate)
		return e.policy.Admits(result.Code)
	})
	return result
}

// ValidateOne validates a single candidate against the registry and the given
// session ledger. A nil session is treated as a fresh, empty ledger. Data
// irregularities in the candidate never produce an error.
func (e *Engine) ValidateOne(c *models.Candidate, registry []models.Reference, session *ledger.Session) (models.Result, error) {
	if c == nil {
		return models.Result{}, ErrNilCandidate
	}
	if session == nil {
		session = ledger.NewSession()
	}
	return e.Decide(*c, e.Match(*c, registry), session), nil
}

// ValidateBatch validates candidates in input order against a fresh session
// ledger. The result slice is index-aligned with the input.
func (e *Engine) ValidateBatch(candidates []models.Candidate, registry []models.Reference) ([]models.Result, error) {
	return e.ValidateBatchWithLedger(candidates, registry, ledger.NewSession())
}

// ValidateBatchWithLedger is ValidateBatch using a caller-supplied session,
// typically one seeded from durable history.
func (e *Engine) ValidateBatchWithLedger(candidates []models.Candidate, registry []models.Reference, session *ledger.Session) ([]models.Result, error) {
	if session == nil {
		session = ledger.NewSession()
	}
	results := make([]models.Result, len(candidates))
	for i := range candidates {
		results[i] = e.Decide(candidates[i], e.Match(candidates[i], registry), session)
	}
	return results, nil
}
