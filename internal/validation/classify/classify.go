// Package classify maps a match score and duplicate flag to an outcome code.
//
// This is pure domain logic - no I/O, no side effects.
package classify

import "circulight/internal/validation/models"

// Score thresholds, inclusive lower bounds.
const (
	AcceptThreshold  = 0.95
	ReviewThreshold  = 0.80
	PartialThreshold = 0.60
)

// Messages attached to each decision.
const (
	MessageDuplicate = "duplicate signature detected"
	MessageVerified  = "record verified"
	MessagePossible  = "possible match — manual review recommended"
	MessagePartial   = "partial match — check for transcription errors"
	MessageNoMatch   = "no matching record found"
)

// Decision is the classifier's verdict for one record.
type Decision struct {
	Code     models.OutcomeCode
	Message  string
	Accepted bool
}

// Classify applies the decision table in strict priority order:
//  1. Duplicate (dominates any score)
//  2. score >= 0.95: Accepted
//  3. score >= 0.80: NeedsReview (possible match)
//  4. score >= 0.60: NeedsReview (partial match)
//  5. otherwise: Rejected
func Classify(score float64, duplicate bool) Decision {
	switch {
	case duplicate:
		return Decision{Code: models.Duplicate, Message: MessageDuplicate}
	case score >= AcceptThreshold:
		return Decision{Code: models.Accepted, Message: MessageVerified, Accepted: true}
	case score >= ReviewThreshold:
		return Decision{Code: models.NeedsReview, Message: MessagePossible}
	case score >= PartialThreshold:
		return Decision{Code: models.NeedsReview, Message: MessagePartial}
	default:
		return Decision{Code: models.Rejected, Message: MessageNoMatch}
	}
}

// Result builds the caller-facing result. ConfidenceScore is always the raw
// match score, even for duplicates, so consumers can audit why a high-scoring
// record was flagged. Suggestions are attached only when present. A rejected
// record carries no reference: its best candidate is not a match.
func Result(outcome models.MatchOutcome, duplicate bool) models.Result {
	d := Classify(outcome.Score, duplicate)
	r := models.Result{
		Accepted:        d.Accepted,
		Code:            d.Code,
		Message:         d.Message,
		ConfidenceScore: outcome.Score,
	}
	if d.Code != models.Rejected {
		r.Reference = outcome.Matched
	}
	if len(outcome.Suggestions) > 0 {
		r.Suggestions = outcome.Suggestions
	}
	return r
}
