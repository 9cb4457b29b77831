package models

import (
	"time"

	id "circulight/pkg/domain"
)

// Record is the identity shape shared by submitted candidates and registry
// entries. Fields may be empty or garbled; the engine never rejects a record
// for its content.
type Record struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"zip"`
}

// Candidate is a record submitted for validation, typically produced by an
// upstream text-extraction step. Candidates are treated as immutable.
type Candidate struct {
	Record
	// ExtractionConfidence is the upstream extractor's completeness estimate in
	// [0,1]. Informational only; it never enters the composite score.
	ExtractionConfidence float64 `json:"extraction_confidence,omitempty"`
}

// Reference is an authoritative registry entry. The engine never mutates it.
type Reference struct {
	Record
	// ID is the registry's own key for the entry, when the source has one.
	ID string `json:"id,omitempty"`
}

// MatchOutcome is produced fresh per matching attempt.
type MatchOutcome struct {
	// Matched is nil when no reference scored above zero.
	Matched     *Reference
	Score       float64
	Suggestions []string
}

// Result is the sole output contract of the engine: one per candidate.
type Result struct {
	Accepted        bool        `json:"is_accepted"`
	Code            OutcomeCode `json:"code"`
	Message         string      `json:"message"`
	Suggestions     []string    `json:"suggestions,omitempty"`
	ConfidenceScore float64     `json:"confidence_score"`
	Reference       *Reference  `json:"matched_reference,omitempty"`
}

const pendingMessage = "awaiting validation"

// PendingResult is the placeholder for a record that has not been validated.
func PendingResult() Result {
	return Result{
		Code:    AwaitingValidation,
		Message: pendingMessage,
	}
}

// BatchReport bundles the results of one validation run, in input order.
type BatchReport struct {
	BatchID    id.BatchID `json:"batch_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Results    []Result   `json:"results"`
	Summary    Summary    `json:"summary"`
}
