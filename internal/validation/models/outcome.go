package models

import (
	"fmt"
	"strings"
)

// OutcomeCode is the closed set of classification outcomes. Exactly one holds
// per Result.
type OutcomeCode string

const (
	Accepted           OutcomeCode = "accepted"
	Rejected           OutcomeCode = "rejected"
	NeedsReview        OutcomeCode = "needs_review"
	Duplicate          OutcomeCode = "duplicate"
	AwaitingValidation OutcomeCode = "awaiting_validation"
)

// outcomeLetters are the compact status letters used on printed petition
// sheets and in the circulator dashboard.
var outcomeLetters = map[OutcomeCode]string{
	Accepted:           "G",
	Rejected:           "B",
	NeedsReview:        "X",
	Duplicate:          "D",
	AwaitingValidation: "P",
}

var outcomeLabels = map[OutcomeCode]string{
	Accepted:           "Valid",
	Rejected:           "Invalid",
	NeedsReview:        "Manual",
	Duplicate:          "Duplicate",
	AwaitingValidation: "Pending",
}

// ParseOutcomeCode accepts either the code name ("needs_review") or its
// status letter ("X"), case-insensitively.
func ParseOutcomeCode(s string) (OutcomeCode, error) {
	s = strings.TrimSpace(s)
	if c := OutcomeCode(strings.ToLower(s)); c.IsValid() {
		return c, nil
	}
	for code, letter := range outcomeLetters {
		if strings.EqualFold(letter, s) {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown outcome code: %q", s)
}

func (c OutcomeCode) String() string {
	return string(c)
}

// IsValid reports whether c is one of the five defined codes.
func (c OutcomeCode) IsValid() bool {
	_, ok := outcomeLetters[c]
	return ok
}

// Letter returns the single-letter status (G, B, X, D, P), or "" for an
// unknown code.
func (c OutcomeCode) Letter() string {
	return outcomeLetters[c]
}

// Label returns the human-facing status label.
func (c OutcomeCode) Label() string {
	return outcomeLabels[c]
}
