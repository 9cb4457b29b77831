// Package strings provides text canonicalization shared by the matching engine
// and configuration parsing.
package strings

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a free-text field before comparison. It folds
// compatibility glyphs (full-width digits, ligatures) with NFKC, lower-cases,
// trims, and collapses every internal whitespace run to a single space.
//
// Normalize never fails; empty or whitespace-only input yields "".
// It is idempotent: Normalize(Normalize(s)) == Normalize(s).
//
// Example:
//
//	Normalize("  JOHN\t  Smith ")
//	// Returns: "john smith"
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  broker-1:9092 ", "broker-2:9092", "broker-1:9092", ""})
//	// Returns: []string{"broker-1:9092", "broker-2:9092"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeNormalized is like DedupeAndTrim but compares and returns the
// Normalize form of each element.
func DedupeNormalized(values []string) []string {
	return dedupe(values, Normalize)
}

func dedupe(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		folded := fold(v)
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		result = append(result, folded)
	}
	return result
}
