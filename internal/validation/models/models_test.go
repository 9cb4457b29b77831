package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeCode(t *testing.T) {
	t.Run("letters match petition status codes", func(t *testing.T) {
		assert.Equal(t, "G", Accepted.Letter())
		assert.Equal(t, "B", Rejected.Letter())
		assert.Equal(t, "X", NeedsReview.Letter())
		assert.Equal(t, "D", Duplicate.Letter())
		assert.Equal(t, "P", AwaitingValidation.Letter())
		assert.Empty(t, OutcomeCode("bogus").Letter())
	})

	t.Run("parses names and letters", func(t *testing.T) {
		for _, in := range []string{"needs_review", "X", "x", " NEEDS_REVIEW "} {
			code, err := ParseOutcomeCode(in)
			require.NoError(t, err, in)
			assert.Equal(t, NeedsReview, code)
		}
	})

	t.Run("rejects unknown codes", func(t *testing.T) {
		_, err := ParseOutcomeCode("Q")
		assert.Error(t, err)
		_, err = ParseOutcomeCode("")
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, Summary{}, s)
	})

	t.Run("tallies each code", func(t *testing.T) {
		results := []Result{
			{Code: Accepted, Accepted: true},
			{Code: Accepted, Accepted: true},
			{Code: Rejected},
			{Code: NeedsReview},
			{Code: Duplicate},
			PendingResult(),
		}
		s := Summarize(results)
		assert.Equal(t, 6, s.Total)
		assert.Equal(t, 2, s.Accepted)
		assert.Equal(t, 1, s.Rejected)
		assert.Equal(t, 1, s.NeedsReview)
		assert.Equal(t, 1, s.Duplicate)
		assert.Equal(t, 1, s.Pending)
		assert.InDelta(t, 2.0/6.0, s.AcceptanceRate, 1e-12)
	})
}

func TestResultJSON(t *testing.T) {
	t.Run("omits absent suggestions and reference", func(t *testing.T) {
		raw, err := json.Marshal(Result{Code: Rejected, Message: "no matching record found"})
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "suggestions")
		assert.NotContains(t, string(raw), "matched_reference")
	})

	t.Run("postal code uses zip on the wire", func(t *testing.T) {
		var c Candidate
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Jane Doe","zip":"12345"}`), &c))
		assert.Equal(t, "12345", c.PostalCode)
		assert.Equal(t, "Jane Doe", c.Name)
	})
}
