// Package extraction turns the JSON text returned by an OCR model into
// candidate records.
package extraction

import (
	"encoding/json"
	"strings"

	"circulight/internal/validation/models"
	dErrors "circulight/pkg/domain-errors"
)

// Extraction is the decoded output of one scanned sheet.
type Extraction struct {
	Candidates []models.Candidate
	RawText    string
}

// Pending returns one awaiting-validation placeholder per candidate, so a
// sheet can be displayed before validation runs.
func (e *Extraction) Pending() []models.Result {
	out := make([]models.Result, len(e.Candidates))
	for i := range out {
		out[i] = models.PendingResult()
	}
	return out
}

type payload struct {
	Signatures []models.Record `json:"signatures"`
	RawText    string          `json:"rawText"`
}

// Parse decodes model output of the form
//
//	{"signatures": [{"name", "address", "city", "zip"}], "rawText": "..."}
//
// optionally wrapped in a markdown code fence. Each candidate's
// ExtractionConfidence is the share of its four fields that are non-blank.
// Missing fields stay empty.
func Parse(text string) (*Extraction, error) {
	body := stripFence(text)
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "extraction output is empty")
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode extraction output")
	}

	candidates := make([]models.Candidate, len(p.Signatures))
	for i, rec := range p.Signatures {
		candidates[i] = models.Candidate{
			Record:               rec,
			ExtractionConfidence: completeness(rec),
		}
	}
	return &Extraction{Candidates: candidates, RawText: p.RawText}, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func completeness(r models.Record) float64 {
	filled := 0
	for _, f := range []string{r.Name, r.Address, r.City, r.PostalCode} {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return float64(filled) / 4
}
