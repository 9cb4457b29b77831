package models

// Summary tallies a batch's results per outcome.
type Summary struct {
	Total          int     `json:"total"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	NeedsReview    int     `json:"needs_review"`
	Duplicate      int     `json:"duplicate"`
	Pending        int     `json:"pending"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// Summarize counts results by code. AcceptanceRate is Accepted/Total, or 0
// for an empty batch.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Code {
		case Accepted:
			s.Accepted++
		case Rejected:
			s.Rejected++
		case NeedsReview:
			s.NeedsReview++
		case Duplicate:
			s.Duplicate++
		case AwaitingValidation:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.AcceptanceRate = float64(s.Accepted) / float64(s.Total)
	}
	return s
}
