// Package scoring combines per-field similarities into one composite score.
package scoring

import (
	"fmt"
	"math"

	"circulight/internal/validation/models"
	"circulight/internal/validation/similarity"
	dErrors "circulight/pkg/domain-errors"
	textutil "circulight/pkg/platform/strings"
)

// weightTolerance absorbs float rounding when checking that weights sum to 1.
const weightTolerance = 1e-9

// Weights are the fixed per-field contributions to the composite score.
type Weights struct {
	Name       float64
	Address    float64
	City       float64
	PostalCode float64
}

// DefaultWeights are the production weights: name 0.40, address 0.30,
// city 0.15, postal code 0.15.
func DefaultWeights() Weights {
	return Weights{Name: 0.40, Address: 0.30, City: 0.15, PostalCode: 0.15}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Name + w.Address + w.City + w.PostalCode
}

// Validate enforces the construction-time invariant that weights are
// non-negative and sum to 1.0, which keeps composite scores inside [0,1].
func (w Weights) Validate() error {
	for field, v := range map[string]float64{
		"name":        w.Name,
		"address":     w.Address,
		"city":        w.City,
		"postal code": w.PostalCode,
	} {
		if v < 0 || math.IsNaN(v) {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("%s weight must be non-negative", field))
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("weights must sum to 1.0, got %.6f", sum))
	}
	return nil
}

// FieldScores holds the per-field similarities for one candidate/reference pair.
type FieldScores struct {
	Name       float64
	Address    float64
	City       float64
	PostalCode float64
}

// Weigher scores candidate/reference pairs with a validated set of weights.
type Weigher struct {
	weights Weights
}

// NewWeigher validates the weights and returns a Weigher.
func NewWeigher(w Weights) (*Weigher, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Weigher{weights: w}, nil
}

// Weights returns the weigher's configured weights.
func (w *Weigher) Weights() Weights {
	return w.weights
}

// Fields computes per-field similarities. Name and address use edit-distance
// similarity. City short-circuits to 1 on normalized equality before falling
// back to edit distance. Postal code is binary.
func (w *Weigher) Fields(c models.Candidate, r models.Reference) FieldScores {
	return FieldScores{
		Name:       similarity.Similarity(textutil.Normalize(c.Name), textutil.Normalize(r.Name)),
		Address:    similarity.Similarity(textutil.Normalize(c.Address), textutil.Normalize(r.Address)),
		City:       citySimilarity(textutil.Normalize(c.City), textutil.Normalize(r.City)),
		PostalCode: exact(textutil.Normalize(c.PostalCode), textutil.Normalize(r.PostalCode)),
	}
}

// Combine applies the weights to precomputed field similarities.
func (w *Weigher) Combine(f FieldScores) float64 {
	score := f.Name*w.weights.Name +
		f.Address*w.weights.Address +
		f.City*w.weights.City +
		f.PostalCode*w.weights.PostalCode
	return clamp(score)
}

// Score returns the weighted composite similarity in [0,1].
func (w *Weigher) Score(c models.Candidate, r models.Reference) float64 {
	return w.Combine(w.Fields(c, r))
}

func citySimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return similarity.Similarity(a, b)
}

func exact(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
