// Package registry supplies the authoritative reference records candidates
// are matched against.
//
// Every Source must return records in a stable order: the matcher resolves
// score ties to the earliest reference.
package registry

import (
	"context"

	"circulight/internal/validation/models"
)

// Source produces a snapshot of the reference registry.
type Source interface {
	// Load returns the full registry in stable order. An empty registry is
	// not an error.
	Load(ctx context.Context) ([]models.Reference, error)
}

// Static is an in-memory registry.
type Static struct {
	refs []models.Reference
}

// NewStatic copies refs so later changes by the caller are not observed.
func NewStatic(refs []models.Reference) *Static {
	cp := make([]models.Reference, len(refs))
	copy(cp, refs)
	return &Static{refs: cp}
}

// Load returns the records in construction order.
func (s *Static) Load(ctx context.Context) ([]models.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.refs, nil
}

// Len returns the number of records.
func (s *Static) Len() int {
	return len(s.refs)
}
