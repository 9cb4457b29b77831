package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "circulight/pkg/domain-errors"
)

// BatchID identifies one validation run. A batch owns its session ledger, so
// the ID also scopes duplicate detection in logs and published results.
type BatchID uuid.UUID

// NewBatchID returns a random batch ID.
func NewBatchID() BatchID {
	return BatchID(uuid.New())
}

// ParseBatchID validates and returns a BatchID.
// Empty, malformed, and nil UUIDs are rejected with CodeInvalidInput.
func ParseBatchID(s string) (BatchID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "batch id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return BatchID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid batch id")
	}
	if parsed == uuid.Nil {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "batch id cannot be nil")
	}
	return BatchID(parsed), nil
}

func (id BatchID) String() string {
	return uuid.UUID(id).String()
}

// IsNil returns true if the ID is the zero UUID.
func (id BatchID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText encodes the ID as its canonical UUID string.
func (id BatchID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a canonical UUID string.
func (id *BatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBatchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
