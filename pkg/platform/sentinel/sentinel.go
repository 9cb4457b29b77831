package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Registry sources and ledger
// history stores return these (optionally wrapped) so services can translate
// them into domain errors.
//
// These represent factual states about resources, not data-quality problems:
// - ErrNotFound: entity does not exist in store
// - ErrUnavailable: backend temporarily unreachable or failed mid-read
// - ErrInvalidState: resource misconfigured for the requested operation
//
// Malformed candidate fields are never errors; they lower the match score.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
