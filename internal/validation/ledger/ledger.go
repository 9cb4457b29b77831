// Package ledger detects duplicate submissions within a validation run.
//
// A Session is the batch-scoped ledger: the set of normalized name+address
// keys already classified in the current run. It is owned by whoever runs the
// batch and discarded afterwards. History is the optional durable store used
// when duplicate detection must span batches.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"circulight/internal/validation/models"
	textutil "circulight/pkg/platform/strings"
)

// Key identifies a submission for duplicate detection: the normalized name
// and normalized address. City and postal code are not part of the key.
type Key struct {
	Name    string
	Address string
}

// KeyOf builds the duplicate-detection key for a record.
func KeyOf(r models.Record) Key {
	return Key{Name: textutil.Normalize(r.Name), Address: textutil.Normalize(r.Address)}
}

// Fingerprint is the hex SHA-256 of the key. Durable stores index by
// fingerprint so raw names and addresses never become store keys. The name is
// length-prefixed so no two distinct keys share a preimage.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s|%s", len(k.Name), k.Name, k.Address)))
	return hex.EncodeToString(sum[:])
}

// Policy selects which classified records enter the session ledger.
type Policy string

const (
	// PolicyNonDuplicate ledgers every record that is not itself a duplicate.
	PolicyNonDuplicate Policy = "non_duplicate"
	// PolicyAcceptedOnly ledgers only records classified Accepted.
	PolicyAcceptedOnly Policy = "accepted_only"
)

// ParsePolicy validates a policy name. Empty selects PolicyNonDuplicate.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyNonDuplicate, nil
	case PolicyNonDuplicate, PolicyAcceptedOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown ledger policy: %q", s)
	}
}

// Admits reports whether a record with the given outcome enters the ledger.
func (p Policy) Admits(code models.OutcomeCode) bool {
	if code == models.Duplicate {
		return false
	}
	if p == PolicyAcceptedOnly {
		return code == models.Accepted
	}
	return true
}

// Session is the in-memory, batch-scoped ledger. It is safe for concurrent
// use; the engine holds the write lock across check-then-append so every
// record sees all earlier appends.
type Session struct {
	mu    sync.RWMutex
	keys  map[Key]struct{}
	order []Key
}

// NewSession returns an empty ledger.
func NewSession() *Session {
	return &Session{keys: make(map[Key]struct{})}
}

// Seed adds keys known from outside the batch (durable history). Seeded keys
// are not reported by Appended.
func (s *Session) Seed(keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
}

// Contains reports whether key has been ledgered.
func (s *Session) Contains(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Add ledgers key. Adding a key twice is a no-op.
func (s *Session) Add(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(key)
}

func (s *Session) add(key Key) {
	if _, ok := s.keys[key]; ok {
		return
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)
}

// CheckAndRecord atomically reports whether key was already present and, when
// admit returns true for a non-duplicate, appends it. admit runs under the
// write lock and must not call back into the session.
func (s *Session) CheckAndRecord(key Key, admit func(duplicate bool) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, duplicate := s.keys[key]
	if admit(duplicate) && !duplicate {
		s.add(key)
	}
	return duplicate
}

// Len returns the number of keys, seeded ones included.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Appended returns the keys added during this session (not seeded), in
// the order they were added.
func (s *Session) Appended() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}

// IsDuplicate reports whether the candidate's normalized name and address
// exactly match a record already in the session ledger.
func IsDuplicate(c models.Candidate, s *Session) bool {
	if s == nil {
		return false
	}
	return s.Contains(KeyOf(c.Record))
}

// History is a durable record of ledgered keys spanning batches.
type History interface {
	// Existing returns the subset of keys already present in history.
	Existing(ctx context.Context, keys []Key) ([]Key, error)
	// Append records keys. Appending a known key is not an error.
	Append(ctx context.Context, keys []Key) error
}
