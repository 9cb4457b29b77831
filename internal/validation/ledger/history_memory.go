package ledger

import (
	"context"
	"sync"
)

// MemoryHistory is a process-local History. It survives across batches for
// the life of the process only.
type MemoryHistory struct {
	mu   sync.RWMutex
	keys map[string]Key
}

// NewMemoryHistory returns an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{keys: make(map[string]Key)}
}

func (h *MemoryHistory) Existing(_ context.Context, keys []Key) ([]Key, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var found []Key
	for _, k := range keys {
		if _, ok := h.keys[k.Fingerprint()]; ok {
			found = append(found, k)
		}
	}
	return found, nil
}

func (h *MemoryHistory) Append(_ context.Context, keys []Key) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range keys {
		h.keys[k.Fingerprint()] = k
	}
	return nil
}

// Len returns the number of distinct keys recorded.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.keys)
}
