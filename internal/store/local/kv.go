// Package local implements the single-device storage adapter.
//
// The adapter persists each collection as one serialized JSON array under a
// key in a synchronous key-value store, mirroring browser local storage
// semantics: whole-blob read-modify-write, no partial updates, no locking
// beyond the store's own atomicity. Three KV implementations are provided:
// in-memory, embedded SQLite, and a JSON-file-per-key directory store.
package local

import (
	"sync"
)

// KV is the synchronous single-device key-value store the adapter writes
// through. GetItem reports absence via ok=false; SetItem errors represent
// real persistence failures (quota, I/O) and are surfaced to callers.
type KV interface {
	GetItem(key string) (value string, ok bool)
	SetItem(key, value string) error
}

// MemoryKV is an in-process KV for tests and ephemeral sessions.
type MemoryKV struct {
	mu     sync.RWMutex
	items  map[string]string
	failed error // when set, SetItem returns this error
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]string)}
}

// GetItem returns the stored value for key.
func (m *MemoryKV) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// SetItem stores value under key.
func (m *MemoryKV) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return m.failed
	}
	m.items[key] = value
	return nil
}

// FailWrites makes every subsequent SetItem return err. Passing nil
// restores normal behavior. Used by tests to simulate quota exhaustion.
func (m *MemoryKV) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = err
}
