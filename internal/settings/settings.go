// Package settings provides the per-user application settings store.
//
// Settings are one record with a fixed id in their own collection, read
// and written through the synchronizer like any other collection. The
// store is an explicitly constructed instance handed to whoever needs
// it; there is no package-level state.
package settings

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

// Store reads and updates the settings document for one identity.
type Store struct {
	sync   *syncer.Synchronizer
	id     identity.Identity
	logger *log.Logger

	mu      sync.Mutex
	current model.Settings
	unsub   store.UnsubscribeFunc
}

// NewStore creates a settings Store and opens its live subscription so
// Get always reflects the latest persisted state.
func NewStore(sc *syncer.Synchronizer, id identity.Identity, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[settings] ", log.LstdFlags)
	}
	s := &Store{sync: sc, id: id, logger: logger}

	unsub, err := sc.Subscribe(id, model.CollectionSettings, s.onSnapshot)
	if err != nil {
		return nil, err
	}
	s.unsub = unsub
	return s, nil
}

// Close releases the settings subscription.
func (s *Store) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Store) onSnapshot(records []model.Fields) {
	for _, f := range records {
		if f.ID() != model.SettingsDocID {
			continue
		}
		var parsed model.Settings
		if err := model.Decode(f, &parsed); err != nil {
			s.logger.Printf("Ignoring undecodable settings record: %v", err)
			return
		}
		s.mu.Lock()
		s.current = parsed
		s.mu.Unlock()
		return
	}
}

// Get returns the current settings snapshot.
func (s *Store) Get() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update merges the given fields over the stored settings document.
// Fields not mentioned keep their persisted values.
func (s *Store) Update(ctx context.Context, partial model.Fields) error {
	merged := partial.Clone()
	merged["id"] = model.SettingsDocID
	return s.sync.Save(ctx, s.id, model.CollectionSettings, merged)
}
