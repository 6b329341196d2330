package syncer

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

// Multiplexer opens the standard collections as a group when an identity
// becomes available and tears them down together when the consuming view
// goes away. Each collection has its own unsubscribe function; tearing
// one down can never affect the others, and teardown tolerates a
// partially-initialized set (unsubscribe functions are checked before
// being invoked).
type Multiplexer struct {
	sync   *Synchronizer
	logger *log.Logger

	mu     sync.Mutex
	opened bool
	unsubs map[string]store.UnsubscribeFunc
}

// NewMultiplexer creates a Multiplexer over sync.
func NewMultiplexer(sync *Synchronizer, logger *log.Logger) *Multiplexer {
	if logger == nil {
		logger = log.New(os.Stderr, "[mux] ", log.LstdFlags)
	}
	return &Multiplexer{
		sync:   sync,
		logger: logger,
		unsubs: make(map[string]store.UnsubscribeFunc),
	}
}

// Open subscribes every standard collection under id, delivering each
// collection's snapshots to cb. If any subscription fails, the ones
// already opened are released and the error is returned.
func (m *Multiplexer) Open(id identity.Identity, cb func(collection string, records []model.Fields)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened {
		return fmt.Errorf("multiplexer already open")
	}

	for _, collection := range model.StandardCollections {
		collection := collection
		unsub, err := m.sync.Subscribe(id, collection, func(records []model.Fields) {
			cb(collection, records)
		})
		if err != nil {
			m.closeLocked()
			return fmt.Errorf("failed to open %s: %w", collection, err)
		}
		m.unsubs[collection] = unsub
	}

	m.opened = true
	m.logger.Printf("Opened %d collections for %s", len(m.unsubs), id)
	return nil
}

// Close releases every subscription. Safe to call repeatedly and on a
// multiplexer that never finished opening.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	m.opened = false
}

func (m *Multiplexer) closeLocked() {
	for collection, unsub := range m.unsubs {
		if unsub != nil {
			unsub()
		}
		delete(m.unsubs, collection)
	}
}
