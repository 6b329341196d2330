package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

// Adapter persists collections to a single-device KV store and notifies
// in-process subscribers synchronously after every mutation.
//
// Read failures (missing key, corrupt JSON) degrade to an empty
// collection: a stale or empty view is less harmful than failing the
// whole app. Write failures propagate wrapped in store.ErrLocalPersist.
type Adapter struct {
	kv       KV
	notifier *notifier
	logger   *log.Logger
	clock    func() time.Time
}

// New creates a local Adapter over kv.
//
// If logger is nil, a default logger writing to stderr is used.
func New(kv KV, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(os.Stderr, "[local] ", log.LstdFlags)
	}
	return &Adapter{
		kv:       kv,
		notifier: newNotifier(),
		logger:   logger,
		clock:    time.Now,
	}
}

// Load returns the current records for a collection. Absent or corrupt
// data reads as empty, never as an error.
func (a *Adapter) Load(collection string) []model.Fields {
	raw, ok := a.kv.GetItem(collectionKey(collection))
	if !ok || raw == "" {
		return []model.Fields{}
	}

	var records []model.Fields
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		a.logger.Printf("Corrupt data for collection %s, treating as empty: %v", collection, err)
		return []model.Fields{}
	}
	return records
}

// Save upserts record into the collection: merge over an existing record
// with the same id, append otherwise. The record is stamped with the
// fallback user tag and an updatedAt timestamp. Subscribers for the
// collection are notified before Save returns.
func (a *Adapter) Save(_ context.Context, _ string, collection string, record model.Fields) error {
	id := record.ID()
	if id == "" {
		return fmt.Errorf("%w: record has no id", store.ErrLocalPersist)
	}

	stamped := record.Clone()
	stamped["userId"] = identity.FallbackID
	stamped["updatedAt"] = a.clock().UTC().Format(time.RFC3339)

	records := a.Load(collection)
	found := false
	for idx, existing := range records {
		if existing.ID() == id {
			records[idx] = existing.Merge(stamped)
			found = true
			break
		}
	}
	if !found {
		records = append(records, stamped)
	}

	if err := a.write(collection, records); err != nil {
		return err
	}

	a.notifier.notify(collection)
	return nil
}

// Delete removes the record with the given id. Deleting an absent id is a
// no-op; subscribers are still only notified when the write succeeds.
func (a *Adapter) Delete(_ context.Context, _ string, collection, id string) error {
	records := a.Load(collection)
	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}

	if err := a.write(collection, kept); err != nil {
		return err
	}

	a.notifier.notify(collection)
	return nil
}

// Subscribe registers cb for live snapshots of a collection. The current
// snapshot is pushed immediately, then again after every local mutation.
// The returned function is idempotent.
func (a *Adapter) Subscribe(_ string, collection string, cb store.Callback) (store.UnsubscribeFunc, error) {
	remove := a.notifier.subscribe(collection, func() {
		cb(a.Load(collection))
	})

	// Initial snapshot, after registration so no gap exists between the
	// first push and live updates.
	cb(a.Load(collection))

	return store.UnsubscribeFunc(remove), nil
}

// NotifyExternalChange re-pushes a collection's snapshot to its
// subscribers. The file watcher calls this when another process edits the
// backing store.
func (a *Adapter) NotifyExternalChange(collection string) {
	a.notifier.notify(collection)
}

func (a *Adapter) write(collection string, records []model.Fields) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: serialize %s: %v", store.ErrLocalPersist, collection, err)
	}
	if err := a.kv.SetItem(collectionKey(collection), string(raw)); err != nil {
		return fmt.Errorf("%w: write %s: %v", store.ErrLocalPersist, collection, err)
	}
	return nil
}

const keyPrefix = "ledgerdesk."

func collectionKey(collection string) string {
	return keyPrefix + collection
}

// CollectionForKey maps a raw KV key back to its collection name. Returns
// ok=false for keys that do not belong to this adapter.
func CollectionForKey(key string) (string, bool) {
	return strings.CutPrefix(key, keyPrefix)
}
