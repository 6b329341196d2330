package remote

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

// Adapter bridges the DocStore's change signal into the uniform
// full-snapshot subscription contract.
//
// Subscription errors degrade in place: the consumer keeps its last-known
// snapshot and the error is logged, never propagated into consumer code.
// Save and Delete failures DO propagate; the UI writes optimistically and
// must learn when a write was lost.
type Adapter struct {
	docs   DocStore
	logger *log.Logger
	clock  func() time.Time
}

// New creates a remote Adapter over docs.
//
// If logger is nil, a default logger writing to stderr is used.
func New(docs DocStore, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Adapter{
		docs:   docs,
		logger: logger,
		clock:  time.Now,
	}
}

// Subscribe opens a live query for users/{userID}/{collection}. The
// callback receives the full snapshot immediately and after every change
// signal. A liveness flag is checked before each invocation so a snapshot
// that was in flight when the consumer unsubscribed is dropped rather
// than delivered late.
func (a *Adapter) Subscribe(userID, collection string, cb store.Callback) (store.UnsubscribeFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var live atomic.Bool
	live.Store(true)

	changes, err := a.docs.Watch(ctx, userID, collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s/%s: %w", userID, collection, err)
	}

	push := func() bool {
		records, err := a.docs.List(ctx, userID, collection)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Printf("Subscription read failed for %s/%s, keeping last snapshot: %v",
					userID, collection, err)
			}
			return false
		}
		if !live.Load() {
			return false
		}
		cb(records)
		return true
	}

	go func() {
		if !push() {
			// Initial load failed: stay subscribed, the next change
			// signal retries.
			a.logger.Printf("Initial snapshot for %s/%s not delivered", userID, collection)
		}
		for range changes {
			if !live.Load() {
				return
			}
			push()
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			live.Store(false)
			cancel()
		})
	}
	return unsubscribe, nil
}

// Save upserts record at users/{userID}/{collection}/{record.id} with
// merge semantics, stamping the user tag and an updatedAt timestamp.
// Failures propagate to the caller.
func (a *Adapter) Save(ctx context.Context, userID, collection string, record model.Fields) error {
	id := record.ID()
	if id == "" {
		return fmt.Errorf("record has no id")
	}

	stamped := record.Clone()
	stamped["userId"] = userID
	stamped["updatedAt"] = a.clock().UTC().Format(time.RFC3339)

	if err := a.docs.UpsertMerge(ctx, userID, collection, id, stamped); err != nil {
		return fmt.Errorf("failed to save %s/%s/%s: %w", userID, collection, id, err)
	}
	return nil
}

// Delete removes the document. Failures propagate to the caller.
func (a *Adapter) Delete(ctx context.Context, userID, collection, id string) error {
	if err := a.docs.Delete(ctx, userID, collection, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s/%s: %w", userID, collection, id, err)
	}
	return nil
}
