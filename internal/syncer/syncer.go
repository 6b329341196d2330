// Package syncer provides the collection synchronizer: the single entry
// point UI consumers use to read and write collections.
//
// The synchronizer routes every operation to the local or remote storage
// adapter based on the resolved identity's kind, and presents one uniform
// subscribe/save/delete contract over both. Consumers never learn which
// backend they are talking to; under both, a subscription callback always
// receives the full current snapshot of its collection.
package syncer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

// Synchronizer routes collection operations by identity kind.
type Synchronizer struct {
	local  store.Adapter
	remote store.Adapter
	logger *log.Logger
	oplog  *OpLog
}

// New creates a Synchronizer over the two adapters.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	sync := syncer.New(localAdapter, remoteAdapter, nil)
//	unsub, err := sync.Subscribe(id, model.CollectionClients, onClients)
func New(local, remote store.Adapter, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncer] ", log.LstdFlags)
	}
	return &Synchronizer{
		local:  local,
		remote: remote,
		logger: logger,
		oplog:  NewOpLog(DefaultOpLogSize),
	}
}

// adapterFor picks the backend for an identity. The switch is exhaustive
// over identity.Kind so a new kind fails loudly instead of silently
// routing to the wrong store.
func (s *Synchronizer) adapterFor(id identity.Identity) (store.Adapter, error) {
	switch id.Kind {
	case identity.KindFallback:
		return s.local, nil
	case identity.KindRemote:
		return s.remote, nil
	default:
		return nil, fmt.Errorf("unknown identity kind %d", id.Kind)
	}
}

// Subscribe opens a live subscription for one collection under the given
// identity. The returned unsubscribe function is idempotent and safe to
// call from teardown paths that may run more than once.
func (s *Synchronizer) Subscribe(id identity.Identity, collection string, cb store.Callback) (store.UnsubscribeFunc, error) {
	adapter, err := s.adapterFor(id)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(id, collection, s.logger)
	unsub, err := adapter.Subscribe(id.ID, collection, func(records []model.Fields) {
		if sub.active() {
			cb(records)
		}
	})
	if err != nil {
		sub.fail()
		return nil, fmt.Errorf("failed to subscribe %s to %s: %w", id, collection, err)
	}
	sub.activate(unsub)
	return sub.unsubscribe, nil
}

// Save upserts a record. The record's id must be pre-populated by the
// caller; the synchronizer never generates ids.
func (s *Synchronizer) Save(ctx context.Context, id identity.Identity, collection string, record model.Fields) error {
	if record.ID() == "" {
		return fmt.Errorf("record for %s has no id", collection)
	}
	adapter, err := s.adapterFor(id)
	if err != nil {
		return err
	}
	if err := adapter.Save(ctx, id.ID, collection, record); err != nil {
		s.oplog.Record(OpSave, collection, record.ID(), err)
		return err
	}
	s.oplog.Record(OpSave, collection, record.ID(), nil)
	return nil
}

// Delete removes a record by id. Deleting an absent id is a no-op.
func (s *Synchronizer) Delete(ctx context.Context, id identity.Identity, collection, docID string) error {
	adapter, err := s.adapterFor(id)
	if err != nil {
		return err
	}
	if err := adapter.Delete(ctx, id.ID, collection, docID); err != nil {
		s.oplog.Record(OpDelete, collection, docID, err)
		return err
	}
	s.oplog.Record(OpDelete, collection, docID, nil)
	return nil
}

// Ops returns the most recent operations, newest first, for diagnostics.
func (s *Synchronizer) Ops() []OpEntry {
	return s.oplog.Recent()
}
