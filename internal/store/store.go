// Package store defines the contracts shared by the local and remote
// storage adapters.
//
// Both adapters expose the same live-snapshot contract: a subscription
// callback always receives the complete current contents of a collection,
// never a delta. Resending full snapshots keeps every consumer identical
// regardless of which backend is active; that is a deliberate trade of
// bandwidth for simplicity.
package store

import (
	"context"
	"errors"

	"github.com/fathom/ledgerdesk/internal/model"
)

// Callback receives the full current snapshot of a collection whenever its
// contents change. The slice must be treated as read-only by consumers.
type Callback func(records []model.Fields)

// UnsubscribeFunc releases a subscription. It is idempotent: calling it
// more than once is a no-op, and no callback fires after the first call
// returns.
type UnsubscribeFunc func()

// ErrLocalPersist marks a local write that could not be persisted (quota,
// serialization). Read-path corruption never produces it; only writes do,
// because a silently lost write is a data-integrity violation the caller
// must be able to surface.
var ErrLocalPersist = errors.New("local persistence failure")

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("store is closed")

// Adapter is the uniform per-backend contract the synchronizer routes to.
// Save merges field-by-field over any existing record with the same id;
// Delete of an absent id is a no-op.
type Adapter interface {
	Subscribe(userID, collection string, cb Callback) (UnsubscribeFunc, error)
	Save(ctx context.Context, userID, collection string, record model.Fields) error
	Delete(ctx context.Context, userID, collection, id string) error
}
