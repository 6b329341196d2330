// Package remote implements the multi-user storage adapter.
//
// The adapter talks to a remote document database through the DocStore
// boundary. Documents live at users/{userID}/{collection}/{docID} and are
// upserted with merge semantics: a partial-field write never clobbers
// fields it doesn't mention. Live subscriptions deliver the complete
// current snapshot of a collection on every change, never deltas.
package remote

import (
	"context"

	"github.com/fathom/ledgerdesk/internal/model"
)

// DocStore is the boundary to the remote document database.
type DocStore interface {
	// List returns every document in users/{userID}/{collection}.
	List(ctx context.Context, userID, collection string) ([]model.Fields, error)

	// UpsertMerge lays fields over the document at
	// users/{userID}/{collection}/{docID}, creating it if absent.
	// Fields not present in the write are preserved.
	UpsertMerge(ctx context.Context, userID, collection, docID string, fields model.Fields) error

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, userID, collection, docID string) error

	// Watch returns a channel that receives a signal whenever the
	// collection's contents may have changed (including changes made by
	// other clients). The channel is closed when ctx is cancelled.
	Watch(ctx context.Context, userID, collection string) (<-chan struct{}, error)
}
