package syncer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
	"github.com/fathom/ledgerdesk/internal/store/local"
)

// recordingAdapter counts routed calls and lets tests script failures.
type recordingAdapter struct {
	mu         sync.Mutex
	saves      int
	deletes    int
	subs       int
	saveErr    error
	lastUserID string
	callbacks  []store.Callback
}

func (r *recordingAdapter) Subscribe(userID, collection string, cb store.Callback) (store.UnsubscribeFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs++
	r.lastUserID = userID
	r.callbacks = append(r.callbacks, cb)
	cb([]model.Fields{})
	return func() {}, nil
}

func (r *recordingAdapter) Save(_ context.Context, userID, _ string, _ model.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.lastUserID = userID
	return r.saveErr
}

func (r *recordingAdapter) Delete(_ context.Context, userID, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	r.lastUserID = userID
	return nil
}

func quiet() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRoutingByIdentityKind(t *testing.T) {
	localA := &recordingAdapter{}
	remoteA := &recordingAdapter{}
	s := New(localA, remoteA, quiet())
	ctx := context.Background()

	fallback := identity.Fallback()
	remote := identity.Identity{Kind: identity.KindRemote, ID: "u1"}

	if err := s.Save(ctx, fallback, "clients", model.Fields{"id": "c1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, remote, "clients", model.Fields{"id": "c1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if localA.saves != 1 || remoteA.saves != 1 {
		t.Errorf("routing wrong: local=%d remote=%d", localA.saves, remoteA.saves)
	}
	if remoteA.lastUserID != "u1" {
		t.Errorf("remote adapter got userID %q", remoteA.lastUserID)
	}

	if err := s.Delete(ctx, fallback, "clients", "c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if localA.deletes != 1 || remoteA.deletes != 0 {
		t.Errorf("delete routing wrong: local=%d remote=%d", localA.deletes, remoteA.deletes)
	}
}

func TestSaveRequiresCallerGeneratedID(t *testing.T) {
	s := New(&recordingAdapter{}, &recordingAdapter{}, quiet())

	err := s.Save(context.Background(), identity.Fallback(), "clients", model.Fields{"name": "Acme"})
	if err == nil {
		t.Fatal("expected Save without id to fail")
	}
}

func TestWriteFailurePropagatesThroughSynchronizer(t *testing.T) {
	cause := errors.New("backend rejected write")
	remoteA := &recordingAdapter{saveErr: cause}
	s := New(&recordingAdapter{}, remoteA, quiet())

	err := s.Save(context.Background(), identity.Identity{Kind: identity.KindRemote, ID: "u1"},
		"invoices", model.Fields{"id": "i1"})
	if !errors.Is(err, cause) {
		t.Errorf("expected rejection cause to propagate, got %v", err)
	}

	ops := s.Ops()
	if len(ops) != 1 || ops[0].Err == "" {
		t.Errorf("expected failed op recorded, got %+v", ops)
	}
}

func TestSubscribeGatesCallbacksOnLiveness(t *testing.T) {
	localA := &recordingAdapter{}
	s := New(localA, &recordingAdapter{}, quiet())

	calls := 0
	unsub, err := s.Subscribe(identity.Fallback(), "events", func([]model.Fields) { calls++ })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected initial snapshot, got %d calls", calls)
	}

	unsub()
	unsub() // idempotent

	// The adapter misbehaving and pushing after release must be ignored.
	localA.mu.Lock()
	cb := localA.callbacks[0]
	localA.mu.Unlock()
	cb([]model.Fields{{"id": "x"}})

	if calls != 1 {
		t.Errorf("callback delivered after unsubscribe: %d calls", calls)
	}
}

// End-to-end through the real local adapter: spec round-trip property.
func TestFallbackRoundTripThroughLocalAdapter(t *testing.T) {
	localA := local.New(local.NewMemoryKV(), quiet())
	s := New(localA, &recordingAdapter{}, quiet())
	ctx := context.Background()
	id := identity.Fallback()

	if err := s.Save(ctx, id, "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var latest []model.Fields
	unsub, err := s.Subscribe(id, "clients", func(records []model.Fields) { latest = records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	if len(latest) != 1 || latest[0]["name"] != "Acme" {
		t.Fatalf("unexpected snapshot: %v", latest)
	}

	if err := s.Save(ctx, id, "clients", model.Fields{"id": "c1", "phone": "555"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if len(latest) != 1 || latest[0]["name"] != "Acme" || latest[0]["phone"] != "555" {
		t.Errorf("merge-on-write violated: %v", latest)
	}
}

func TestOpLogRing(t *testing.T) {
	l := NewOpLog(2)
	l.Record(OpSave, "clients", "a", nil)
	l.Record(OpSave, "clients", "b", nil)
	l.Record(OpDelete, "clients", "c", nil)

	recent := l.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected ring capped at 2, got %d", len(recent))
	}
	if recent[0].DocID != "c" || recent[1].DocID != "b" {
		t.Errorf("expected newest first, got %+v", recent)
	}
}
