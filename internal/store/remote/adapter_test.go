package remote

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/fathom/ledgerdesk/internal/model"
)

// fakeDocStore is an in-memory DocStore with a controllable change signal.
type fakeDocStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]model.Fields // userID/collection -> docID -> fields
	watchers []chan struct{}

	listErr   error
	upsertErr error
	deleteErr error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]map[string]model.Fields)}
}

func scope(userID, collection string) string {
	return userID + "/" + collection
}

func (f *fakeDocStore) List(_ context.Context, userID, collection string) ([]model.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Fields{}
	for _, fields := range f.docs[scope(userID, collection)] {
		out = append(out, fields.Clone())
	}
	return out, nil
}

func (f *fakeDocStore) UpsertMerge(_ context.Context, userID, collection, docID string, fields model.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	s := scope(userID, collection)
	if f.docs[s] == nil {
		f.docs[s] = make(map[string]model.Fields)
	}
	if existing, ok := f.docs[s][docID]; ok {
		f.docs[s][docID] = existing.Merge(fields)
	} else {
		f.docs[s][docID] = fields.Clone()
	}
	return nil
}

func (f *fakeDocStore) Delete(_ context.Context, userID, collection, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs[scope(userID, collection)], docID)
	return nil
}

func (f *fakeDocStore) Watch(ctx context.Context, _, _ string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.watchers = append(f.watchers, ch)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// signal simulates a server push to all watchers.
func (f *fakeDocStore) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func newTestAdapter() (*Adapter, *fakeDocStore) {
	docs := newFakeDocStore()
	return New(docs, log.New(io.Discard, "", 0)), docs
}

// collectSnapshots subscribes and returns a getter for received snapshots.
func collectSnapshots(t *testing.T, a *Adapter, userID, collection string) (func() [][]model.Fields, func()) {
	t.Helper()
	var mu sync.Mutex
	var got [][]model.Fields
	unsub, err := a.Subscribe(userID, collection, func(records []model.Fields) {
		mu.Lock()
		got = append(got, records)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	return func() [][]model.Fields {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]model.Fields, len(got))
		copy(out, got)
		return out
	}, unsub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubscribePushesFullSnapshots(t *testing.T) {
	a, docs := newTestAdapter()
	ctx := context.Background()

	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snapshots, unsub := collectSnapshots(t, a, "u1", "clients")
	defer unsub()

	// Initial snapshot includes the pre-existing record.
	waitFor(t, func() bool { return len(snapshots()) >= 1 })
	if got := snapshots()[0]; len(got) != 1 || got[0].ID() != "c1" {
		t.Fatalf("unexpected initial snapshot: %v", got)
	}

	// A change signal re-pushes the complete collection, not a delta.
	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c2", "name": "Globex"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	docs.signal()

	waitFor(t, func() bool { return len(snapshots()) >= 2 })
	latest := snapshots()[len(snapshots())-1]
	if len(latest) != 2 {
		t.Errorf("expected full 2-record snapshot, got %v", latest)
	}
}

func TestSaveUsesMergeSemantics(t *testing.T) {
	a, docs := newTestAdapter()
	ctx := context.Background()

	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c1", "phone": "555"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := docs.List(ctx, "u1", "clients")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["name"] != "Acme" || records[0]["phone"] != "555" {
		t.Errorf("partial save clobbered fields: %v", records[0])
	}
	if records[0]["userId"] != "u1" {
		t.Errorf("expected userId stamp, got %v", records[0]["userId"])
	}
}

func TestWriteFailuresPropagate(t *testing.T) {
	a, docs := newTestAdapter()
	ctx := context.Background()

	cause := errors.New("permission denied")
	docs.upsertErr = cause
	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c1"}); !errors.Is(err, cause) {
		t.Errorf("expected save rejection to carry cause, got %v", err)
	}

	docs.deleteErr = cause
	if err := a.Delete(ctx, "u1", "clients", "c1"); !errors.Is(err, cause) {
		t.Errorf("expected delete rejection to carry cause, got %v", err)
	}
}

func TestReadErrorsDegradeToStaleSnapshot(t *testing.T) {
	a, docs := newTestAdapter()
	ctx := context.Background()

	if err := a.Save(ctx, "u1", "events", model.Fields{"id": "e1", "title": "Call"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snapshots, unsub := collectSnapshots(t, a, "u1", "events")
	defer unsub()
	waitFor(t, func() bool { return len(snapshots()) == 1 })

	// Break reads, then signal: no new snapshot and no panic; the
	// consumer keeps the last-known-good state.
	docs.mu.Lock()
	docs.listErr = errors.New("network down")
	docs.mu.Unlock()
	docs.signal()

	time.Sleep(100 * time.Millisecond)
	if got := len(snapshots()); got != 1 {
		t.Errorf("expected stale snapshot retention, got %d snapshots", got)
	}
}

func TestUnsubscribeDropsInFlightSnapshots(t *testing.T) {
	a, docs := newTestAdapter()
	ctx := context.Background()

	if err := a.Save(ctx, "u1", "clients", model.Fields{"id": "c1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snapshots, unsub := collectSnapshots(t, a, "u1", "clients")
	waitFor(t, func() bool { return len(snapshots()) == 1 })

	unsub()
	unsub() // idempotent

	docs.signal()
	time.Sleep(100 * time.Millisecond)

	if got := len(snapshots()); got != 1 {
		t.Errorf("callback fired after unsubscribe: %d snapshots", got)
	}
}
