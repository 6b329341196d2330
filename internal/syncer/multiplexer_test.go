package syncer

import (
	"context"
	"sync"
	"testing"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store/local"
)

func TestMultiplexerOpensAllStandardCollections(t *testing.T) {
	localA := local.New(local.NewMemoryKV(), quiet())
	s := New(localA, &recordingAdapter{}, quiet())
	m := NewMultiplexer(s, quiet())

	var mu sync.Mutex
	seen := make(map[string]int)
	err := m.Open(identity.Fallback(), func(collection string, _ []model.Fields) {
		mu.Lock()
		seen[collection]++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	for _, collection := range model.StandardCollections {
		if seen[collection] != 1 {
			t.Errorf("expected initial snapshot for %s, got %d", collection, seen[collection])
		}
	}

	// A write to one collection only re-pushes that collection.
	if err := s.Save(context.Background(), identity.Fallback(), model.CollectionEvents,
		model.Fields{"id": "e1", "title": "Call"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if seen[model.CollectionEvents] != 2 {
		t.Errorf("expected events re-push, got %d", seen[model.CollectionEvents])
	}
	if seen[model.CollectionClients] != 1 {
		t.Errorf("clients should be untouched, got %d", seen[model.CollectionClients])
	}
}

func TestMultiplexerCloseIsIndependentAndRepeatable(t *testing.T) {
	localA := local.New(local.NewMemoryKV(), quiet())
	s := New(localA, &recordingAdapter{}, quiet())
	m := NewMultiplexer(s, quiet())

	count := 0
	if err := m.Open(identity.Fallback(), func(string, []model.Fields) { count++ }); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	base := count

	m.Close()
	m.Close() // closing twice is a no-op

	if err := s.Save(context.Background(), identity.Fallback(), model.CollectionInvoices,
		model.Fields{"id": "i1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if count != base {
		t.Errorf("callback fired after Close: %d calls (want %d)", count, base)
	}

	// The multiplexer can be reopened after a full close.
	if err := m.Open(identity.Fallback(), func(string, []model.Fields) {}); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	m.Close()
}

func TestMultiplexerDoubleOpenFails(t *testing.T) {
	localA := local.New(local.NewMemoryKV(), quiet())
	s := New(localA, &recordingAdapter{}, quiet())
	m := NewMultiplexer(s, quiet())

	if err := m.Open(identity.Fallback(), func(string, []model.Fields) {}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	if err := m.Open(identity.Fallback(), func(string, []model.Fields) {}); err == nil {
		t.Error("expected second Open to fail while open")
	}
}
