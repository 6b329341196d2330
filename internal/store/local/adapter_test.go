package local

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

func newTestAdapter(t *testing.T) (*Adapter, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	return New(kv, log.New(io.Discard, "", 0)), kv
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Save(ctx, "", "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records := a.Load("clients")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID() != "c1" || records[0]["name"] != "Acme" {
		t.Errorf("unexpected record: %v", records[0])
	}
	if records[0]["userId"] != identity.FallbackID {
		t.Errorf("expected fallback user tag, got %v", records[0]["userId"])
	}
	if records[0]["updatedAt"] == nil {
		t.Error("expected updatedAt stamp")
	}
}

func TestSaveMergesNotReplaces(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Save(ctx, "", "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := a.Save(ctx, "", "clients", model.Fields{"id": "c1", "phone": "555"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	records := a.Load("clients")
	if len(records) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(records))
	}
	if records[0]["name"] != "Acme" {
		t.Errorf("partial save clobbered name: %v", records[0])
	}
	if records[0]["phone"] != "555" {
		t.Errorf("partial save did not apply phone: %v", records[0])
	}
}

func TestSaveIsSynchronouslyVisibleToSubscription(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	var snapshots [][]model.Fields
	unsub, err := a.Subscribe("", "invoices", func(records []model.Fields) {
		snapshots = append(snapshots, records)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	if len(snapshots) != 1 || len(snapshots[0]) != 0 {
		t.Fatalf("expected one initial empty snapshot, got %v", snapshots)
	}

	if err := a.Save(ctx, "", "invoices", model.Fields{"id": "i1", "number": "2025-001"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// No polling: the snapshot must already be here.
	if len(snapshots) != 2 {
		t.Fatalf("expected snapshot pushed synchronously by Save, got %d snapshots", len(snapshots))
	}
	if len(snapshots[1]) != 1 || snapshots[1][0].ID() != "i1" {
		t.Errorf("unexpected snapshot: %v", snapshots[1])
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	// Deleting from an empty collection must not error.
	if err := a.Delete(ctx, "", "projects", "nope"); err != nil {
		t.Fatalf("Delete on empty collection failed: %v", err)
	}

	if err := a.Save(ctx, "", "projects", model.Fields{"id": "p1", "name": "Site"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := a.Delete(ctx, "", "projects", "p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := a.Delete(ctx, "", "projects", "p1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if got := len(a.Load("projects")); got != 0 {
		t.Errorf("expected empty collection, got %d records", got)
	}
}

func TestUnsubscribeStopsCallbacksAndIsIsolated(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	var invoiceCalls, clientCalls int
	unsubInvoices, _ := a.Subscribe("", "invoices", func([]model.Fields) { invoiceCalls++ })
	unsubClients, _ := a.Subscribe("", "clients", func([]model.Fields) { clientCalls++ })
	defer unsubClients()

	unsubInvoices()
	unsubInvoices() // idempotent

	if err := a.Save(ctx, "", "invoices", model.Fields{"id": "i1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := a.Save(ctx, "", "clients", model.Fields{"id": "c1", "name": "Acme"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if invoiceCalls != 1 {
		t.Errorf("unsubscribed invoices callback fired: %d calls (want 1 initial only)", invoiceCalls)
	}
	if clientCalls != 2 {
		t.Errorf("clients subscription should be unaffected: %d calls (want 2)", clientCalls)
	}
}

func TestCorruptDataReadsAsEmpty(t *testing.T) {
	a, kv := newTestAdapter(t)

	if err := kv.SetItem(collectionKey("transactions"), "{not json"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	records := a.Load("transactions")
	if len(records) != 0 {
		t.Errorf("corrupt data should read as empty, got %v", records)
	}

	// And the collection stays usable for writes.
	if err := a.Save(context.Background(), "", "transactions", model.Fields{"id": "t1"}); err != nil {
		t.Fatalf("Save after corruption failed: %v", err)
	}
	if got := len(a.Load("transactions")); got != 1 {
		t.Errorf("expected 1 record after recovery, got %d", got)
	}
}

func TestWriteFailurePropagatesAsLocalPersist(t *testing.T) {
	a, kv := newTestAdapter(t)
	kv.FailWrites(errors.New("quota exceeded"))

	err := a.Save(context.Background(), "", "clients", model.Fields{"id": "c1"})
	if err == nil {
		t.Fatal("expected Save to fail when the store rejects writes")
	}
	if !errors.Is(err, store.ErrLocalPersist) {
		t.Errorf("expected ErrLocalPersist, got %v", err)
	}

	if err := a.Delete(context.Background(), "", "clients", "c1"); !errors.Is(err, store.ErrLocalPersist) {
		t.Errorf("expected ErrLocalPersist from Delete, got %v", err)
	}
}

func TestSubscriberNotNotifiedOnFailedWrite(t *testing.T) {
	a, kv := newTestAdapter(t)

	calls := 0
	unsub, _ := a.Subscribe("", "clients", func([]model.Fields) { calls++ })
	defer unsub()

	kv.FailWrites(errors.New("disk full"))
	_ = a.Save(context.Background(), "", "clients", model.Fields{"id": "c1"})

	if calls != 1 {
		t.Errorf("failed write must not push a snapshot: %d calls (want 1 initial only)", calls)
	}
}
