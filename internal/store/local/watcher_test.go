package local

import (
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fathom/ledgerdesk/internal/model"
)

func TestStoreWatcherPushesOnExternalEdit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	adapter := New(kv, log.New(io.Discard, "", 0))

	var mu sync.Mutex
	var latest []model.Fields
	unsub, err := adapter.Subscribe("", "clients", func(records []model.Fields) {
		mu.Lock()
		latest = records
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsub()

	watcher, err := NewStoreWatcher(adapter, kv, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewStoreWatcher failed: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("watcher Start failed: %v", err)
	}
	defer watcher.Stop()

	// Simulate another process writing the collection file directly.
	if err := kv.SetItem(collectionKey("clients"), `[{"id":"c9","name":"External"}]`); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(latest)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for external change to reach the subscription")
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if latest[0].ID() != "c9" {
		t.Errorf("unexpected snapshot: %v", latest)
	}
}

func TestStoreWatcherStopIsClean(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	adapter := New(kv, log.New(io.Discard, "", 0))

	watcher, err := NewStoreWatcher(adapter, kv, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewStoreWatcher failed: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stopping twice is a no-op.
	if err := watcher.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
