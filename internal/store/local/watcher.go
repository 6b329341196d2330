package local

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StoreWatcher watches a FileKV directory for out-of-process edits and
// re-pushes the affected collection's snapshot to in-process subscribers.
// It uses fsnotify for cross-platform file system event monitoring, with
// a short debounce so editors that write-then-rename don't trigger
// duplicate pushes.
type StoreWatcher struct {
	adapter *Adapter
	kv      *FileKV
	watcher *fsnotify.Watcher
	logger  *log.Logger

	debounce time.Duration
	pending  map[string]time.Time // collection -> last event time
	mu       sync.Mutex

	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewStoreWatcher creates a watcher for the adapter's file-backed store.
// The watcher must be started with Start() before it will emit anything.
func NewStoreWatcher(adapter *Adapter, kv *FileKV, logger *log.Logger) (*StoreWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}
	return &StoreWatcher{
		adapter:  adapter,
		kv:       kv,
		watcher:  w,
		logger:   logger,
		debounce: 100 * time.Millisecond,
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the store directory.
func (sw *StoreWatcher) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return fmt.Errorf("watcher already running")
	}
	if err := sw.watcher.Add(sw.kv.Dir()); err != nil {
		return fmt.Errorf("failed to watch store directory %s: %w", sw.kv.Dir(), err)
	}

	sw.running = true
	sw.wg.Add(2)
	go sw.processEvents()
	go sw.flushPending()
	return nil
}

// Stop stops watching and blocks until the event goroutines have exited.
func (sw *StoreWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.done)
	if err := sw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	sw.wg.Wait()
	return nil
}

func (sw *StoreWatcher) processEvents() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.done:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Skip the temp files our own atomic writes produce.
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			key, ok := sw.kv.KeyForPath(event.Name)
			if !ok {
				continue
			}
			collection, ok := CollectionForKey(key)
			if !ok {
				continue
			}
			sw.mu.Lock()
			sw.pending[collection] = time.Now()
			sw.mu.Unlock()

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Printf("Watcher error: %v", err)
		}
	}
}

// flushPending pushes snapshots for collections whose last event is older
// than the debounce interval.
func (sw *StoreWatcher) flushPending() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return

		case <-ticker.C:
			now := time.Now()
			var ready []string
			sw.mu.Lock()
			for collection, at := range sw.pending {
				if now.Sub(at) >= sw.debounce {
					ready = append(ready, collection)
					delete(sw.pending, collection)
				}
			}
			sw.mu.Unlock()

			for _, collection := range ready {
				sw.logger.Printf("External change detected in %s", collection)
				sw.adapter.NotifyExternalChange(collection)
			}
		}
	}
}
