package local

import "sync"

// notifier is the in-process listener registry that turns local mutations
// into subscription callbacks. Notify runs listeners synchronously in the
// caller's goroutine, so a Save is observable by its paired subscription
// before Save returns.
type notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]func() // collection -> listener id -> fn
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[string]map[int]func())}
}

// subscribe registers fn for a collection and returns an idempotent
// removal function.
func (n *notifier) subscribe(collection string, fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.listeners[collection] == nil {
		n.listeners[collection] = make(map[int]func())
	}
	n.listeners[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[collection], id)
		})
	}
}

// notify invokes every listener registered for the collection. The
// listener set is copied under the lock so a listener unsubscribing (or
// subscribing) during dispatch cannot corrupt iteration.
func (n *notifier) notify(collection string) {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.listeners[collection]))
	for _, fn := range n.listeners[collection] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
