package syncer

import (
	"log"
	"sync"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/store"
)

// subState tracks a subscription through its lifecycle. There is no error
// state: adapter-level failures degrade in place and the subscription
// stays nominally active holding its last-known snapshot.
type subState int

const (
	stateUnsubscribed subState = iota
	stateSubscribing
	stateActive
)

// String returns a human-readable representation of the state.
func (s subState) String() string {
	switch s {
	case stateUnsubscribed:
		return "unsubscribed"
	case stateSubscribing:
		return "subscribing"
	case stateActive:
		return "active"
	default:
		return "unknown"
	}
}

// subscription is the synchronizer's handle around one adapter
// subscription. It gates callbacks on liveness and makes unsubscribe
// idempotent regardless of how the adapter behaves.
type subscription struct {
	id         identity.Identity
	collection string
	logger     *log.Logger

	mu      sync.Mutex
	state   subState
	release store.UnsubscribeFunc
}

func newSubscription(id identity.Identity, collection string, logger *log.Logger) *subscription {
	return &subscription{
		id:         id,
		collection: collection,
		logger:     logger,
		state:      stateSubscribing,
	}
}

// active reports whether callbacks should still be delivered. During
// adapter setup the subscription is SUBSCRIBING and the initial snapshot
// is allowed through.
func (s *subscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateSubscribing || s.state == stateActive
}

// activate records the adapter's release function and moves to ACTIVE.
// If unsubscribe already ran while the adapter was setting up, the
// release function is invoked immediately so nothing leaks.
func (s *subscription) activate(release store.UnsubscribeFunc) {
	s.mu.Lock()
	if s.state == stateUnsubscribed {
		s.mu.Unlock()
		if release != nil {
			release()
		}
		return
	}
	s.state = stateActive
	s.release = release
	s.mu.Unlock()
}

// fail moves a subscription that never activated back to UNSUBSCRIBED.
func (s *subscription) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateUnsubscribed
}

// unsubscribe releases the underlying adapter listener. Idempotent: only
// the first call does any work, and no callback is delivered after it
// returns.
func (s *subscription) unsubscribe() {
	s.mu.Lock()
	if s.state == stateUnsubscribed {
		s.mu.Unlock()
		return
	}
	s.state = stateUnsubscribed
	release := s.release
	s.release = nil
	s.mu.Unlock()

	if release != nil {
		release()
	}
	s.logger.Printf("Unsubscribed %s from %s", s.id, s.collection)
}
