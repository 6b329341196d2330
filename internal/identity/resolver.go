package identity

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// DefaultAuthTimeout bounds how long the resolver waits for the auth
// provider before degrading to the fallback identity.
const DefaultAuthTimeout = 3000 * time.Millisecond

// AuthProvider is the boundary to the external authentication service.
//
// SignInAnonymously returns the provider-issued user id, or an error on
// explicit rejection. ObserveAuthState registers callbacks for pushed auth
// state; the returned stop function releases the observer.
type AuthProvider interface {
	SignInAnonymously(ctx context.Context) (string, error)
	ObserveAuthState(onChange func(userID string), onError func(err error)) (stop func())
}

// Resolver resolves the session identity exactly once.
//
// The resolution races three outcomes: provider success, explicit provider
// failure, and a fixed timeout. Whichever arrives first wins; the other
// paths are inert afterwards (logged, never applied). Auth problems are
// never fatal: failure and timeout both resolve the fallback identity.
type Resolver struct {
	provider AuthProvider
	timeout  time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	resolved bool
	identity Identity
}

// NewResolver creates a Resolver for the given provider.
//
// If timeout is zero, DefaultAuthTimeout is used. If logger is nil, a
// default logger writing to stderr is used.
func NewResolver(provider AuthProvider, timeout time.Duration, logger *log.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[identity] ", log.LstdFlags)
	}
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the session identity, performing the auth race on first
// call. Subsequent calls return the already-resolved identity without
// touching the provider again.
func (r *Resolver) Resolve(ctx context.Context) Identity {
	r.mu.Lock()
	if r.resolved {
		id := r.identity
		r.mu.Unlock()
		return id
	}
	r.mu.Unlock()

	id := r.race(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		r.resolved = true
		r.identity = id
	}
	return r.identity
}

// Resolved returns the identity and whether resolution has happened yet.
func (r *Resolver) Resolved() (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity, r.resolved
}

type authResult struct {
	userID string
	err    error
}

// race runs anonymous sign-in against the timeout. The first outcome wins.
func (r *Resolver) race(ctx context.Context) Identity {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan authResult, 1)
	go func() {
		userID, err := r.provider.SignInAnonymously(ctx)
		select {
		case results <- authResult{userID: userID, err: err}:
		default:
			// A result already won the race. Log so a late real identity
			// is visible in diagnostics, then drop it.
			if err == nil {
				r.logger.Printf("Late auth result for user %s ignored (session already resolved)", userID)
			}
		}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			r.logger.Printf("Auth failed, using fallback identity: %v", res.err)
			return Fallback()
		}
		if res.userID == "" {
			r.logger.Printf("Auth returned empty user id, using fallback identity")
			return Fallback()
		}
		r.logger.Printf("Resolved remote identity %s", res.userID)
		return Identity{Kind: KindRemote, ID: res.userID}

	case <-timer.C:
		r.logger.Printf("Auth timed out after %v, using fallback identity", r.timeout)
		return Fallback()

	case <-ctx.Done():
		r.logger.Printf("Auth cancelled, using fallback identity: %v", ctx.Err())
		return Fallback()
	}
}
