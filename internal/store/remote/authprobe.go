package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Pinger is the connectivity check AuthProbe needs from the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuthProbe is an auth provider backed by the remote store itself. It
// signs in by verifying connectivity and handing out a persistent
// anonymous id minted on first use and stored on disk, so the same
// device keeps the same remote identity across sessions.
type AuthProbe struct {
	store  Pinger
	idPath string
}

// NewAuthProbe creates an AuthProbe persisting the device id at idPath.
func NewAuthProbe(store Pinger, idPath string) *AuthProbe {
	return &AuthProbe{store: store, idPath: idPath}
}

// SignInAnonymously checks the remote is reachable and returns the
// device's persistent anonymous id.
func (p *AuthProbe) SignInAnonymously(ctx context.Context) (string, error) {
	if err := p.store.Ping(ctx); err != nil {
		return "", fmt.Errorf("remote store unreachable: %w", err)
	}

	if data, err := os.ReadFile(p.idPath); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(p.idPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create id directory: %w", err)
	}
	if err := os.WriteFile(p.idPath, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

// ObserveAuthState runs a single sign-in attempt in the background and
// reports the outcome. The returned stop function cancels the attempt.
func (p *AuthProbe) ObserveAuthState(onChange func(userID string), onError func(err error)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		id, err := p.SignInAnonymously(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(id)
		}
	}()
	return cancel
}
