// Package identity resolves the active user identity for a session.
//
// A session has exactly one identity, resolved once at startup. When the
// remote auth provider is unreachable or fails, the resolver degrades to a
// synthetic fallback identity so the application stays usable offline. The
// identity's kind drives which storage backend every collection uses for
// the rest of the session.
package identity

// Kind discriminates how an identity was obtained.
type Kind int

const (
	// KindRemote is a real identity issued by the auth provider.
	KindRemote Kind = iota
	// KindFallback is the synthetic local-only identity used when remote
	// auth is unavailable.
	KindFallback
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// FallbackID is the fixed id of the fallback identity. Local records are
// tagged with it.
const FallbackID = "offline"

// Identity is the resolved user handle for this session. It is immutable
// once resolved; routing decisions switch on Kind, never on the id string.
type Identity struct {
	Kind Kind
	ID   string
}

// Fallback returns the synthetic offline identity.
func Fallback() Identity {
	return Identity{Kind: KindFallback, ID: FallbackID}
}

// IsFallback reports whether this is the synthetic offline identity.
func (id Identity) IsFallback() bool {
	return id.Kind == KindFallback
}

// String returns "kind:id" for logging.
func (id Identity) String() string {
	return id.Kind.String() + ":" + id.ID
}
