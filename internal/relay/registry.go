package relay

import (
	"sync"

	"github.com/brezze/brezze/internal/wire"
)

// Conn is a live transport connection as the hub sees it. The ws transport
// implements it; tests use in-memory fakes.
type Conn interface {
	ID() string
	Send(evt wire.Event) error
}

// Registry maps a user identity to its single active connection. Liveness
// only: state is lost on restart and rebuilt as clients re-issue setup.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]Conn)}
}

// Register binds userID to c, replacing any prior connection for that
// identity. Last write wins; there is no multi-device fan-out.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = c
}

// Lookup returns the active connection for userID, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Unregister removes the entry held by the disconnecting connection and
// returns the identity it carried. If the identity was re-registered on a
// newer connection in the meantime, the stale disconnect is a no-op.
func (r *Registry) Unregister(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, cur := range r.byUser {
		if cur.ID() == c.ID() {
			delete(r.byUser, userID)
			return userID, true
		}
	}
	return "", false
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
