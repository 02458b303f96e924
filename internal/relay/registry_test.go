package relay

import (
	"sync"
	"testing"

	"github.com/brezze/brezze/internal/wire"
)

// fakeConn records everything sent to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []wire.Event
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(evt wire.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeConn) sent() []wire.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1")
	r.Register("alice", c)

	got, ok := r.Lookup("alice")
	if !ok || got.ID() != "c1" {
		t.Errorf("lookup = %v, %v", got, ok)
	}
	if _, ok := r.Lookup("bob"); ok {
		t.Error("lookup of unregistered user succeeded")
	}
}

func TestLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	r.Register("alice", c1)
	r.Register("alice", c2)

	got, _ := r.Lookup("alice")
	if got.ID() != "c2" {
		t.Errorf("registered conn = %s, want c2", got.ID())
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
}

func TestStaleDisconnectGuard(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	r.Register("alice", c1)
	r.Register("alice", c2)

	// c1's late disconnect must not remove c2's registration.
	if _, removed := r.Unregister(c1); removed {
		t.Error("stale disconnect removed the fresh registration")
	}
	got, ok := r.Lookup("alice")
	if !ok || got.ID() != "c2" {
		t.Errorf("lookup after stale disconnect = %v, %v", got, ok)
	}

	userID, removed := r.Unregister(c2)
	if !removed || userID != "alice" {
		t.Errorf("unregister = %q, %v", userID, removed)
	}
	if r.Len() != 0 {
		t.Errorf("len = %d, want 0", r.Len())
	}
}
