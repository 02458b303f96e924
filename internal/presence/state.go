package presence

import (
	"context"
	"sync"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/wire"
)

// Entry is the derived per-user indicator pair. Absence of an entry means
// unknown/offline.
type Entry struct {
	Online bool
	Typing bool
}

// State holds presence and typing indicators derived from relay events. It
// is a pure reducer: never persisted, rebuilt from whatever arrives, and
// last write wins when events arrive out of order.
type State struct {
	mu     sync.RWMutex
	users  map[string]Entry
	cancel context.CancelFunc
}

// NewState returns an empty presence view.
func NewState() *State {
	return &State{users: make(map[string]Entry)}
}

// Start subscribes the view to inbound relay events on b.
func (s *State) Start(ctx context.Context, b *bus.Bus) {
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := b.Subscribe(bus.TopicRelay, 64)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if env, ok := evt.Payload.(wire.Event); ok {
					s.Apply(env)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bus subscription.
func (s *State) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Apply folds one relay event into the view. Unrelated event types are
// ignored.
func (s *State) Apply(evt wire.Event) {
	switch evt.Type {
	case wire.TypeTyping:
		s.SetTyping(evt.UserID)
	case wire.TypeStopTyping:
		s.ClearTyping(evt.UserID)
	case wire.TypeUserOffline:
		s.SetOffline(evt.UserID)
	}
}

// SetTyping marks a user as typing. A typing notice implies the user is
// online.
func (s *State) SetTyping(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = Entry{Online: true, Typing: true}
}

// ClearTyping clears the typing flag, keeping the online flag.
func (s *State) ClearTyping(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.users[userID]
	e.Typing = false
	s.users[userID] = e
}

// SetOnline marks a user as online.
func (s *State) SetOnline(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.users[userID]
	e.Online = true
	s.users[userID] = e
}

// SetOffline clears both flags for a user.
func (s *State) SetOffline(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = Entry{}
}

// Get returns the indicators for a user; ok is false when nothing is known.
func (s *State) Get(userID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[userID]
	return e, ok
}

// Reset drops all derived state, e.g. on relay reconnect.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]Entry)
}
