package timeline

import (
	"sort"
	"sync"
)

// MergeOutcome describes what a Merge call did to the store.
type MergeOutcome int

const (
	// Inserted means the message was new and was added.
	Inserted MergeOutcome = iota
	// Promoted means the message confirmed an existing pending entry in
	// place.
	Promoted
	// Duplicate means an equivalent entry already existed; nothing changed.
	Duplicate
)

// Store is the conversation store for exactly one peer: an ordered,
// deduplicated sequence of messages. Ordering is ascending creation time
// with ties broken by insertion order. All mutation goes through the
// reconciliation engine; the store only enforces the local invariants.
type Store struct {
	mu      sync.Mutex
	peer    string
	entries []Message
}

// NewStore returns an empty store with no selected peer.
func NewStore() *Store {
	return &Store{}
}

// Peer returns the identity the store currently belongs to.
func (s *Store) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Reset clears the store and rebinds it to peer. Called synchronously on
// peer switch so no entry from the previous conversation can leak into the
// new one, even transiently.
func (s *Store) Reset(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = peer
	s.entries = nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Messages returns a copy of the ordered entries.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.entries))
	copy(out, s.entries)
	return out
}

// Pending returns the entries still awaiting confirmation.
func (s *Store) Pending() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.entries {
		if m.Pending() {
			out = append(out, m)
		}
	}
	return out
}

// Merge inserts m unless an equivalent entry already exists. A confirmed m
// matching a pending entry promotes that entry in place, adopting the
// durable identifier and server timestamp. Conversations are small, so the
// dedup check is a newest-first linear scan.
func (s *Store) Merge(m Message) MergeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !SameSend(s.entries[i], m) {
			continue
		}
		if s.entries[i].Pending() && !m.Pending() {
			s.entries[i] = m
			s.sortLocked()
			return Promoted
		}
		return Duplicate
	}
	s.entries = append(s.entries, m)
	s.sortLocked()
	return Inserted
}

// Promote replaces the entry carrying pendingID with confirmed. Returns
// false if no such entry exists (already promoted, or the store was reset).
func (s *Store) Promote(pendingID string, confirmed Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.entries {
		if m.ID == pendingID {
			s.entries[i] = confirmed
			s.sortLocked()
			return true
		}
	}
	return false
}

// Remove deletes the entry with the given identifier.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.entries {
		if m.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceAll swaps the contents for a normalized snapshot, keeping the
// current peer binding. The snapshot is re-sorted; entries arriving out of
// timestamp order relative to each other are routine.
func (s *Store) ReplaceAll(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]Message, len(msgs))
	copy(s.entries, msgs)
	s.sortLocked()
}

// sortLocked restores ascending creation-time order. The sort is stable so
// equal timestamps keep their insertion order.
func (s *Store) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].CreatedAt.Before(s.entries[j].CreatedAt)
	})
}
