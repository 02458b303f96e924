package relay

import (
	"sync"

	"github.com/brezze/brezze/internal/wire"
)

// Rooms tracks broadcast-group membership keyed by the pair identifier of a
// conversation. Rooms carry optional room-scoped broadcasts only; 1:1
// delivery correctness always goes through the Registry.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]Conn // chatID -> connID -> conn
}

// NewRooms returns an empty membership table.
func NewRooms() *Rooms {
	return &Rooms{members: make(map[string]map[string]Conn)}
}

// Join adds c to the room.
func (r *Rooms) Join(chatID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.members[chatID]
	if !ok {
		room = make(map[string]Conn)
		r.members[chatID] = room
	}
	room[c.ID()] = c
}

// Leave removes c from the room.
func (r *Rooms) Leave(chatID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.members[chatID]; ok {
		delete(room, c.ID())
		if len(room) == 0 {
			delete(r.members, chatID)
		}
	}
}

// Drop removes c from every room, used on disconnect.
func (r *Rooms) Drop(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for chatID, room := range r.members {
		delete(room, c.ID())
		if len(room) == 0 {
			delete(r.members, chatID)
		}
	}
}

// Broadcast sends evt to every member of the room except the connection
// named by exceptConnID. Returns the number of deliveries attempted.
func (r *Rooms) Broadcast(chatID string, evt wire.Event, exceptConnID string) int {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.members[chatID]))
	for id, c := range r.members[chatID] {
		if id != exceptConnID {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range conns {
		_ = c.Send(evt)
	}
	return len(conns)
}

// Members returns the member count of a room.
func (r *Rooms) Members(chatID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[chatID])
}
