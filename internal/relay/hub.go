package relay

import (
	"sync"

	"github.com/brezze/brezze/internal/wire"
	"go.uber.org/zap"
)

// Hub forwards typed events between connections. Every handler is a "look
// up destination, forward if present, otherwise silently drop" step:
// delivery is best-effort and never queued. The registry is the only shared
// mutable state, and only setup and disconnect touch it.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[string]Conn   // all attached connections
	users map[string]string // connID -> userID, set by setup
}

// NewHub creates a hub over the given registry and room table.
func NewHub(registry *Registry, rooms *Rooms, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		registry: registry,
		rooms:    rooms,
		logger:   logger,
		conns:    make(map[string]Conn),
		users:    make(map[string]string),
	}
}

// Attach records a freshly accepted connection prior to setup.
func (h *Hub) Attach(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Dispatch routes one decoded event to its handler. Unknown types are
// dropped; a malformed event never crashes the hub.
func (h *Hub) Dispatch(c Conn, evt wire.Event) {
	switch evt.Type {
	case wire.TypeSetup:
		h.HandleSetup(c, evt)
	case wire.TypeJoinChat:
		h.HandleJoinChat(c, evt)
	case wire.TypeLeaveChat:
		h.HandleLeaveChat(c, evt)
	case wire.TypeTyping:
		h.HandleTyping(c, evt)
	case wire.TypeStopTyping:
		h.HandleStopTyping(c, evt)
	case wire.TypeNewMessage:
		h.HandleNewMessage(c, evt)
	case wire.TypeMarkAsRead:
		h.HandleMarkAsRead(c, evt)
	default:
		h.logger.Debug("dropping event", zap.String("type", string(evt.Type)))
	}
}

// HandleSetup registers the calling connection under the claimed identity
// and acknowledges. A reconnect replaces the previous registration.
func (h *Hub) HandleSetup(c Conn, evt wire.Event) {
	if evt.UserID == "" {
		return
	}
	h.mu.Lock()
	h.users[c.ID()] = evt.UserID
	h.mu.Unlock()
	h.registry.Register(evt.UserID, c)
	h.send(c, wire.Event{Type: wire.TypeConnected})
	h.logger.Info("setup completed", zap.String("user", evt.UserID))
}

// HandleJoinChat adds the caller to a conversation room.
func (h *Hub) HandleJoinChat(c Conn, evt wire.Event) {
	if evt.ChatID == "" {
		return
	}
	h.rooms.Join(evt.ChatID, c)
}

// HandleLeaveChat removes the caller from a conversation room.
func (h *Hub) HandleLeaveChat(c Conn, evt wire.Event) {
	if evt.ChatID == "" {
		return
	}
	h.rooms.Leave(evt.ChatID, c)
}

// HandleTyping forwards a typing notice carrying the caller's identity.
func (h *Hub) HandleTyping(c Conn, evt wire.Event) {
	h.forwardNotice(c, evt.To, wire.TypeTyping)
}

// HandleStopTyping forwards a stop-typing notice.
func (h *Hub) HandleStopTyping(c Conn, evt wire.Event) {
	h.forwardNotice(c, evt.To, wire.TypeStopTyping)
}

func (h *Hub) forwardNotice(c Conn, to string, t wire.Type) {
	from := h.userOf(c)
	if to == "" || from == "" {
		return
	}
	if dest, ok := h.registry.Lookup(to); ok {
		h.send(dest, wire.Event{Type: t, UserID: from})
	}
}

// HandleNewMessage forwards the message payload verbatim to the receiver's
// connection. The hub does not persist, number or acknowledge it; making
// the send durable is the sender's own request/response cycle.
func (h *Hub) HandleNewMessage(c Conn, evt wire.Event) {
	if evt.To == "" || evt.Message == nil {
		return
	}
	if dest, ok := h.registry.Lookup(evt.To); ok {
		h.send(dest, wire.Event{Type: wire.TypeMessageReceived, Message: evt.Message})
	}
}

// HandleMarkAsRead forwards a read notice to the original sender.
func (h *Hub) HandleMarkAsRead(c Conn, evt wire.Event) {
	if evt.MessageID == "" || evt.SenderID == "" {
		return
	}
	if dest, ok := h.registry.Lookup(evt.SenderID); ok {
		h.send(dest, wire.Event{Type: wire.TypeMessageRead, MessageID: evt.MessageID})
	}
}

// HandleDisconnect detaches the connection, unregisters it (stale-disconnect
// guarded) and broadcasts the identity as offline.
func (h *Hub) HandleDisconnect(c Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	delete(h.users, c.ID())
	h.mu.Unlock()
	h.rooms.Drop(c)

	userID, removed := h.registry.Unregister(c)
	if !removed {
		return
	}
	h.logger.Info("user offline", zap.String("user", userID))
	offline := wire.Event{Type: wire.TypeUserOffline, UserID: userID}
	for _, dest := range h.attached() {
		h.send(dest, offline)
	}
}

func (h *Hub) attached() []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) userOf(c Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.users[c.ID()]
}

func (h *Hub) send(c Conn, evt wire.Event) {
	if err := c.Send(evt); err != nil {
		h.logger.Debug("send failed", zap.String("conn", c.ID()), zap.Error(err))
	}
}
