package timeline

import (
	"strings"
	"time"

	"github.com/brezze/brezze/internal/wire"
	"github.com/google/uuid"
)

// Status tags a message as optimistic (pending) or durable (confirmed).
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// pendingIDPrefix marks locally generated placeholder identifiers. A real
// identifier is assigned by the history service once the send persists.
const pendingIDPrefix = "pending-"

// NewPendingID returns a fresh placeholder identifier.
func NewPendingID() string {
	return pendingIDPrefix + uuid.NewString()
}

// IsPendingID reports whether id is a locally generated placeholder.
func IsPendingID(id string) bool {
	return strings.HasPrefix(id, pendingIDPrefix)
}

// Message is one entry in the conversation store.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	CreatedAt  time.Time
	Status     Status
}

// Pending reports whether the entry is still awaiting confirmation.
func (m Message) Pending() bool {
	return m.Status == StatusPending
}

// DedupWindow is the tolerance between the client-assigned timestamp of a
// pending entry and the server-assigned timestamp of the same send.
const DedupWindow = time.Second

// SameSend reports whether a and b represent the same logical send: either
// their identifiers are equal and both durable, or sender, body and creation
// times agree within DedupWindow. The second clause is the only bridge
// between the pending and confirmed representations of one send, whose
// identifiers differ by construction.
func SameSend(a, b Message) bool {
	if a.ID != "" && a.ID == b.ID && !IsPendingID(a.ID) && !IsPendingID(b.ID) {
		return true
	}
	if a.SenderID != b.SenderID || a.Body != b.Body {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= DedupWindow
}

// FromWire converts a relay/REST message into a confirmed store entry.
func FromWire(m wire.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
		Status:     StatusConfirmed,
	}
}

// ToWire converts a store entry into its wire representation.
func ToWire(m Message) wire.Message {
	return wire.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}
