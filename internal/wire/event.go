package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type names a relay event. The set is closed; unknown types are dropped by
// the hub.
type Type string

const (
	TypeSetup           Type = "setup"
	TypeConnected       Type = "connected"
	TypeJoinChat        Type = "join_chat"
	TypeLeaveChat       Type = "leave_chat"
	TypeTyping          Type = "typing"
	TypeStopTyping      Type = "stop_typing"
	TypeNewMessage      Type = "new_message"
	TypeMessageReceived Type = "message_received"
	TypeMarkAsRead      Type = "mark_as_read"
	TypeMessageRead     Type = "message_read"
	TypeUserOffline     Type = "user_offline"
)

// Message is the wire representation of a persisted chat message. It is also
// the REST DTO; the relay forwards it verbatim.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is the single JSON envelope exchanged on the relay socket. Fields
// are populated per event type; absent fields are omitted on the wire.
type Event struct {
	Type      Type     `json:"type"`
	UserID    string   `json:"userId,omitempty"`
	ChatID    string   `json:"chatId,omitempty"`
	To        string   `json:"to,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	SenderID  string   `json:"senderId,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// Encode marshals an event for the socket.
func Encode(evt Event) ([]byte, error) {
	if evt.Type == "" {
		return nil, fmt.Errorf("encode event: empty type")
	}
	return json.Marshal(evt)
}

// Decode parses an envelope. A payload without a type field is rejected;
// per-field validation is left to the hub handlers so that a malformed event
// can be dropped without tearing down the connection.
func Decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return evt, nil
}
