package wire

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := &Message{
		ID:         "m1",
		SenderID:   "alice",
		ReceiverID: "bob",
		Body:       "hi",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := Encode(Event{Type: TypeNewMessage, To: "bob", Message: msg})
	if err != nil {
		t.Fatal(err)
	}

	evt, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if evt.Type != TypeNewMessage || evt.To != "bob" {
		t.Errorf("decoded envelope = %+v", evt)
	}
	if evt.Message == nil || evt.Message.Body != "hi" {
		t.Errorf("decoded message = %+v", evt.Message)
	}
	if !evt.Message.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", evt.Message.CreatedAt, msg.CreatedAt)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"missing type", `{"to":"bob"}`},
		{"empty", ``},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeRejectsEmptyType(t *testing.T) {
	if _, err := Encode(Event{}); err == nil {
		t.Error("expected error for empty type")
	}
}
