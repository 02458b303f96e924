package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertMessage makes a send durable, assigning the identifier and the
// server timestamp, and returns the stored row.
func (db *DB) InsertMessage(senderID, receiverID, body string) (*Message, error) {
	m := &Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, sender_id, receiver_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Body, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// Conversation returns the messages between two users ordered ascending by
// creation time, ties by insertion order. since and until bound the range
// in unix milliseconds; zero means unbounded.
func (db *DB) Conversation(userA, userB string, since, until int64) ([]Message, error) {
	if until <= 0 {
		until = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, sender_id, receiver_id, body, created_at
		FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND created_at > ? AND created_at < ?
		ORDER BY created_at ASC, seq ASC`,
		userA, userB, userB, userA, since, until)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
