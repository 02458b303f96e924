package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CreateUser inserts a new account and returns it.
func (db *DB) CreateUser(email, fullName, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO users (id, email, full_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByEmail looks an account up by email.
func (db *DB) UserByEmail(email string) (*User, error) {
	return db.scanUser(db.QueryRow(`
		SELECT id, email, full_name, password_hash, created_at
		FROM users WHERE email = ?`, email))
}

// UserByID looks an account up by identifier.
func (db *DB) UserByID(id string) (*User, error) {
	return db.scanUser(db.QueryRow(`
		SELECT id, email, full_name, password_hash, created_at
		FROM users WHERE id = ?`, id))
}

func (db *DB) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Sidebar returns every account except self, each with the most recent
// message exchanged with self, ordered by that message's recency.
func (db *DB) Sidebar(selfID string) ([]SidebarEntry, error) {
	rows, err := db.Query(`
		SELECT id, email, full_name, password_hash, created_at
		FROM users WHERE id != ? ORDER BY full_name`, selfID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []SidebarEntry
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, SidebarEntry{User: u})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		m, err := db.lastMessage(selfID, entries[i].User.ID)
		if err != nil {
			return nil, err
		}
		entries[i].LastMessage = m
	}
	return entries, nil
}

func (db *DB) lastMessage(a, b string) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, sender_id, receiver_id, body, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, a, b, b, a).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
