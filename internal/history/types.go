package history

// User is a registered account.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    int64
}

// Message is a persisted chat message. CreatedAt is unix milliseconds,
// assigned by the server at insert time.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	CreatedAt  int64
}

// SidebarEntry pairs a user with the last message exchanged with them, for
// the conversation listing.
type SidebarEntry struct {
	User        User
	LastMessage *Message
}
