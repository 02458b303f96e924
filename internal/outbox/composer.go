package outbox

import "sync"

// Composer holds the text being typed for the open conversation. The
// pipeline clears it optimistically on send and restores it on failure.
type Composer struct {
	mu    sync.Mutex
	draft string
}

// NewComposer returns an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Set replaces the draft.
func (c *Composer) Set(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the current draft.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Take clears the draft and returns what it held.
func (c *Composer) Take() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := c.draft
	c.draft = ""
	return text
}

// Restore puts a failed send's text back, mirroring the upstream behavior
// of returning the original text to the compose field.
func (c *Composer) Restore(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}
