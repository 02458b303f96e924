package bus

import (
	"strings"
	"sync"
	"time"
)

// Bus is an in-process publish/subscribe dispatcher. Subscribers receive
// every event whose topic starts with their registered prefix. Delivery is
// non-blocking: a subscriber that cannot keep up loses events rather than
// stalling the publisher.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	readers map[int]*reader
}

type reader struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{readers: make(map[int]*reader)}
}

// Publish delivers evt to every matching subscriber. A zero At is stamped
// with the current time.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.readers {
		if !strings.HasPrefix(evt.Topic, r.prefix) {
			continue
		}
		select {
		case r.ch <- evt:
		default:
			// Slow subscriber: drop instead of blocking the publisher.
		}
	}
}

// Subscribe registers a topic-prefix subscriber with the given channel
// buffer and returns the receive channel plus an unsubscribe function.
func (b *Bus) Subscribe(prefix string, buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.readers[id] = &reader{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.readers, id)
		b.mu.Unlock()
	}
}
