package presence

import (
	"sync"
	"time"
)

// DefaultTypingWindow is the coalescing window for outbound typing notices.
const DefaultTypingWindow = 300 * time.Millisecond

// Notifier coalesces calls within a window, executing fn at most once per
// window. It rate-limits outbound typing notices so a burst of keystrokes
// becomes a single notice. Stop-typing is the caller's responsibility; the
// notifier never infers it from a timeout.
type Notifier struct {
	mu     sync.Mutex
	window time.Duration
	fn     func()
	timer  *time.Timer
	armed  bool
}

// NewNotifier creates a notifier firing fn at most once per window.
func NewNotifier(window time.Duration, fn func()) *Notifier {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &Notifier{window: window, fn: fn}
}

// Ping records input activity. The first ping of a window arms the timer;
// pings while armed are absorbed.
func (n *Notifier) Ping() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.armed {
		return
	}
	n.armed = true
	n.timer = time.AfterFunc(n.window, func() {
		n.mu.Lock()
		n.armed = false
		n.mu.Unlock()
		n.fn()
	})
}

// Cancel discards any armed notice. Called on teardown and when the caller
// emits an explicit stop-typing.
func (n *Notifier) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.armed = false
}
