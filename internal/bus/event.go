package bus

import "time"

// Topics follow a dotted "<area>.<what>" convention. The client publishes
// "relay.*" for inbound relay events, "timeline.*" for store mutations and
// "conn.*" for transport lifecycle changes.
const (
	TopicRelay    = "relay."
	TopicTimeline = "timeline."
	TopicConn     = "conn."
)

// Event is a single in-process notification.
type Event struct {
	Topic   string
	At      time.Time
	Payload any
}
