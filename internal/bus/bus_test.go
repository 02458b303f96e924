package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(TopicRelay, 10)
	defer unsub()

	b.Publish(Event{Topic: "relay.message_received", Payload: "hi"})

	select {
	case evt := <-ch:
		if evt.Topic != "relay.message_received" {
			t.Errorf("topic = %q, want relay.message_received", evt.Topic)
		}
		if evt.At.IsZero() {
			t.Error("publish did not stamp At")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(TopicTimeline, 10)
	defer unsub()

	b.Publish(Event{Topic: "relay.typing"})
	b.Publish(Event{Topic: "timeline.updated"})

	select {
	case evt := <-ch:
		if evt.Topic != "timeline.updated" {
			t.Errorf("topic = %q, want timeline.updated", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected second event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(TopicConn, 10)
	unsub()

	b.Publish(Event{Topic: "conn.ready"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("t.", 1)
	defer unsub()

	b.Publish(Event{Topic: "t.one"})
	b.Publish(Event{Topic: "t.two"}) // buffer full, dropped

	evt := <-ch
	if evt.Topic != "t.one" {
		t.Errorf("topic = %q, want t.one", evt.Topic)
	}
	select {
	case evt := <-ch:
		t.Errorf("dropped event was delivered: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
