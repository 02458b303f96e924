package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/wire"
)

func conversationServer(t *testing.T, threads map[string][]wire.Message, gate <-chan struct{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peer := strings.TrimPrefix(r.URL.Path, "/api/messages/")
		if gate != nil && peer == "slow" {
			<-gate
		}
		msgs, ok := threads[peer]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "user not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(msgs)
	}))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never held")
}

func TestOpenLoadsSnapshot(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond)
	srv := conversationServer(t, map[string][]wire.Message{
		"peer": {
			{ID: "m1", SenderID: "peer", ReceiverID: "u1", Body: "hi", CreatedAt: base},
			{ID: "m2", SenderID: "u1", ReceiverID: "peer", Body: "hello", CreatedAt: base.Add(time.Second)},
		},
	}, nil)
	defer srv.Close()

	rest, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(Account{ID: "u1"}, rest, bus.New(), nil)
	s.Open(context.Background(), Account{ID: "peer"})

	waitFor(t, func() bool { return len(s.Messages()) == 2 })
	msgs := s.Messages()
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("timeline = %+v", msgs)
	}
}

func TestStaleSnapshotDiscardedOnPeerSwitch(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Millisecond)
	gate := make(chan struct{})
	srv := conversationServer(t, map[string][]wire.Message{
		"slow": {{ID: "old", SenderID: "slow", ReceiverID: "u1", Body: "stale", CreatedAt: base}},
		"fast": {{ID: "new", SenderID: "fast", ReceiverID: "u1", Body: "fresh", CreatedAt: base}},
	}, gate)
	defer srv.Close()

	rest, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(Account{ID: "u1"}, rest, bus.New(), nil)

	ctx := context.Background()
	s.Open(ctx, Account{ID: "slow"})
	s.Open(ctx, Account{ID: "fast"})
	close(gate)

	waitFor(t, func() bool { return len(s.Messages()) == 1 })
	// Give the stale fetch time to land and be discarded.
	time.Sleep(100 * time.Millisecond)
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != "new" {
		t.Errorf("timeline = %+v, want only the fresh thread", msgs)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	srv := conversationServer(t, nil, nil)
	defer srv.Close()

	rest, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(Account{ID: "u1"}, rest, bus.New(), nil)
	if _, err := s.Send(context.Background(), "hello"); err == nil {
		t.Error("send without a relay connection should fail")
	}
}
