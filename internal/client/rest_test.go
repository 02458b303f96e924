package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brezze/brezze/internal/wire"
)

func TestRelayURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://127.0.0.1:8400", "ws://127.0.0.1:8400/ws", false},
		{"https://chat.example.com", "wss://chat.example.com/ws", false},
		{"http://host:1234/", "ws://host:1234/ws", false},
		{"ftp://host", "", true},
	}
	for _, tt := range tests {
		got, err := relayURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("relayURL(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("relayURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoginCarriesSessionCookie(t *testing.T) {
	var sawCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "jwt", Value: "token-1", Path: "/"})
			_ = json.NewEncoder(w).Encode(Account{ID: "u1", Email: "ada@example.com"})
		case "/api/auth/check":
			if c, err := r.Cookie("jwt"); err == nil {
				sawCookie = c.Value
			}
			_ = json.NewEncoder(w).Encode(Account{ID: "u1", Email: "ada@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	u, err := c.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != "u1" {
		t.Errorf("login returned %+v", u)
	}
	if _, err := c.CurrentUser(ctx); err != nil {
		t.Fatal(err)
	}
	if sawCookie != "token-1" {
		t.Errorf("check request carried cookie %q, want token-1", sawCookie)
	}
}

func TestFetchConversationBounds(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"since": r.URL.Query().Get("since"),
			"until": r.URL.Query().Get("until"),
		}
		_ = json.NewEncoder(w).Encode([]wire.Message{
			{ID: "m1", SenderID: "peer", ReceiverID: "u1", Body: "hi", CreatedAt: time.Now()},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := c.FetchConversation(context.Background(), "peer", 1000, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("got %+v", msgs)
	}
	if gotQuery["since"] != "1000" || gotQuery["until"] != "2000" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "receiver not found"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.PersistMessage(context.Background(), "nobody", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "receiver not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}
