package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brezze/brezze/internal/wire"
)

// Account is a user as reported by the server.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// SidebarEntry is a contact with its most recent message, if any.
type SidebarEntry struct {
	Account
	LastMessage *wire.Message `json:"lastMessage,omitempty"`
}

// APIError is a non-2xx server response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the server's REST API. The cookie jar carries the session
// token across calls and is shared with the websocket dialer.
type Client struct {
	baseURL string
	jar     http.CookieJar
	http    *http.Client
}

// NewClient creates a REST client for the given server URL.
func NewClient(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		jar:     jar,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Jar exposes the session cookies for the websocket dialer.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Signup registers a new account and establishes a session.
func (c *Client) Signup(ctx context.Context, email, fullName, password string) (*Account, error) {
	var out Account
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    email,
		"fullName": fullName,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login establishes a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*Account, error) {
	var out Account
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser returns the account owning the session.
func (c *Client) CurrentUser(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sidebar lists all other users with their latest message.
func (c *Client) Sidebar(ctx context.Context) ([]SidebarEntry, error) {
	var out []SidebarEntry
	if err := c.do(ctx, http.MethodGet, "/api/messages/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchConversation returns the persisted thread with a peer, oldest first.
// since and until are unix millisecond bounds; zero means unbounded.
func (c *Client) FetchConversation(ctx context.Context, peerID string, since, until int64) ([]wire.Message, error) {
	path := "/api/messages/" + url.PathEscape(peerID)
	q := url.Values{}
	if since > 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	if until > 0 {
		q.Set("until", strconv.FormatInt(until, 10))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []wire.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PersistMessage stores a message on the server and returns the canonical
// record with its server-assigned id and timestamp.
func (c *Client) PersistMessage(ctx context.Context, receiverID, body string) (wire.Message, error) {
	var out wire.Message
	err := c.do(ctx, http.MethodPost, "/api/messages/send/"+url.PathEscape(receiverID), map[string]string{
		"message": body,
	}, &out)
	return out, err
}

// Logout clears the server session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
