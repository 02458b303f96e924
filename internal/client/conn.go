package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/wire"
	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

// Conn is the live relay connection. Incoming events are decoded and
// published on the bus under the relay topic; outgoing events are serialized
// under a write mutex.
type Conn struct {
	self   string
	bus    *bus.Bus
	logger *zap.Logger

	mu sync.Mutex
	ws *websocket.Conn
}

// Dial connects to the server's relay endpoint. The cookie jar from the REST
// client authenticates the upgrade request with the session cookie.
func Dial(ctx context.Context, serverURL, self string, jar http.CookieJar, b *bus.Bus, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	wsURL, err := relayURL(serverURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Jar:              jar,
		HandshakeTimeout: 10 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return &Conn{self: self, bus: b, logger: logger, ws: ws}, nil
}

func relayURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Emit sends an event to the server.
func (c *Conn) Emit(evt wire.Event) error {
	data, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Setup announces the caller identity; the server answers with a connected
// ack on the read loop.
func (c *Conn) Setup() error {
	return c.Emit(wire.Event{Type: wire.TypeSetup, UserID: c.self})
}

// EmitNewMessage forwards a persisted message to a peer for live delivery.
func (c *Conn) EmitNewMessage(to string, msg wire.Message) error {
	return c.Emit(wire.Event{Type: wire.TypeNewMessage, To: to, Message: &msg})
}

// EmitTyping signals that the caller is composing to a peer.
func (c *Conn) EmitTyping(to string) error {
	return c.Emit(wire.Event{Type: wire.TypeTyping, To: to})
}

// EmitStopTyping clears the typing signal.
func (c *Conn) EmitStopTyping(to string) error {
	return c.Emit(wire.Event{Type: wire.TypeStopTyping, To: to})
}

// EmitMarkAsRead notifies a message's sender that it was read.
func (c *Conn) EmitMarkAsRead(messageID, senderID string) error {
	return c.Emit(wire.Event{Type: wire.TypeMarkAsRead, MessageID: messageID, SenderID: senderID})
}

// JoinChat subscribes the connection to a conversation room.
func (c *Conn) JoinChat(chatID string) error {
	return c.Emit(wire.Event{Type: wire.TypeJoinChat, ChatID: chatID})
}

// LeaveChat unsubscribes from a conversation room.
func (c *Conn) LeaveChat(chatID string) error {
	return c.Emit(wire.Event{Type: wire.TypeLeaveChat, ChatID: chatID})
}

// ReadLoop reads relay events until the connection drops or ctx is done.
// Each decoded event is published on the bus as relay.<type>. Malformed
// frames are logged and skipped.
func (c *Conn) ReadLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		evt, err := wire.Decode(data)
		if err != nil {
			c.logger.Debug("dropping malformed relay frame", zap.Error(err))
			continue
		}
		c.bus.Publish(bus.Event{
			Topic:   bus.TopicRelay + string(evt.Type),
			At:      time.Now(),
			Payload: evt,
		})
	}
}

// Close tears down the websocket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}
