package relay

import (
	"sync"

	"github.com/brezze/brezze/internal/wire"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// wsConn adapts a fiber websocket connection to the hub's Conn interface.
// Writes are serialized; handlers for different events may race on the same
// destination.
type wsConn struct {
	id string
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) ID() string {
	return w.id
}

func (w *wsConn) Send(evt wire.Event) error {
	data, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteMessage(websocket.TextMessage, data)
}

// Serve returns the websocket handler for /ws: it attaches the connection
// to the hub and pumps decoded events into Dispatch until the socket
// closes. Undecodable frames are dropped without closing the socket.
func Serve(hub *Hub, logger *zap.Logger) func(*websocket.Conn) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *websocket.Conn) {
		conn := &wsConn{id: uuid.NewString(), c: c}
		hub.Attach(conn)
		defer hub.HandleDisconnect(conn)

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			evt, err := wire.Decode(data)
			if err != nil {
				logger.Debug("ignoring malformed frame", zap.Error(err))
				continue
			}
			hub.Dispatch(conn, evt)
		}
	}
}
