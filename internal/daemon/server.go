package daemon

import (
	"context"

	"github.com/brezze/brezze/internal/httpapi"
	"github.com/brezze/brezze/internal/relay"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server manages the HTTP server carrying the REST API and the relay
// websocket endpoint.
type Server struct {
	app    *fiber.App
	addr   string
	logger *zap.Logger
}

// NewServer builds the fiber app with all routes mounted.
func NewServer(p Params, logger *zap.Logger, api *httpapi.API, hub *relay.Hub) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	api.Register(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(relay.Serve(hub, logger)))

	return &Server{app: app, addr: p.Config.Listen, logger: logger}
}

// Start begins serving requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		s.logger.Warn("shutdown error", zap.Error(err))
	}
}
