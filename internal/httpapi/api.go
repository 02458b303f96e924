package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/brezze/brezze/internal/auth"
	"github.com/brezze/brezze/internal/history"
	"github.com/brezze/brezze/internal/wire"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// sessionCookie carries the signed session token.
const sessionCookie = "jwt"

// API exposes the storage and auth collaborators over REST: conversation
// fetch, message persist, sidebar listing and session management.
type API struct {
	db       *history.DB
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// New creates the REST surface.
func New(db *history.DB, secret []byte, tokenTTL time.Duration, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{db: db, secret: secret, tokenTTL: tokenTTL, logger: logger}
}

// Register mounts all routes on the app.
func (a *API) Register(app *fiber.App) {
	app.Post("/api/auth/signup", a.handleSignup)
	app.Post("/api/auth/login", a.handleLogin)
	app.Post("/api/auth/logout", a.handleLogout)
	app.Get("/api/auth/check", a.RequireAuth, a.handleCheck)

	app.Get("/api/messages/users", a.RequireAuth, a.handleSidebar)
	app.Get("/api/messages/:peer", a.RequireAuth, a.handleConversation)
	app.Post("/api/messages/send/:peer", a.RequireAuth, a.handleSend)
}

// RequireAuth validates the session cookie and stores the caller identity
// in locals.
func (a *API) RequireAuth(c *fiber.Ctx) error {
	token := c.Cookies(sessionCookie)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	claims, err := auth.ValidateToken(a.secret, token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	c.Locals("userID", claims.UserID)
	return c.Next()
}

func (a *API) handleSignup(c *fiber.Ctx) error {
	var req auth.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := auth.ValidateSignup(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return a.internal(c, "hash password", err)
	}
	u, err := a.db.CreateUser(strings.ToLower(req.Email), req.FullName, hash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
		}
		return a.internal(c, "create user", err)
	}

	if err := a.setSession(c, u.ID); err != nil {
		return a.internal(c, "issue token", err)
	}
	return c.Status(fiber.StatusCreated).JSON(userDTO(u))
}

func (a *API) handleLogin(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := auth.ValidateLogin(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	u, err := a.db.UserByEmail(strings.ToLower(req.Email))
	if errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return a.internal(c, "lookup user", err)
	}
	ok, err := auth.ComparePassword(req.Password, u.PasswordHash)
	if err != nil {
		return a.internal(c, "compare password", err)
	}
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	if err := a.setSession(c, u.ID); err != nil {
		return a.internal(c, "issue token", err)
	}
	return c.JSON(userDTO(u))
}

func (a *API) handleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) handleCheck(c *fiber.Ctx) error {
	u, err := a.db.UserByID(callerID(c))
	if errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if err != nil {
		return a.internal(c, "lookup user", err)
	}
	return c.JSON(userDTO(u))
}

func (a *API) handleSidebar(c *fiber.Ctx) error {
	entries, err := a.db.Sidebar(callerID(c))
	if err != nil {
		return a.internal(c, "sidebar", err)
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		item := fiber.Map{
			"id":       e.User.ID,
			"email":    e.User.Email,
			"fullName": e.User.FullName,
		}
		if e.LastMessage != nil {
			item["lastMessage"] = messageDTO(e.LastMessage)
		}
		out = append(out, item)
	}
	return c.JSON(out)
}

func (a *API) handleConversation(c *fiber.Ctx) error {
	self := callerID(c)
	peer := c.Params("peer")
	if _, err := a.db.UserByID(peer); errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	} else if err != nil {
		return a.internal(c, "lookup peer", err)
	}

	since := int64(c.QueryInt("since", 0))
	until := int64(c.QueryInt("until", 0))
	msgs, err := a.db.Conversation(self, peer, since, until)
	if err != nil {
		return a.internal(c, "fetch conversation", err)
	}
	out := make([]wire.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageDTO(&msgs[i]))
	}
	return c.JSON(out)
}

func (a *API) handleSend(c *fiber.Ctx) error {
	self := callerID(c)
	peer := c.Params("peer")

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message and receiver are required"})
	}
	if _, err := a.db.UserByID(peer); errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "receiver not found"})
	} else if err != nil {
		return a.internal(c, "lookup receiver", err)
	}

	m, err := a.db.InsertMessage(self, peer, req.Message)
	if err != nil {
		return a.internal(c, "persist message", err)
	}
	return c.Status(fiber.StatusCreated).JSON(messageDTO(m))
}

func (a *API) setSession(c *fiber.Ctx, userID string) error {
	token, err := auth.GenerateToken(a.secret, userID, a.tokenTTL)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  time.Now().Add(a.tokenTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return nil
}

func (a *API) internal(c *fiber.Ctx, what string, err error) error {
	a.logger.Error("request failed", zap.String("op", what), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func userDTO(u *history.User) fiber.Map {
	return fiber.Map{
		"id":       u.ID,
		"email":    u.Email,
		"fullName": u.FullName,
	}
}

func messageDTO(m *history.Message) wire.Message {
	return wire.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		CreatedAt:  time.UnixMilli(m.CreatedAt).UTC(),
	}
}
