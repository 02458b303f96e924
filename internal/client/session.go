package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/outbox"
	"github.com/brezze/brezze/internal/presence"
	"github.com/brezze/brezze/internal/reconcile"
	"github.com/brezze/brezze/internal/timeline"
	"github.com/brezze/brezze/internal/wire"
	"go.uber.org/zap"
)

// Session ties the REST client, the relay connection and the reconciliation
// engine together for one logged-in user. One conversation is open at a
// time; switching peers resets the timeline and invalidates in-flight
// fetches.
type Session struct {
	self   Account
	rest   *Client
	bus    *bus.Bus
	logger *zap.Logger

	store    *timeline.Store
	engine   *reconcile.Engine
	presence *presence.State
	typing   *presence.Notifier
	composer outbox.Composer

	mu       sync.Mutex
	conn     *Conn
	pipeline *outbox.Pipeline
	peer     Account
}

// NewSession builds the client-side engine stack for a logged-in user.
func NewSession(self Account, rest *Client, b *bus.Bus, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := timeline.NewStore()
	s := &Session{
		self:     self,
		rest:     rest,
		bus:      b,
		logger:   logger,
		store:    store,
		engine:   reconcile.NewEngine(self.ID, store, b, logger),
		presence: presence.NewState(),
	}
	s.typing = presence.NewNotifier(presence.DefaultTypingWindow, s.emitTyping)
	return s
}

// Start wires the engine and presence reducer to the bus.
func (s *Session) Start(ctx context.Context) {
	s.engine.Start(ctx)
	s.presence.Start(ctx, s.bus)
}

// Stop detaches from the bus and cancels any armed typing notice.
func (s *Session) Stop() {
	s.typing.Cancel()
	s.engine.Stop()
	s.presence.Stop()
}

// Attach installs a live relay connection and announces the caller. Called
// on first connect and again after every reconnect.
func (s *Session) Attach(conn *Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.pipeline = outbox.NewPipeline(s.self.ID, s.engine, s.rest, conn, s.logger)
	peer := s.peer
	s.mu.Unlock()

	if err := conn.Setup(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if peer.ID != "" {
		if err := conn.JoinChat(wire.PairKey(s.self.ID, peer.ID)); err != nil {
			return err
		}
	}
	return nil
}

// Open switches the active conversation to a peer. The timeline resets
// synchronously; the snapshot is fetched in the background and discarded if
// the peer changes again before it lands.
func (s *Session) Open(ctx context.Context, peer Account) {
	s.mu.Lock()
	prev := s.peer
	s.peer = peer
	conn := s.conn
	s.mu.Unlock()

	s.typing.Cancel()
	s.presence.Reset()
	epoch := s.engine.SelectPeer(peer.ID)

	if conn != nil {
		if prev.ID != "" && prev.ID != peer.ID {
			if err := conn.LeaveChat(wire.PairKey(s.self.ID, prev.ID)); err != nil {
				s.logger.Warn("leave chat failed", zap.Error(err))
			}
		}
		if err := conn.JoinChat(wire.PairKey(s.self.ID, peer.ID)); err != nil {
			s.logger.Warn("join chat failed", zap.Error(err))
		}
	}

	go s.fetchSnapshot(ctx, epoch, peer.ID)
}

// Refresh re-fetches the open conversation at the current epoch. Used after
// a reconnect to fill any gap in relay delivery.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer.ID == "" {
		return
	}
	go s.fetchSnapshot(ctx, s.engine.Epoch(), peer.ID)
}

func (s *Session) fetchSnapshot(ctx context.Context, epoch uint64, peerID string) {
	msgs, err := s.rest.FetchConversation(ctx, peerID, 0, 0)
	if err != nil {
		s.logger.Warn("snapshot fetch failed", zap.String("peer", peerID), zap.Error(err))
		return
	}
	confirmed := make([]timeline.Message, 0, len(msgs))
	for _, m := range msgs {
		confirmed = append(confirmed, timeline.FromWire(m))
	}
	if !s.engine.ApplySnapshot(epoch, confirmed) {
		s.logger.Debug("snapshot discarded, conversation changed", zap.String("peer", peerID))
	}
}

// Send pushes the composed draft through the optimistic pipeline. On failure
// the draft is restored for retry.
func (s *Session) Send(ctx context.Context, text string) (timeline.Message, error) {
	s.mu.Lock()
	pipeline := s.pipeline
	peer := s.peer
	s.mu.Unlock()

	if pipeline == nil {
		return timeline.Message{}, fmt.Errorf("not connected")
	}
	s.typing.Cancel()
	s.composer.Set(text)
	return pipeline.SendDraft(ctx, &s.composer, peer.ID)
}

// Draft returns the text restored by a failed send, if any.
func (s *Session) Draft() string {
	return s.composer.Draft()
}

// TypingPing coalesces keystrokes into rate-limited typing notices.
func (s *Session) TypingPing() {
	s.typing.Ping()
}

// StopTyping cancels any armed notice and tells the peer immediately.
func (s *Session) StopTyping() {
	s.typing.Cancel()
	s.mu.Lock()
	conn := s.conn
	peer := s.peer
	s.mu.Unlock()
	if conn == nil || peer.ID == "" {
		return
	}
	if err := conn.EmitStopTyping(peer.ID); err != nil {
		s.logger.Debug("stop typing emit failed", zap.Error(err))
	}
}

func (s *Session) emitTyping() {
	s.mu.Lock()
	conn := s.conn
	peer := s.peer
	s.mu.Unlock()
	if conn == nil || peer.ID == "" {
		return
	}
	if err := conn.EmitTyping(peer.ID); err != nil {
		s.logger.Debug("typing emit failed", zap.Error(err))
	}
}

// MarkRead notifies a message's sender that it was read.
func (s *Session) MarkRead(messageID, senderID string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.EmitMarkAsRead(messageID, senderID); err != nil {
		s.logger.Debug("mark as read emit failed", zap.Error(err))
	}
}

// Peer returns the open conversation's peer.
func (s *Session) Peer() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Messages returns the merged timeline, oldest first.
func (s *Session) Messages() []timeline.Message {
	return s.store.Messages()
}

// PeerPresence reports online and typing flags for the open peer.
func (s *Session) PeerPresence() (presence.Entry, bool) {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer.ID == "" {
		return presence.Entry{}, false
	}
	return s.presence.Get(peer.ID)
}
