package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brezze/brezze/internal/reconcile"
	"github.com/brezze/brezze/internal/timeline"
	"github.com/brezze/brezze/internal/wire"
	"go.uber.org/zap"
)

// Validation errors, rejected before any network or relay activity.
var (
	ErrEmptyMessage = errors.New("message text is empty")
	ErrNoPeer       = errors.New("no peer selected")
)

// Persister is the storage collaborator: it makes a send durable and
// returns the confirmed message with its server identifier and timestamp.
type Persister interface {
	PersistMessage(ctx context.Context, receiverID, body string) (wire.Message, error)
}

// Emitter pushes a confirmed send onto the relay so the peer's live
// connection is updated without waiting for its own snapshot refresh.
type Emitter interface {
	EmitNewMessage(to string, msg wire.Message) error
}

// Pipeline turns a user intent to send into an optimistic entry, a persist
// request and a reconciliation step on success or failure.
type Pipeline struct {
	self      string
	engine    *reconcile.Engine
	persister Persister
	emitter   Emitter
	logger    *zap.Logger
}

// NewPipeline creates a send pipeline. emitter may be nil when no relay
// connection is up; persisted sends then reach the peer via its snapshots.
func NewPipeline(self string, engine *reconcile.Engine, persister Persister, emitter Emitter, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{self: self, engine: engine, persister: persister, emitter: emitter, logger: logger}
}

// Send validates text, inserts a pending entry, persists it and reconciles
// the result. On failure the pending entry is rolled back and the error is
// returned to the caller; a retry cannot double-confirm because the engine's
// merge path deduplicates.
func (p *Pipeline) Send(ctx context.Context, text, toPeer string) (timeline.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return timeline.Message{}, ErrEmptyMessage
	}
	if toPeer == "" {
		return timeline.Message{}, ErrNoPeer
	}

	pending := timeline.Message{
		ID:         timeline.NewPendingID(),
		SenderID:   p.self,
		ReceiverID: toPeer,
		Body:       text,
		CreatedAt:  time.Now(),
		Status:     timeline.StatusPending,
	}
	epoch := p.engine.Epoch()
	p.engine.InsertPending(pending)

	persisted, err := p.persister.PersistMessage(ctx, toPeer, text)
	if err != nil {
		p.engine.Rollback(pending.ID)
		return timeline.Message{}, fmt.Errorf("persist message: %w", err)
	}

	confirmed := timeline.FromWire(persisted)
	p.engine.Confirm(epoch, pending.ID, confirmed)

	if p.emitter != nil {
		// Best effort: the send is already durable, a relay miss only
		// delays the peer until its next refresh.
		if err := p.emitter.EmitNewMessage(toPeer, persisted); err != nil {
			p.logger.Warn("relay emit failed", zap.Error(err), zap.String("msg_id", persisted.ID))
		}
	}
	return confirmed, nil
}

// SendDraft consumes the composer's draft and sends it. On any failure the
// draft is restored so the user does not lose it.
func (p *Pipeline) SendDraft(ctx context.Context, c *Composer, toPeer string) (timeline.Message, error) {
	text := c.Take()
	msg, err := p.Send(ctx, text, toPeer)
	if err != nil {
		c.Restore(text)
		return timeline.Message{}, err
	}
	return msg, nil
}
