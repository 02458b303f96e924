package reconcile

import (
	"context"
	"sync"

	"github.com/brezze/brezze/internal/bus"
	"github.com/brezze/brezze/internal/timeline"
	"github.com/brezze/brezze/internal/wire"
	"go.uber.org/zap"
)

// Engine merges the three sources of truth about the open conversation
// (REST snapshot, live relay events and optimistic local sends) into the
// conversation store. It is the store's only writer.
//
// Every peer switch bumps an epoch counter; snapshot and send results carry
// the epoch they were issued under and are discarded when it no longer
// matches, so a response for a no-longer-selected peer can never land in the
// wrong conversation.
type Engine struct {
	self   string
	store  *timeline.Store
	bus    *bus.Bus
	logger *zap.Logger

	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
}

// NewEngine creates an engine for the given local identity.
func NewEngine(self string, store *timeline.Store, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{self: self, store: store, bus: b, logger: logger}
}

// Start subscribes the engine to inbound relay events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe(bus.TopicRelay, 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleRelay(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bus subscription.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleRelay(evt bus.Event) {
	env, ok := evt.Payload.(wire.Event)
	if !ok {
		return
	}
	if env.Type == wire.TypeMessageReceived && env.Message != nil {
		e.IngestRelay(timeline.FromWire(*env.Message))
	}
}

// SelectPeer clears the store, binds it to peer and returns the new epoch
// token. The clear happens before any snapshot request is issued.
func (e *Engine) SelectPeer(peer string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.store.Reset(peer)
	e.publish("timeline.replaced")
	return e.epoch
}

// Epoch returns the current epoch token.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// ApplySnapshot replaces the store with the fetched conversation, then
// re-applies any pending local sends the snapshot does not yet reflect, so a
// concurrent refresh cannot lose an in-flight optimistic message. A snapshot
// fetched under a stale epoch is discarded and reported as such.
func (e *Engine) ApplySnapshot(epoch uint64, msgs []timeline.Message) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		e.logger.Info("discarding stale snapshot", zap.Uint64("epoch", epoch), zap.Uint64("current", e.epoch))
		return false
	}

	pending := e.store.Pending()
	for i := range msgs {
		msgs[i].Status = timeline.StatusConfirmed
	}
	e.store.ReplaceAll(msgs)
	for _, p := range pending {
		e.store.Merge(p)
	}
	e.publish("timeline.replaced")
	return true
}

// IngestRelay merges a live relay message. Messages that do not belong to
// the open conversation are dropped. A relay echo matching a pending entry
// promotes it in place instead of appending a second one.
func (e *Engine) IngestRelay(m timeline.Message) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	peer := e.store.Peer()
	if peer == "" || !e.belongs(m, peer) {
		return false
	}
	if out := e.store.Merge(m); out == timeline.Duplicate {
		return false
	}
	e.publish("timeline.updated")
	return true
}

// InsertPending adds an optimistic entry before its network round trip
// completes.
func (e *Engine) InsertPending(m timeline.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Merge(m)
	e.publish("timeline.updated")
}

// Confirm swaps the pending entry for its confirmed form. If the entry was
// already promoted by a relay echo, or a retry re-confirms the same send,
// the merge path keeps the store duplicate-free. A confirmation arriving
// under a stale epoch is discarded.
func (e *Engine) Confirm(epoch uint64, pendingID string, confirmed timeline.Message) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		e.logger.Info("discarding stale send result", zap.String("pending_id", pendingID))
		return false
	}
	confirmed.Status = timeline.StatusConfirmed
	if !e.store.Promote(pendingID, confirmed) {
		e.store.Merge(confirmed)
	}
	e.publish("timeline.updated")
	return true
}

// Rollback removes a pending entry whose persist request failed.
func (e *Engine) Rollback(pendingID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.Remove(pendingID) {
		return false
	}
	e.publish("timeline.updated")
	return true
}

func (e *Engine) belongs(m timeline.Message, peer string) bool {
	inbound := m.SenderID == peer && m.ReceiverID == e.self
	outbound := m.SenderID == e.self && m.ReceiverID == peer
	return inbound || outbound
}

func (e *Engine) publish(topic string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Topic: topic, Payload: e.store.Peer()})
}
