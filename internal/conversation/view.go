package conversation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/message"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned by Open when another Open started before its
	// history fetch completed. The fetched history is discarded.
	ErrSuperseded = errors.New("conversation switch superseded")
	// ErrNoPartner is returned when no conversation is open.
	ErrNoPartner = errors.New("no conversation open")
	// ErrNotCurrent is returned when a local send targets a partner that is no
	// longer the open conversation.
	ErrNotCurrent = errors.New("recipient is not the open conversation")
)

// HistoryLoader fetches the stored messages between user and partner.
type HistoryLoader interface {
	Load(ctx context.Context, user, partner string) ([]message.Message, error)
}

// Update is the payload of conversation.seeded and conversation.updated.
type Update struct {
	Owner   string
	Partner string
	Len     int
}

// Reconciled is the payload of conversation.reconciled.
type Reconciled struct {
	Owner    string
	Partner  string
	ClientID string
	ServerID string
}

// Option configures a View.
type Option func(*View)

// WithReconciler sets the strategy for matching server echoes to optimistic entries.
func WithReconciler(r Reconciler) Option {
	return func(v *View) {
		if r != nil {
			v.reconciler = r
		}
	}
}

// View is the conversation the owner currently has open. It merges the history
// seed, live frames from the owner's channel and local optimistic sends into
// one timeline that only ever holds messages between owner and partner.
type View struct {
	owner      string
	loader     HistoryLoader
	bus        *bus.Bus
	logger     *zap.Logger
	reconciler Reconciler
	store      *Store

	mu          sync.Mutex
	partner     string
	gen         uint64
	fetchCancel context.CancelFunc

	cancel context.CancelFunc
	done   chan struct{}
}

// NewView creates a view for owner with no conversation open.
func NewView(owner string, loader HistoryLoader, b *bus.Bus, logger *zap.Logger, opts ...Option) *View {
	v := &View{
		owner:      owner,
		loader:     loader,
		bus:        b,
		logger:     logging.OrNop(logger).With(zap.String("component", "conversation")),
		reconciler: EchoMatcher{Window: DefaultEchoWindow},
		store:      NewStore(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start subscribes to live frames on the bus.
func (v *View) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.done = make(chan struct{})
	ch, unsub := v.bus.SubscribeReliable(bus.KindLiveMessage, 256)

	go func() {
		defer close(v.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if m, ok := evt.Payload.(message.Message); ok {
					v.Deliver(m)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop unsubscribes and waits for the delivery loop to exit.
func (v *View) Stop() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done

	v.mu.Lock()
	if v.fetchCancel != nil {
		v.fetchCancel()
		v.fetchCancel = nil
	}
	v.mu.Unlock()
}

func (v *View) Owner() string { return v.owner }

// Partner returns the identity of the open conversation, or "".
func (v *View) Partner() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.partner
}

// Messages iterates the timeline in SentAt order.
func (v *View) Messages() iter.Seq[message.Message] {
	return v.store.All()
}

func (v *View) Len() int {
	return v.store.Len()
}

// Open switches to the conversation with partner: the timeline is cleared, the
// history is fetched and seeded. Frames for partner that arrive during the
// fetch are kept and merged into the seed. If another Open starts first, the
// fetch is cancelled and ErrSuperseded returned. When history is unavailable
// the error is returned and the view stays on partner with what it has.
func (v *View) Open(ctx context.Context, partner string) error {
	v.mu.Lock()
	if v.fetchCancel != nil {
		v.fetchCancel()
	}
	v.gen++
	gen := v.gen
	v.partner = partner
	v.store.Seed(nil)
	fetchCtx, cancel := context.WithCancel(ctx)
	v.fetchCancel = cancel
	v.publishUpdate(bus.KindConversationUpdated)
	v.mu.Unlock()
	defer cancel()

	v.logger.Info("opening conversation", zap.String("partner", partner))
	history, err := v.loader.Load(fetchCtx, v.owner, partner)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		v.logger.Debug("discarding superseded history", zap.String("partner", partner))
		return ErrSuperseded
	}
	v.fetchCancel = nil
	if err != nil {
		v.logger.Warn("history unavailable", zap.String("partner", partner), zap.Error(err))
		return fmt.Errorf("open conversation with %s: %w", partner, err)
	}

	v.store.Seed(v.merge(history, v.store.Snapshot()))
	v.logger.Info("conversation seeded", zap.String("partner", partner), zap.Int("messages", v.store.Len()))
	v.publishUpdate(bus.KindConversationSeeded)
	return nil
}

// merge combines a history fetch with the entries that reached the timeline
// while it was in flight. Caller holds mu.
func (v *View) merge(history, arrived []message.Message) []message.Message {
	seed := make([]message.Message, 0, len(history)+len(arrived))
	var own []message.Message
	for _, m := range history {
		if !m.Involves(v.owner, v.partner) {
			continue
		}
		m.Status = v.inboundStatus(m)
		seed = append(seed, m)
		if m.Sender == v.owner {
			own = append(own, m)
		}
	}

	pending := pendingOf(arrived)
	confirmed := make(map[string]bool)
	for _, m := range own {
		if cid := v.reconciler.Match(pending, m); cid != "" {
			confirmed[cid] = true
			pending = removeClient(pending, cid)
		}
	}

	for _, m := range arrived {
		switch {
		case m.Optimistic():
			if confirmed[m.ClientID] {
				continue
			}
		case m.ID == "":
			// ID-less live frames may already be part of the history.
			if containsEqual(seed, m) {
				continue
			}
		}
		seed = append(seed, m)
	}
	return seed
}

// Deliver applies one live frame to the open conversation. Frames that do not
// belong to it are dropped.
func (v *View) Deliver(m message.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.partner == "" || !m.Involves(v.owner, v.partner) {
		return
	}
	if m.ID != "" && v.store.Has(m.ID) {
		return
	}

	if m.Sender == v.owner {
		if cid := v.reconciler.Match(v.store.Pending(), m); cid != "" {
			if v.store.Confirm(cid, m) {
				v.logger.Debug("echo reconciled", zap.String("client_id", cid), zap.String("server_id", m.ID))
				v.bus.Publish(bus.NewEvent(bus.KindConversationReconciled, Reconciled{
					Owner:    v.owner,
					Partner:  v.partner,
					ClientID: cid,
					ServerID: m.ID,
				}))
				v.publishUpdate(bus.KindConversationUpdated)
			}
			return
		}
	}

	m.Status = v.inboundStatus(m)
	if v.store.Append(m) {
		v.publishUpdate(bus.KindConversationUpdated)
	}
}

// AppendOptimistic adds a local send to the open conversation. m must carry a
// ClientID and be addressed to the current partner.
func (v *View) AppendOptimistic(m message.Message) (message.Message, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.partner == "" {
		return message.Message{}, ErrNoPartner
	}
	if m.Recipient != v.partner || m.Sender != v.owner {
		return message.Message{}, fmt.Errorf("%w: %s", ErrNotCurrent, m.Recipient)
	}
	if m.ClientID == "" {
		return message.Message{}, errors.New("optimistic message without client id")
	}
	m.ID = ""
	if m.Status == "" {
		m.Status = message.StatusSending
	}
	stored := v.store.AppendOptimistic(m)
	v.publishUpdate(bus.KindConversationUpdated)
	return stored, nil
}

// MarkSent records that the frame for clientID was transmitted. The entry
// stays optimistic until an echo confirms it.
func (v *View) MarkSent(clientID string) bool {
	return v.setStatus(clientID, message.StatusSent)
}

// MarkFailed flags the entry for clientID as not delivered.
func (v *View) MarkFailed(clientID string) bool {
	return v.setStatus(clientID, message.StatusFailed)
}

// Retract removes the optimistic entry for clientID.
func (v *View) Retract(clientID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.store.Retract(clientID) {
		return false
	}
	v.publishUpdate(bus.KindConversationUpdated)
	return true
}

func (v *View) setStatus(clientID string, s message.Status) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.store.SetStatus(clientID, s) {
		return false
	}
	v.publishUpdate(bus.KindConversationUpdated)
	return true
}

func (v *View) inboundStatus(m message.Message) message.Status {
	if m.Sender == v.owner {
		return message.StatusSent
	}
	return message.StatusReceived
}

// publishUpdate must be called with mu held.
func (v *View) publishUpdate(kind string) {
	v.bus.Publish(bus.NewEvent(kind, Update{
		Owner:   v.owner,
		Partner: v.partner,
		Len:     v.store.Len(),
	}))
}

func pendingOf(msgs []message.Message) []message.Message {
	var out []message.Message
	for _, m := range msgs {
		if m.Optimistic() && m.Status != message.StatusFailed {
			out = append(out, m)
		}
	}
	return out
}

func removeClient(msgs []message.Message, clientID string) []message.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.ClientID != clientID {
			out = append(out, m)
		}
	}
	return out
}

func containsEqual(msgs []message.Message, m message.Message) bool {
	for _, x := range msgs {
		if x.Sender == m.Sender && x.Recipient == m.Recipient && x.Body == m.Body && x.SentAt.Equal(m.SentAt) {
			return true
		}
	}
	return false
}
