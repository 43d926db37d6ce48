package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/conversation"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/store"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ErrEmptyBody is returned when the composed text is blank.
var ErrEmptyBody = errors.New("message body is empty")

// Transmitter writes an outbound frame to the live connection.
type Transmitter interface {
	Send(ctx context.Context, recipient, body, clientID string) error
}

// Timeline is the part of the conversation view the sender writes to.
type Timeline interface {
	Owner() string
	Partner() string
	AppendOptimistic(m message.Message) (message.Message, error)
	MarkSent(clientID string) bool
	MarkFailed(clientID string) bool
	Retract(clientID string) bool
}

// Result is the payload of outbox.sent and outbox.send_failed.
type Result struct {
	ClientID  string
	Recipient string
	Err       error
}

// Options configures a Sender.
type Options struct {
	Policy FailurePolicy
	// Rate caps outbound frames per second. Zero means unlimited.
	Rate int
	Now  func() time.Time
}

// Sender turns composed text into an optimistic timeline entry plus an
// outbound frame. Every send is journaled when a DB is configured.
type Sender struct {
	view    Timeline
	tx      Transmitter
	db      *store.DB
	bus     *bus.Bus
	logger  *zap.Logger
	policy  FailurePolicy
	limiter ratelimit.Limiter
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSender creates a sender. db may be nil to disable the journal.
func NewSender(view Timeline, tx Transmitter, db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Sender {
	s := &Sender{
		view:    view,
		tx:      tx,
		db:      db,
		bus:     b,
		logger:  logging.OrNop(logger).With(zap.String("component", "outbox")),
		policy:  opts.Policy,
		limiter: ratelimit.NewUnlimited(),
		now:     opts.Now,
	}
	if s.policy == "" {
		s.policy = KeepFailed
	}
	if opts.Rate > 0 {
		s.limiter = ratelimit.New(opts.Rate)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start follows reconciliations so journal entries are marked confirmed.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	ch, unsub := s.bus.SubscribeReliable(bus.KindConversationReconciled, 64)

	go func() {
		defer close(s.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if r, ok := evt.Payload.(conversation.Reconciled); ok {
					s.confirm(r)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reconciliation loop and waits for it to exit.
func (s *Sender) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Sender) confirm(r conversation.Reconciled) {
	if s.db == nil {
		return
	}
	if err := s.db.MarkOutboxConfirmed(r.ClientID, r.ServerID); err != nil {
		s.logger.Warn("failed to mark confirmed", zap.Error(err), zap.String("client_msg_id", r.ClientID))
	}
}

// Send appends body to the open conversation as an optimistic entry and
// transmits it. The stored entry is returned even when transmission fails, in
// which case the failure policy has already been applied to it.
func (s *Sender) Send(ctx context.Context, body string) (message.Message, error) {
	if strings.TrimSpace(body) == "" {
		return message.Message{}, ErrEmptyBody
	}
	partner := s.view.Partner()
	if partner == "" {
		return message.Message{}, conversation.ErrNoPartner
	}

	clientID := uuid.NewString()
	local, err := s.view.AppendOptimistic(message.Message{
		Sender:    s.view.Owner(),
		Recipient: partner,
		Body:      body,
		SentAt:    s.now(),
		ClientID:  clientID,
		Status:    message.StatusSending,
	})
	if err != nil {
		return message.Message{}, err
	}
	s.journal(func(db *store.DB) error {
		return db.QueueOutbox(clientID, local.Sender, partner, body)
	}, clientID)

	s.limiter.Take()
	if err := s.tx.Send(ctx, partner, body, clientID); err != nil {
		s.fail(local, err)
		return local, fmt.Errorf("send to %s: %w", partner, err)
	}

	s.journal(func(db *store.DB) error { return db.MarkOutboxSent(clientID) }, clientID)
	s.view.MarkSent(clientID)
	local.Status = message.StatusSent
	s.logger.Debug("message transmitted", zap.String("client_msg_id", clientID), zap.String("recipient", partner))
	s.bus.Publish(bus.NewEvent(bus.KindOutboxSent, Result{ClientID: clientID, Recipient: partner}))
	return local, nil
}

func (s *Sender) fail(local message.Message, err error) {
	s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", local.ClientID))
	s.journal(func(db *store.DB) error { return db.MarkOutboxFailed(local.ClientID, err.Error()) }, local.ClientID)

	switch s.policy {
	case Retract:
		s.view.Retract(local.ClientID)
	default:
		s.view.MarkFailed(local.ClientID)
	}
	s.bus.Publish(bus.NewEvent(bus.KindOutboxSendFailed, Result{
		ClientID:  local.ClientID,
		Recipient: local.Recipient,
		Err:       err,
	}))
}

func (s *Sender) journal(fn func(*store.DB) error, clientID string) {
	if s.db == nil {
		return
	}
	if err := fn(s.db); err != nil {
		s.logger.Warn("outbox journal write failed", zap.Error(err), zap.String("client_msg_id", clientID))
	}
}
