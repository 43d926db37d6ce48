package app

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/conversation"
	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/outbox"
	"github.com/matheus3301/duo/internal/session"
	"github.com/matheus3301/duo/internal/status"
	"github.com/matheus3301/duo/internal/store"
	"go.uber.org/zap"
)

// ErrSelfChat is returned when the partner is the session's own identity.
var ErrSelfChat = errors.New("cannot open a conversation with yourself")

// Session is everything that lives for one logged-in identity. It is created
// when the fx app starts and torn down when it stops.
type Session struct {
	Identity   string
	Config     *config.Config
	Bus        *bus.Bus
	View       *conversation.View
	Sender     *outbox.Sender
	Supervisor *Supervisor
	Journal    *store.DB
	Logger     *zap.Logger
}

// NewSession collects the session components.
func NewSession(p Params, b *bus.Bus, view *conversation.View, sender *outbox.Sender, sup *Supervisor, db *store.DB, logger *zap.Logger) *Session {
	return &Session{
		Identity:   p.Identity,
		Config:     p.Config,
		Bus:        b,
		View:       view,
		Sender:     sender,
		Supervisor: sup,
		Journal:    db,
		Logger:     logger,
	}
}

// Open switches the view to partner and remembers the choice for next start.
// The partner is remembered even when history is unavailable, since the view
// stays on it.
func (s *Session) Open(ctx context.Context, partner string) error {
	if err := session.ValidateIdentity(partner); err != nil {
		return fmt.Errorf("partner: %w", err)
	}
	if partner == s.Identity {
		return ErrSelfChat
	}
	err := s.View.Open(ctx, partner)
	if err != nil && !errors.Is(err, history.ErrUnavailable) {
		return err
	}
	if serr := s.Journal.SetLastPartner(partner); serr != nil {
		s.Logger.Warn("failed to remember partner", zap.Error(serr))
	}
	return err
}

// LastPartner returns the partner opened most recently, or "".
func (s *Session) LastPartner() string {
	p, err := s.Journal.LastPartner()
	if err != nil {
		s.Logger.Warn("failed to read last partner", zap.Error(err))
		return ""
	}
	return p
}

func (s *Session) Partner() string                     { return s.View.Partner() }
func (s *Session) Messages() iter.Seq[message.Message] { return s.View.Messages() }
func (s *Session) Len() int                            { return s.View.Len() }
func (s *Session) State() status.State                 { return s.Supervisor.State() }

// Send composes body into the open conversation.
func (s *Session) Send(ctx context.Context, body string) (message.Message, error) {
	return s.Sender.Send(ctx, body)
}
