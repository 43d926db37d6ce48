package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matheus3301/duo/internal/live"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/status"
	"go.uber.org/zap"
)

// Supervisor keeps one live channel open for an identity. A failed channel is
// never revived; the supervisor replaces it with a new one, retrying dials with
// exponential backoff when reconnecting is enabled.
type Supervisor struct {
	newChannel func() *live.Channel
	reconnect  bool
	maxElapsed time.Duration
	initial    time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	current *live.Channel
}

// SupervisorOptions configures reconnect behaviour.
type SupervisorOptions struct {
	Reconnect  bool
	MaxElapsed time.Duration
	// InitialInterval is the first retry delay. Defaults to the backoff package default.
	InitialInterval time.Duration
}

// NewSupervisor creates a supervisor that builds channels with newChannel.
func NewSupervisor(newChannel func() *live.Channel, opts SupervisorOptions, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		newChannel: newChannel,
		reconnect:  opts.Reconnect,
		maxElapsed: opts.MaxElapsed,
		initial:    opts.InitialInterval,
		logger:     logging.OrNop(logger).With(zap.String("component", "supervisor")),
	}
}

// Current returns the channel in use, or nil before the first dial.
func (s *Supervisor) Current() *live.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State reports the state of the current channel.
func (s *Supervisor) State() status.State {
	if ch := s.Current(); ch != nil {
		return ch.State()
	}
	return status.Connecting
}

// Send transmits through the current channel.
func (s *Supervisor) Send(ctx context.Context, recipient, body, clientID string) error {
	ch := s.Current()
	if ch == nil {
		return fmt.Errorf("%w: not connected", live.ErrSendFailure)
	}
	return ch.Send(ctx, recipient, body, clientID)
}

// Run connects and keeps the identity connected until ctx is cancelled, which
// closes the channel and returns nil. With reconnecting disabled, or once the
// backoff gives up, the last channel failure is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		ch, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			_ = ch.Close()
			return nil
		case <-ch.Done():
		}

		cause := ch.Err()
		_ = ch.Close()
		if ctx.Err() != nil {
			return nil
		}
		if !s.reconnect {
			return cause
		}
		s.logger.Warn("live channel lost, reconnecting", zap.Error(cause))
	}
}

func (s *Supervisor) connect(ctx context.Context) (*live.Channel, error) {
	var opened *live.Channel
	op := func() error {
		ch := s.newChannel()
		s.mu.Lock()
		s.current = ch
		s.mu.Unlock()

		if err := ch.Open(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		opened = ch
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("connect failed", zap.Error(err), zap.Duration("retry_in", wait))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(s.policy(), ctx), notify); err != nil {
		return nil, err
	}
	return opened, nil
}

func (s *Supervisor) policy() backoff.BackOff {
	if !s.reconnect {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.maxElapsed
	if s.initial > 0 {
		b.InitialInterval = s.initial
	}
	return b
}
