package app

import (
	"context"
	"net/http"

	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/conversation"
	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/live"
	"github.com/matheus3301/duo/internal/lock"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/outbox"
	"github.com/matheus3301/duo/internal/session"
	"github.com/matheus3301/duo/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved identity and configuration passed to the fx module.
type Params struct {
	Identity string
	Config   *config.Config
	// Console tees logs to stderr. The TUI leaves it off.
	Console bool
	Level   zapcore.Level
	// HTTPClient overrides the client used for history and the WebSocket dial.
	HTTPClient *http.Client
}

// Module returns the fx module for one identity session, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("session",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideJournal,
			provideLoader,
			provideView,
			provideSupervisor,
			provideSender,
			NewSession,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Identity), p.Identity, logging.Options{
		Console: p.Console,
		Level:   p.Level,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Identity); err != nil {
		return nil, err
	}
	logger.Info("acquiring identity lock")
	l, err := lock.Acquire(session.Dir(p.Identity), p.Identity)
	if err != nil {
		return nil, err
	}
	logger.Info("identity lock acquired")
	return l, nil
}

// The lock is a parameter so the journal is only opened by the process that holds it.
func provideJournal(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	path := session.JournalPath(p.Identity)
	db, result, err := store.OpenMigrated(path)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("journal opened", zap.String("path", path))
	return db, nil
}

func provideLoader(p Params, logger *zap.Logger) *history.Loader {
	return history.NewLoader(p.Config.ServerURL, p.Config.HistoryTimeout.Duration, p.HTTPClient, logger)
}

func provideView(p Params, loader *history.Loader, b *bus.Bus, logger *zap.Logger) *conversation.View {
	var r conversation.Reconciler = conversation.EchoMatcher{Window: p.Config.EchoWindow.Duration}
	if p.Config.Reconcile == config.ReconcileKeepBoth {
		r = conversation.KeepBoth{}
	}
	return conversation.NewView(p.Identity, loader, b, logger, conversation.WithReconciler(r))
}

func provideSupervisor(p Params, b *bus.Bus, logger *zap.Logger) (*Supervisor, error) {
	dialect, err := live.ParseDialect(p.Config.Dialect)
	if err != nil {
		return nil, err
	}
	opts := live.Options{
		URL:        p.Config.LiveEndpoint(),
		Dialect:    dialect,
		HTTPClient: p.HTTPClient,
	}
	newChannel := func() *live.Channel {
		return live.New(p.Identity, opts, b, logger)
	}
	return NewSupervisor(newChannel, SupervisorOptions{
		Reconnect:  p.Config.Reconnect,
		MaxElapsed: p.Config.ReconnectMaxElapsed.Duration,
	}, logger), nil
}

func provideSender(p Params, view *conversation.View, sup *Supervisor, db *store.DB, b *bus.Bus, logger *zap.Logger) (*outbox.Sender, error) {
	policy, err := outbox.ParseFailurePolicy(p.Config.OnSendFailure)
	if err != nil {
		return nil, err
	}
	return outbox.NewSender(view, sup, db, b, logger, outbox.Options{
		Policy: policy,
		Rate:   p.Config.SendRate,
	}), nil
}

func registerLifecycle(lc fx.Lifecycle, sess *Session, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sess.View.Start(context.Background())
			sess.Sender.Start(context.Background())
			logger.Info("session started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			sess.Sender.Stop()
			sess.View.Stop()
			if ch := sess.Supervisor.Current(); ch != nil {
				_ = ch.Close()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing journal", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("session stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
