package main

import (
	"context"
	"time"

	"github.com/matheus3301/duo/internal/app"
	"go.uber.org/fx"
)

const stopTimeout = 10 * time.Second

// startSession builds and starts the identity session. The returned stop
// function tears it down and is safe to defer.
func startSession(ctx context.Context, console bool) (*app.Session, func(), error) {
	id, cfg, err := resolveIdentity()
	if err != nil {
		return nil, nil, err
	}

	var sess *app.Session
	fxApp := fx.New(
		app.Module(app.Params{
			Identity: id,
			Config:   cfg,
			Console:  console,
			Level:    logLevel(),
		}),
		fx.NopLogger,
		fx.Populate(&sess),
	)
	if err := fxApp.Err(); err != nil {
		return nil, nil, err
	}
	if err := fxApp.Start(ctx); err != nil {
		return nil, nil, err
	}

	stop := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}
	return sess, stop, nil
}
