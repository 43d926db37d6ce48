package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/duo/internal/app"
	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/live"
	"github.com/matheus3301/duo/internal/status"
	"github.com/spf13/cobra"
)

var sendTimeout time.Duration

var sendCmd = &cobra.Command{
	Use:   "send <partner> <text>...",
	Short: "Send one message and exit",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 15*time.Second, "how long to wait for the live connection")
}

func runSend(cmd *cobra.Command, args []string) error {
	sess, stop, err := startSession(cmd.Context(), verbose)
	if err != nil {
		return err
	}
	defer stop()

	partner, body := args[0], strings.Join(args[1:], " ")

	states, unsub := sess.Bus.Subscribe(bus.KindLiveStateChanged, 16)
	defer unsub()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- sess.Supervisor.Run(ctx) }()

	if err := waitOpen(ctx, sess, states, runErr); err != nil {
		return err
	}
	if err := sess.Open(ctx, partner); err != nil && !errors.Is(err, history.ErrUnavailable) {
		return err
	}

	m, err := sess.Send(ctx, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), m.ClientID)

	cancel()
	<-runErr
	return nil
}

// waitOpen blocks until the live channel is open, the supervisor gives up or
// the send timeout expires.
func waitOpen(ctx context.Context, sess *app.Session, states <-chan bus.Event, runErr <-chan error) error {
	if sess.State() == status.Open {
		return nil
	}
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()
	for {
		select {
		case evt := <-states:
			if c, ok := evt.Payload.(status.Change); ok && c.To == status.Open {
				return nil
			}
		case err := <-runErr:
			if err == nil {
				err = live.ErrChannelFailure
			}
			return err
		case <-timer.C:
			return fmt.Errorf("%w: not connected after %s", live.ErrSendFailure, sendTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
