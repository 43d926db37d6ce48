package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/duo/internal/app"
	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/message"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch <partner>",
	Short: "Print a conversation and follow new messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	sess, stop, err := startSession(cmd.Context(), verbose)
	if err != nil {
		return err
	}
	defer stop()

	partner := args[0]
	out := cmd.OutOrStdout()
	updates, unsub := sess.Bus.Subscribe("conversation.", 256)
	defer unsub()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return sess.Supervisor.Run(ctx) })
	g.Go(func() error {
		if err := sess.Open(ctx, partner); err != nil {
			if !errors.Is(err, history.ErrUnavailable) {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}

		seen := make(map[string]bool)
		printNew(out, sess, seen)
		for {
			select {
			case <-updates:
				printNew(out, sess, seen)
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// printNew prints timeline entries not printed before. Optimistic entries are
// skipped until they are confirmed or fail.
func printNew(w io.Writer, sess *app.Session, seen map[string]bool) {
	for m := range sess.Messages() {
		if m.Optimistic() && m.Status != message.StatusFailed {
			continue
		}
		key := messageKey(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		printMessage(w, m)
	}
}

func messageKey(m message.Message) string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	if m.ClientID != "" {
		return "client:" + m.ClientID
	}
	return fmt.Sprintf("%s|%s|%d|%s", m.Sender, m.Recipient, m.SentAt.UnixNano(), m.Body)
}

func printMessage(w io.Writer, m message.Message) {
	suffix := ""
	if m.Status == message.StatusFailed {
		suffix = "  (not sent)"
	}
	fmt.Fprintf(w, "%s  %s -> %s: %s%s\n",
		m.SentAt.Local().Format(time.DateTime), m.Sender, m.Recipient, m.Body, suffix)
}
