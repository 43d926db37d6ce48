package main

import (
	"context"

	"github.com/matheus3301/duo/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chatCmd = &cobra.Command{
	Use:   "chat [partner]",
	Short: "Open the interactive chat UI",
	Long: `Open the full-screen chat UI. Without a partner the last opened
conversation is resumed, or a prompt asks for one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, stop, err := startSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer stop()

	partner := sess.LastPartner()
	if len(args) > 0 {
		partner = args[0]
	}

	ui := tui.NewApp(sess, sess.Bus, sess.Identity)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sess.Supervisor.Run(gctx)
		ui.Stop()
		return err
	})
	g.Go(func() error {
		defer cancel()
		return ui.Run(partner)
	})

	return g.Wait()
}
