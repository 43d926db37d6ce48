package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/duo/internal/session"
	"github.com/matheus3301/duo/internal/store"
	"github.com/spf13/cobra"
)

var (
	outboxStatus string
	outboxLimit  int
	outboxJSON   bool
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "List journaled outgoing messages",
	Long: `List the outbox journal of the identity, newest first. Statuses are
queued, sent (written to the live channel), failed and confirmed (echoed by
the server).`,
	Args: cobra.NoArgs,
	RunE: runOutbox,
}

func init() {
	outboxCmd.Flags().StringVar(&outboxStatus, "status", "", "only entries with this status")
	outboxCmd.Flags().IntVar(&outboxLimit, "limit", 50, "maximum entries")
	outboxCmd.Flags().BoolVar(&outboxJSON, "json", false, "output in JSON format")
}

func runOutbox(cmd *cobra.Command, _ []string) error {
	switch outboxStatus {
	case "", store.OutboxQueued, store.OutboxSent, store.OutboxFailed, store.OutboxConfirmed:
	default:
		return fmt.Errorf("unknown status %q", outboxStatus)
	}
	id, _, err := resolveIdentity()
	if err != nil {
		return err
	}

	db, _, err := store.OpenMigrated(session.JournalPath(id))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	entries, err := db.ListOutbox(outboxStatus, outboxLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outboxJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTO\tSTATUS\tBODY\tDETAIL")
	for _, e := range entries {
		detail := e.ServerMsgID
		if e.Status == store.OutboxFailed {
			detail = e.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			time.UnixMilli(e.CreatedAt).Format(time.DateTime), e.Recipient, e.Status, truncate(e.Body, 40), detail)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
