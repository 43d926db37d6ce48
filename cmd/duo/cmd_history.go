package main

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/duo/internal/history"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/session"
	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history <partner>",
	Short: "Print the stored history of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output in JSON format")
}

// jsonMessage is the canonical message as printed by --json.
type jsonMessage struct {
	ID        string    `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sentAt"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, cfg, err := resolveIdentity()
	if err != nil {
		return err
	}
	partner := args[0]
	if err := session.ValidateIdentity(partner); err != nil {
		return err
	}

	logger, err := logging.New(session.LogPath(id), id, logging.Options{Console: verbose, Level: logLevel()})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	loader := history.NewLoader(cfg.ServerURL, cfg.HistoryTimeout.Duration, nil, logger)
	msgs, err := loader.Load(cmd.Context(), id, partner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(msgs))
	}
	for _, m := range msgs {
		printMessage(out, m)
	}
	return nil
}

func toJSON(msgs []message.Message) []jsonMessage {
	out := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, jsonMessage{
			ID:        m.ID,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			Body:      m.Body,
			SentAt:    m.SentAt,
		})
	}
	return out
}
