package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var (
	identityFlag string
	configFlag   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "duo",
	Short: "Terminal client for one-to-one chat",
	Long: `duo talks to a chat backend that exposes message history over HTTP
and live delivery over a WebSocket per identity.

Run 'duo config init --identity <name>' once, then 'duo chat <partner>'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&identityFlag, "identity", "i", "", "local identity (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: ~/.duo/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return session.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(configPath())
}

// resolveIdentity loads the config and picks the identity to act as.
func resolveIdentity() (string, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", nil, err
	}
	id, err := session.Resolve(identityFlag, cfg)
	if err != nil {
		return "", nil, err
	}
	return id, cfg, nil
}

func logLevel() zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
