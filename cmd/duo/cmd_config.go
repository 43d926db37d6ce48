package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/session"
	"github.com/spf13/cobra"
)

var (
	configForce  bool
	configServer string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ~/.duo/config.toml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configServer, "server", "", "backend base URL")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.Default()
	if identityFlag != "" {
		if err := session.ValidateIdentity(identityFlag); err != nil {
			return err
		}
		cfg.Identity = identityFlag
	}
	if configServer != "" {
		cfg.ServerURL = configServer
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", configPath())
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
