package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Wire dialects for outbound frames.
const (
	DialectCanonical = "canonical"
	DialectLegacy    = "legacy"
)

// Echo reconciliation strategies.
const (
	ReconcileEcho     = "echo"
	ReconcileKeepBoth = "keep-both"
)

// Send failure policies.
const (
	OnFailureKeep    = "keep"
	OnFailureRetract = "retract"
)

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.duo/config.toml.
type Config struct {
	Identity            string   `toml:"identity"`
	ServerURL           string   `toml:"server_url"`
	LiveURL             string   `toml:"live_url"`
	HistoryTimeout      Duration `toml:"history_timeout"`
	Dialect             string   `toml:"dialect"`
	Reconcile           string   `toml:"reconcile"`
	EchoWindow          Duration `toml:"echo_window"`
	OnSendFailure       string   `toml:"on_send_failure"`
	SendRate            int      `toml:"send_rate"`
	Reconnect           bool     `toml:"reconnect"`
	ReconnectMaxElapsed Duration `toml:"reconnect_max_elapsed"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ServerURL:           "http://localhost:8000",
		HistoryTimeout:      Duration{10 * time.Second},
		Dialect:             DialectCanonical,
		Reconcile:           ReconcileEcho,
		EchoWindow:          Duration{30 * time.Second},
		OnSendFailure:       OnFailureKeep,
		Reconnect:           true,
		ReconnectMaxElapsed: Duration{2 * time.Minute},
	}
}

// Load reads config from the given path on top of Default. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads config from path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks enumerated fields and URLs.
func (c *Config) Validate() error {
	if _, err := parseHTTPURL(c.ServerURL); err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if c.LiveURL != "" {
		u, err := url.Parse(c.LiveURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("live_url %q: must be a ws:// or wss:// URL", c.LiveURL)
		}
	}
	switch c.Dialect {
	case DialectCanonical, DialectLegacy:
	default:
		return fmt.Errorf("dialect %q: must be %s or %s", c.Dialect, DialectCanonical, DialectLegacy)
	}
	switch c.Reconcile {
	case ReconcileEcho, ReconcileKeepBoth:
	default:
		return fmt.Errorf("reconcile %q: must be %s or %s", c.Reconcile, ReconcileEcho, ReconcileKeepBoth)
	}
	switch c.OnSendFailure {
	case OnFailureKeep, OnFailureRetract:
	default:
		return fmt.Errorf("on_send_failure %q: must be %s or %s", c.OnSendFailure, OnFailureKeep, OnFailureRetract)
	}
	if c.SendRate < 0 {
		return fmt.Errorf("send_rate must not be negative")
	}
	return nil
}

// LiveEndpoint returns the WebSocket base URL, deriving it from ServerURL when LiveURL is unset.
func (c *Config) LiveEndpoint() string {
	if c.LiveURL != "" {
		return strings.TrimRight(c.LiveURL, "/")
	}
	u, err := parseHTTPURL(c.ServerURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return strings.TrimRight(u.String(), "/")
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q: must be an http:// or https:// URL", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q: missing host", raw)
	}
	return u, nil
}
