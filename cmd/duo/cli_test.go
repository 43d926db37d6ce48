package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/message"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		identityFlag, configFlag, configForce, configServer = "", "", false, ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if _, err := execute(t, "config", "init", "--config", path, "--identity", "alice", "--server", "https://chat.example.com"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Identity != "alice" || cfg.ServerURL != "https://chat.example.com" {
		t.Errorf("config = %+v", cfg)
	}
	if got := cfg.LiveEndpoint(); got != "wss://chat.example.com" {
		t.Errorf("LiveEndpoint() = %q", got)
	}

	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Error("second config init without --force should fail")
	}

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `identity = "alice"`) {
		t.Errorf("config show output missing identity:\n%s", out)
	}
}

func TestConfigInitRejectsBadIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := execute(t, "config", "init", "--config", path, "--identity", "../x"); err == nil {
		t.Error("expected invalid identity error")
	}
}

func TestMessageKey(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	tests := []struct {
		m    message.Message
		want string
	}{
		{message.Message{ID: "1", ClientID: "c"}, "id:1"},
		{message.Message{ClientID: "c"}, "client:c"},
	}
	for _, tt := range tests {
		if got := messageKey(tt.m); got != tt.want {
			t.Errorf("messageKey(%+v) = %q, want %q", tt.m, got, tt.want)
		}
	}
	a := messageKey(message.Message{Sender: "b", Recipient: "a", Body: "x", SentAt: at})
	b := messageKey(message.Message{Sender: "b", Recipient: "a", Body: "y", SentAt: at})
	if a == b {
		t.Error("id-less messages with different bodies share a key")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("hi", 5); got != "hi" {
		t.Errorf("truncate() = %q", got)
	}
}
