package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirHonorsDuoHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("DUO_HOME", tmpDir)

	got := Dir("alice")
	want := filepath.Join(tmpDir, "identities", "alice")
	if got != want {
		t.Errorf("Dir(alice) = %q, want %q", got, want)
	}
}

func TestDefaultBaseDir(t *testing.T) {
	t.Setenv("DUO_HOME", "")
	home, _ := os.UserHomeDir()
	if got, want := BaseDir(), filepath.Join(home, ".duo"); got != want {
		t.Errorf("BaseDir() = %q, want %q", got, want)
	}
}

func TestIdentityPaths(t *testing.T) {
	tests := []struct {
		name   string
		got    string
		suffix string
	}{
		{"lock", LockPath("alice"), filepath.Join("identities", "alice", "LOCK")},
		{"journal", JournalPath("alice"), filepath.Join("identities", "alice", "journal.db")},
		{"log", LogPath("alice"), filepath.Join("identities", "alice", "logs", "duo.log")},
	}
	for _, tt := range tests {
		if !strings.HasSuffix(tt.got, tt.suffix) {
			t.Errorf("%s path = %q, want suffix %q", tt.name, tt.got, tt.suffix)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("DUO_HOME", t.TempDir())

	if err := EnsureDir("alice"); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(LogDir("alice"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("log dir permission = %o, want 0700", perm)
	}
}
