package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/matheus3301/duo/internal/config"
	"github.com/matheus3301/duo/internal/lock"
	"github.com/matheus3301/duo/internal/session"
	"github.com/matheus3301/duo/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// chatServer serves history and accepts live connections for one test.
func chatServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /history/{user}/{partner}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{
			"_id": "1", "from_user": r.PathValue("partner"), "to_user": r.PathValue("user"),
			"text": "hello", "timestamp": "2024-01-01T00:00:01",
		}})
	})
	mux.HandleFunc("/ws/{identity}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testParams(t *testing.T, serverURL string) Params {
	t.Helper()
	t.Setenv("DUO_HOME", t.TempDir())
	cfg := config.Default()
	cfg.ServerURL = serverURL
	cfg.Reconnect = false
	return Params{Identity: "alice", Config: cfg}
}

func TestModuleLifecycle(t *testing.T) {
	srv := chatServer(t)
	p := testParams(t, srv.URL)

	var sess *Session
	app := fxtest.New(t, Module(p), fx.Populate(&sess))
	app.RequireStart()

	if _, err := lock.Acquire(session.Dir("alice"), "alice"); err == nil {
		t.Error("second lock acquired while the session runs")
	} else {
		var held *lock.HeldError
		if !errors.As(err, &held) {
			t.Errorf("Acquire() error = %v, want *HeldError", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sess.Supervisor.Run(ctx) }()

	if err := sess.Open(context.Background(), "bob"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	msgs := slices.Collect(sess.View.Messages())
	if len(msgs) != 1 || msgs[0].Body != "hello" || msgs[0].Sender != "bob" {
		t.Errorf("timeline = %+v", msgs)
	}
	if got := sess.LastPartner(); got != "bob" {
		t.Errorf("LastPartner() = %q, want bob", got)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	app.RequireStop()

	// The journal outlives the session.
	db, _, err := store.OpenMigrated(session.JournalPath("alice"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if got, _ := db.LastPartner(); got != "bob" {
		t.Errorf("persisted last partner = %q, want bob", got)
	}
}

func TestSessionOpenRejectsBadPartner(t *testing.T) {
	srv := chatServer(t)
	p := testParams(t, srv.URL)

	var sess *Session
	app := fxtest.New(t, Module(p), fx.Populate(&sess))
	app.RequireStart()
	defer app.RequireStop()

	if err := sess.Open(context.Background(), "../etc"); err == nil {
		t.Error("Open(../etc) expected error")
	}
	if err := sess.Open(context.Background(), p.Identity); !errors.Is(err, ErrSelfChat) {
		t.Errorf("Open(self) = %v, want ErrSelfChat", err)
	}
}

func TestModuleRejectsBadDialect(t *testing.T) {
	p := testParams(t, "http://127.0.0.1:1")
	p.Config.Dialect = "xml"

	app := fx.New(Module(p), fx.NopLogger)
	if err := app.Err(); err == nil || !strings.Contains(err.Error(), "dialect") {
		t.Errorf("fx.New() error = %v, want dialect error", err)
	}
}
