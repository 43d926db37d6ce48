package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoadNormalizesAndSorts(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id":"2","from_user":"b","to_user":"a","text":"second","timestamp":"2024-01-01T00:00:02"},
			{"_id":"1","from_user":"a","to_user":"b","text":"hi","timestamp":"2024-01-01T00:00:01"},
			{"_id":"x","to_user":"b","text":"orphan","timestamp":"2024-01-01T00:00:03"}
		]`))
	}))
	defer srv.Close()

	l := NewLoader(srv.URL+"/", time.Second, srv.Client(), nil)
	msgs, err := l.Load(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotPath != "/history/a/b" {
		t.Errorf("request path = %q, want /history/a/b", gotPath)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (malformed skipped)", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[1].ID != "2" {
		t.Errorf("order = [%s %s], want [1 2]", msgs[0].ID, msgs[1].ID)
	}
	first := msgs[0]
	if first.Sender != "a" || first.Recipient != "b" || first.Body != "hi" {
		t.Errorf("first = %+v, want canonical a->b hi", first)
	}
	if !first.SentAt.Equal(time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)) {
		t.Errorf("SentAt = %v", first.SentAt)
	}
}

func TestLoadEscapesIdentities(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	l := NewLoader(srv.URL, 0, nil, nil)
	if _, err := l.Load(context.Background(), "a b", "c"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/history/a%20b/c" {
		t.Errorf("escaped path = %q", gotPath)
	}
}

func TestLoadUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}},
		{"not an array", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"detail":"nope"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewLoader(srv.URL, time.Second, nil, nil).Load(context.Background(), "a", "b")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("Load() error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestLoadConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLoader(url, time.Second, nil, nil).Load(context.Background(), "a", "b")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Load() error = %v, want ErrUnavailable", err)
	}
}

func TestLoadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewLoader(srv.URL, 50*time.Millisecond, nil, nil).Load(context.Background(), "a", "b")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Load() error = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Load() error = %v, want wrapped DeadlineExceeded", err)
	}
}
