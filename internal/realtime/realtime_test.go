package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clarity-board/internal/cache"
	"clarity-board/internal/logging"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	keys chan cache.Key
}

func (r *recorder) Invalidate(k cache.Key) { r.keys <- k }

func TestEventKeys(t *testing.T) {
	got := Event{Table: TableTasks, ProjectID: "proj-a"}.Keys()
	want := []cache.Key{cache.ColumnsKey("proj-a"), cache.AssigneesKey("proj-a")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("task event keys (-want +got):\n%s", diff)
	}
	got = Event{Table: TableColumns, ProjectID: "proj-a"}.Keys()
	if diff := cmp.Diff([]cache.Key{cache.ColumnsKey("proj-a")}, got); diff != "" {
		t.Fatalf("column event keys (-want +got):\n%s", diff)
	}
}

func TestHub_PublishesPerProject(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe("proj-a")
	defer cancelA()
	b, cancelB := h.Subscribe("proj-b")
	defer cancelB()

	h.Notify(TableColumns, "proj-a")
	h.Publish(Event{Table: "comments", ProjectID: "proj-a"})

	select {
	case ev := <-a:
		if ev.Table != TableColumns || ev.ProjectID != "proj-a" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event for proj-a")
	}
	select {
	case ev := <-a:
		t.Fatalf("invalid event delivered: %+v", ev)
	case ev := <-b:
		t.Fatalf("event leaked to proj-b: %+v", ev)
	default:
	}

	cancelA()
	cancelA()
	if n := h.Subscribers("proj-a"); n != 0 {
		t.Fatalf("expected no subscribers; got %d", n)
	}
}

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":      "ws://localhost:8080/projects/proj-a/ws",
		"https://board.example.com/": "wss://board.example.com/projects/proj-a/ws",
		"http://host/api":            "ws://host/api/projects/proj-a/ws",
	}
	for in, want := range cases {
		got, err := WSURL(in, "proj-a")
		if err != nil {
			t.Fatalf("WSURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("WSURL(%q) = %q; want %q", in, got, want)
		}
	}
	if _, err := WSURL("ftp://host", "proj-a"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestListener_InvalidatesOnPushedEvents(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/{projectId}/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.PathValue("projectId"), logging.Nop())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec := &recorder{keys: make(chan cache.Key, 8)}
	ln, err := NewListener(srv.URL, "proj-a", rec, WithRetryDelay(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ln.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("proj-a") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("listener never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Notify(TableTasks, "proj-a")
	var got []cache.Key
	for len(got) < 2 {
		select {
		case k := <-rec.keys:
			got = append(got, k)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected invalidations; got %v", got)
		}
	}
	want := []cache.Key{cache.ColumnsKey("proj-a"), cache.AssigneesKey("proj-a")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalidated keys (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled; got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener did not stop")
	}
}

func TestSameOrigin(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8080", true},
		{"HTTP://LOCALHOST:8080", true},
		{"http://localhost:8080.evil.com", false},
		{"http://evil.com/localhost:8080", false},
		{"http://localhost:9090", false},
		{"://bad", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/projects/proj-a/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := sameOrigin(r); got != tc.want {
			t.Fatalf("origin %q: got %v, want %v", tc.origin, got, tc.want)
		}
	}
}
