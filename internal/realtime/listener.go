package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clarity-board/internal/cache"
	"clarity-board/internal/logging"

	"github.com/gorilla/websocket"
)

// Invalidator is the part of the board engine a listener drives.
type Invalidator interface {
	Invalidate(key cache.Key)
}

// Listener follows one project's event stream and invalidates the affected
// cache keys for every event. It reconnects until its context ends.
type Listener struct {
	url       string
	projectID string
	target    Invalidator
	log       *logging.Logger
	dialer    *websocket.Dialer
	header    http.Header
	retry     time.Duration
	onEvent   func(Event)
}

type ListenerOption func(*Listener)

func WithListenerLogger(l *logging.Logger) ListenerOption {
	return func(ln *Listener) {
		if l != nil {
			ln.log = l
		}
	}
}

// WithRetryDelay sets the initial reconnect delay; it doubles up to 30s.
func WithRetryDelay(d time.Duration) ListenerOption {
	return func(ln *Listener) {
		if d > 0 {
			ln.retry = d
		}
	}
}

// WithBearer authenticates the websocket handshake.
func WithBearer(actorID string) ListenerOption {
	return func(ln *Listener) {
		if a := strings.TrimSpace(actorID); a != "" {
			ln.header.Set("Authorization", "Bearer "+a)
		}
	}
}

// OnEvent registers a hook called after each event's keys are invalidated.
func OnEvent(fn func(Event)) ListenerOption {
	return func(ln *Listener) { ln.onEvent = fn }
}

// WSURL derives the event stream URL for projectID from a server base URL.
func WSURL(baseURL, projectID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/projects/" + url.PathEscape(projectID) + "/ws"
	return u.String(), nil
}

func NewListener(baseURL, projectID string, target Invalidator, opts ...ListenerOption) (*Listener, error) {
	if target == nil {
		return nil, errors.New("listener needs an invalidation target")
	}
	wsURL, err := WSURL(baseURL, projectID)
	if err != nil {
		return nil, err
	}
	ln := &Listener{
		url:       wsURL,
		projectID: projectID,
		target:    target,
		log:       logging.Nop(),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		header:    http.Header{},
		retry:     time.Second,
	}
	for _, opt := range opts {
		opt(ln)
	}
	ln.log = ln.log.WithComponent("realtime").WithProject(projectID)
	return ln, nil
}

// Run blocks until ctx is done, returning ctx.Err().
func (ln *Listener) Run(ctx context.Context) error {
	delay := ln.retry
	for {
		conn, _, err := ln.dialer.DialContext(ctx, ln.url, ln.header)
		if err == nil {
			delay = ln.retry
			ln.log.Debug("realtime connected", "url", ln.url)
			err = ln.consume(ctx, conn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ln.log.Warn("realtime disconnected; retrying", "error", errString(err), "delay", delay.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}

func (ln *Listener) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if !ev.valid() || ev.ProjectID != ln.projectID {
			ln.log.Debug("ignoring event", "table", ev.Table, "event_project", ev.ProjectID)
			continue
		}
		for _, k := range ev.Keys() {
			ln.target.Invalidate(k)
		}
		if ln.onEvent != nil {
			ln.onEvent(ev)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
