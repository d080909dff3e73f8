package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clarity-board/internal/logging"
	"clarity-board/internal/model"
)

// DefaultTimeout bounds each remote call made by HTTPClient.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 8 << 20

// HTTPClient talks to a board server over JSON/HTTP. It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	actor      string
	httpClient *http.Client
	log        *logging.Logger
}

type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithActor sets the identity sent as the bearer token on every call.
func WithActor(actorID string) HTTPOption {
	return func(c *HTTPClient) { c.actor = strings.TrimSpace(actorID) }
}

func WithHTTPLogger(l *logging.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTransport replaces the underlying round tripper (tests).
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(c *HTTPClient) { c.httpClient.Transport = rt }
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("remote")
	return c
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) ListProjects(ctx context.Context) Result[[]model.Project] {
	return call[[]model.Project](ctx, c, http.MethodGet, "/projects", nil)
}

func (c *HTTPClient) CreateProject(ctx context.Context, p model.NewProject) Result[model.Project] {
	return call[model.Project](ctx, c, http.MethodPost, "/projects", p)
}

func (c *HTTPClient) FetchProject(ctx context.Context, projectID string) Result[model.Project] {
	return call[model.Project](ctx, c, http.MethodGet, "/projects/"+url.PathEscape(projectID), nil)
}

func (c *HTTPClient) FetchColumns(ctx context.Context, projectID string) Result[[]model.Column] {
	return call[[]model.Column](ctx, c, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/columns", nil)
}

func (c *HTTPClient) FetchAssigneeCounts(ctx context.Context, projectID string) Result[[]model.AssigneeCount] {
	return call[[]model.AssigneeCount](ctx, c, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/stats/assignees", nil)
}

func (c *HTTPClient) PatchTask(ctx context.Context, taskID string, p model.TaskPatch) Result[model.Task] {
	return call[model.Task](ctx, c, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), p)
}

func (c *HTTPClient) PatchColumn(ctx context.Context, columnID string, p model.ColumnPatch) Result[model.Column] {
	return call[model.Column](ctx, c, http.MethodPatch, "/columns/"+url.PathEscape(columnID), p)
}

func (c *HTTPClient) CreateTask(ctx context.Context, t model.NewTask) Result[model.Task] {
	return call[model.Task](ctx, c, http.MethodPost, "/tasks", t)
}

func (c *HTTPClient) CreateColumn(ctx context.Context, col model.NewColumn) Result[model.Column] {
	return call[model.Column](ctx, c, http.MethodPost, "/columns", col)
}

func (c *HTTPClient) DeleteTask(ctx context.Context, taskID string) Result[model.Deleted] {
	return call[model.Deleted](ctx, c, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil)
}

func (c *HTTPClient) DeleteColumn(ctx context.Context, columnID string) Result[model.Deleted] {
	return call[model.Deleted](ctx, c, http.MethodDelete, "/columns/"+url.PathEscape(columnID), nil)
}

// call performs one request and decodes either T or a TypedError. It never
// returns a Go error: every failure is folded into the Result.
func call[T any](ctx context.Context, c *HTTPClient, method, path string, body any) Result[T] {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Fail[T](http.StatusBadRequest, fmt.Sprintf("encode request: %v", err))
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return TransportFailure[T](err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actor != "" {
		req.Header.Set("Authorization", "Bearer "+c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err.Error())
		return TransportFailure[T](err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TransportFailure[T](err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var te TypedError
		if err := json.Unmarshal(raw, &te); err != nil || strings.TrimSpace(te.Message) == "" {
			te.Message = strings.TrimSpace(string(raw))
		}
		return Fail[T](resp.StatusCode, te.Message)
	}

	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		c.log.Warn("undecodable response", "method", method, "path", path, "status", resp.StatusCode, "error", err.Error())
		return Fail[T](http.StatusBadGateway, "invalid response from server")
	}
	out := Ok(data)
	out.Status = resp.StatusCode
	return out
}

var _ Client = (*HTTPClient)(nil)
