// Package remote defines the contract between the board engine and the
// authoritative board service, plus two implementations: an HTTP client and an
// in-process adapter over the SQLite store.
package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clarity-board/internal/model"
)

// TypedError is the error body returned by the board service.
type TypedError struct {
	Message string `json:"error"`
}

func (e *TypedError) Error() string { return e.Message }

// Result is the discriminated outcome of a remote call: either OK with Data,
// or not OK with Err and the HTTP status (0 for transport failures).
type Result[T any] struct {
	OK     bool
	Data   T
	Err    *TypedError
	Status int
}

func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data, Status: http.StatusOK}
}

func Fail[T any](status int, msg string) Result[T] {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return Result[T]{Err: &TypedError{Message: msg}, Status: status}
}

// TransportFailure wraps an error that prevented any server response.
func TransportFailure[T any](err error) Result[T] {
	msg := "transport error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Err: &TypedError{Message: msg}, Status: 0}
}

// Transport reports whether the error never got a server verdict (network or
// timeout). Those carry status 0.
func (r Result[T]) Transport() bool { return !r.OK && r.Status == 0 }

// AsError converts a failed Result into an error (nil when OK).
func (r Result[T]) AsError() error {
	if r.OK {
		return nil
	}
	if r.Err == nil {
		return errors.New("request failed")
	}
	return r.Err
}

// Client is the set of calls the engine issues against the board service.
// Every method must return (never panic) and report failures in the Result.
type Client interface {
	ListProjects(ctx context.Context) Result[[]model.Project]
	CreateProject(ctx context.Context, p model.NewProject) Result[model.Project]
	FetchProject(ctx context.Context, projectID string) Result[model.Project]
	FetchColumns(ctx context.Context, projectID string) Result[[]model.Column]
	FetchAssigneeCounts(ctx context.Context, projectID string) Result[[]model.AssigneeCount]

	PatchTask(ctx context.Context, taskID string, p model.TaskPatch) Result[model.Task]
	PatchColumn(ctx context.Context, columnID string, p model.ColumnPatch) Result[model.Column]
	CreateTask(ctx context.Context, t model.NewTask) Result[model.Task]
	CreateColumn(ctx context.Context, c model.NewColumn) Result[model.Column]
	DeleteTask(ctx context.Context, taskID string) Result[model.Deleted]
	DeleteColumn(ctx context.Context, columnID string) Result[model.Deleted]
}
