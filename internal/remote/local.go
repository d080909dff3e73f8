package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clarity-board/internal/logging"
	"clarity-board/internal/model"
	"clarity-board/internal/store"
)

// NotAuthenticated is the error returned for writes without a caller identity.
const NotAuthenticated = "Not authenticated"

type actorKey struct{}

// ContextWithActor attaches the caller identity that Local uses for writes.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(actorKey{}).(string)
	return v
}

// Notifier is told which table of which project a successful write touched.
type Notifier func(table, projectID string)

// Local serves the Client contract directly from a store, in process.
// The HTTP server is built on it, so both paths share error mapping.
type Local struct {
	store  *store.Store
	actor  string
	notify Notifier
	log    *logging.Logger
}

type LocalOption func(*Local)

// WithDefaultActor sets the identity used when the context carries none.
func WithDefaultActor(actorID string) LocalOption {
	return func(l *Local) { l.actor = strings.TrimSpace(actorID) }
}

func WithNotifier(n Notifier) LocalOption {
	return func(l *Local) { l.notify = n }
}

func WithLocalLogger(lg *logging.Logger) LocalOption {
	return func(l *Local) {
		if lg != nil {
			l.log = lg
		}
	}
}

func NewLocal(s *store.Store, opts ...LocalOption) *Local {
	l := &Local{store: s, log: logging.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("local")
	return l
}

func (l *Local) actorFor(ctx context.Context) string {
	if a := ActorFromContext(ctx); a != "" {
		return a
	}
	return l.actor
}

func (l *Local) changed(table, projectID string) {
	if l.notify != nil && projectID != "" {
		l.notify(table, projectID)
	}
}

// StatusFor maps a store error to an HTTP status and a user-facing message.
func StatusFor(err error) (int, string) {
	var nf store.NotFoundError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &nf):
		kind := strings.TrimSpace(nf.Kind)
		if kind == "" {
			kind = "resource"
		}
		return http.StatusNotFound, strings.ToUpper(kind[:1]) + kind[1:] + " not found"
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func fromStore[T any](l *Local, op string, v T, err error) Result[T] {
	if err == nil {
		return Ok(v)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return TransportFailure[T](err)
	}
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		l.log.Error("store call failed", "op", op, "error", err.Error())
	}
	return Fail[T](status, msg)
}

func (l *Local) ListProjects(ctx context.Context) Result[[]model.Project] {
	v, err := l.store.ListProjects(ctx)
	return fromStore(l, "list projects", v, err)
}

func (l *Local) CreateProject(ctx context.Context, p model.NewProject) Result[model.Project] {
	actor := l.actorFor(ctx)
	if actor == "" {
		return Fail[model.Project](http.StatusUnauthorized, NotAuthenticated)
	}
	v, err := l.store.CreateProject(ctx, actor, p)
	return fromStore(l, "create project", v, err)
}

func (l *Local) FetchProject(ctx context.Context, projectID string) Result[model.Project] {
	v, err := l.store.GetProject(ctx, projectID)
	return fromStore(l, "fetch project", v, err)
}

func (l *Local) FetchColumns(ctx context.Context, projectID string) Result[[]model.Column] {
	v, err := l.store.Columns(ctx, projectID)
	return fromStore(l, "fetch columns", v, err)
}

func (l *Local) FetchAssigneeCounts(ctx context.Context, projectID string) Result[[]model.AssigneeCount] {
	v, err := l.store.AssigneeCounts(ctx, projectID)
	return fromStore(l, "fetch assignee counts", v, err)
}

func (l *Local) PatchTask(ctx context.Context, taskID string, p model.TaskPatch) Result[model.Task] {
	if l.actorFor(ctx) == "" {
		return Fail[model.Task](http.StatusUnauthorized, NotAuthenticated)
	}
	v, err := l.store.PatchTask(ctx, taskID, p)
	if err == nil {
		l.changed("tasks", v.ProjectID)
	}
	return fromStore(l, "patch task", v, err)
}

func (l *Local) PatchColumn(ctx context.Context, columnID string, p model.ColumnPatch) Result[model.Column] {
	if l.actorFor(ctx) == "" {
		return Fail[model.Column](http.StatusUnauthorized, NotAuthenticated)
	}
	v, err := l.store.PatchColumn(ctx, columnID, p)
	if err == nil {
		l.changed("columns", v.ProjectID)
	}
	return fromStore(l, "patch column", v, err)
}

func (l *Local) CreateTask(ctx context.Context, t model.NewTask) Result[model.Task] {
	actor := l.actorFor(ctx)
	if actor == "" {
		return Fail[model.Task](http.StatusUnauthorized, NotAuthenticated)
	}
	v, err := l.store.CreateTask(ctx, actor, t)
	if err == nil {
		l.changed("tasks", v.ProjectID)
	}
	return fromStore(l, "create task", v, err)
}

func (l *Local) CreateColumn(ctx context.Context, c model.NewColumn) Result[model.Column] {
	if l.actorFor(ctx) == "" {
		return Fail[model.Column](http.StatusUnauthorized, NotAuthenticated)
	}
	v, err := l.store.CreateColumn(ctx, c)
	if err == nil {
		l.changed("columns", v.ProjectID)
	}
	return fromStore(l, "create column", v, err)
}

func (l *Local) DeleteTask(ctx context.Context, taskID string) Result[model.Deleted] {
	if l.actorFor(ctx) == "" {
		return Fail[model.Deleted](http.StatusUnauthorized, NotAuthenticated)
	}
	removed, err := l.store.DeleteTask(ctx, taskID)
	if err == nil {
		l.changed("tasks", removed.ProjectID)
	}
	return fromStore(l, "delete task", model.Deleted{Success: err == nil}, err)
}

func (l *Local) DeleteColumn(ctx context.Context, columnID string) Result[model.Deleted] {
	if l.actorFor(ctx) == "" {
		return Fail[model.Deleted](http.StatusUnauthorized, NotAuthenticated)
	}
	removed, err := l.store.DeleteColumn(ctx, columnID)
	if err == nil {
		l.changed("columns", removed.ProjectID)
	}
	return fromStore(l, "delete column", model.Deleted{Success: err == nil}, err)
}

var _ Client = (*Local)(nil)
