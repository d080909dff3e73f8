// Package pipeline applies board mutations optimistically.
//
// Every mutation runs the same sequence: validate the intent, snapshot the
// published board, publish the locally computed next board, call the remote
// service, then either keep the optimistic board (commit) or restore the
// snapshot (rollback). Both outcomes end by refetching every projection the
// mutation affects, so the server's answer always wins eventually.
//
// Mutations on the same project serialize their apply phase; remote calls run
// concurrently. A mutation that starts while another is in flight snapshots
// the other's optimistic board, so a late rollback of the first can discard
// the second's optimistic change until the refetch lands.
package pipeline

import (
	"context"
	"net/http"
	"sync"
	"time"

	"clarity-board/internal/cache"
	"clarity-board/internal/intent"
	"clarity-board/internal/logging"
	"clarity-board/internal/model"
	"clarity-board/internal/mutate"
	"clarity-board/internal/remote"
	"clarity-board/internal/snapshot"

	"github.com/google/uuid"
)

// TransportMessage is surfaced when the remote call never got a response.
const TransportMessage = "Could not reach the server"

type State string

const (
	StateIdle       State = "idle"
	StateApplying   State = "applying"
	StateInFlight   State = "in_flight"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Result describes a settled mutation. Board is the projection published right
// after settling, before the reconciling refetch resolves.
type Result struct {
	MutationID string             `json:"mutationId,omitempty"`
	Intent     intent.Intent      `json:"intent"`
	State      State              `json:"state"`
	Err        *remote.TypedError `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
	Board      model.Board        `json:"board"`
	Task       *model.Task        `json:"task,omitempty"`
	Column     *model.Column      `json:"column,omitempty"`
}

func (r Result) Committed() bool { return r.State == StateCommitted }

// Engine owns the board, project-detail and assignee-count projections for
// any number of projects. It is safe for concurrent use.
type Engine struct {
	client remote.Client
	log    *logging.Logger

	boards    *cache.Accessor[model.Board]
	projects  *cache.Accessor[model.Project]
	assignees *cache.Accessor[[]model.AssigneeCount]

	mu    sync.Mutex
	locks map[cache.Key]*sync.Mutex
}

type Option func(*Engine)

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(client remote.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		log:    logging.Nop(),
		locks:  map[cache.Key]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("pipeline")
	e.boards = cache.New(e.fetchBoard, cache.WithLogger(e.log))
	e.projects = cache.New(e.fetchProject, cache.WithLogger(e.log))
	e.assignees = cache.New(e.fetchAssignees, cache.WithLogger(e.log))
	return e
}

func (e *Engine) fetchBoard(ctx context.Context, key cache.Key) (model.Board, error) {
	res := e.client.FetchColumns(ctx, key.ID)
	if !res.OK {
		return model.Board{}, res.AsError()
	}
	return mutate.Normalize(model.Board{ProjectID: key.ID, Columns: res.Data}), nil
}

func (e *Engine) fetchProject(ctx context.Context, key cache.Key) (model.Project, error) {
	res := e.client.FetchProject(ctx, key.ID)
	if !res.OK {
		return model.Project{}, res.AsError()
	}
	return res.Data, nil
}

func (e *Engine) fetchAssignees(ctx context.Context, key cache.Key) ([]model.AssigneeCount, error) {
	res := e.client.FetchAssigneeCounts(ctx, key.ID)
	if !res.OK {
		return nil, res.AsError()
	}
	if res.Data == nil {
		return []model.AssigneeCount{}, nil
	}
	return res.Data, nil
}

// Load fetches and publishes the board for projectID.
func (e *Engine) Load(ctx context.Context, projectID string) (model.Board, error) {
	return e.boards.Load(ctx, cache.ColumnsKey(projectID))
}

func (e *Engine) LoadProject(ctx context.Context, projectID string) (model.Project, error) {
	return e.projects.Load(ctx, cache.ProjectKey(projectID))
}

func (e *Engine) LoadAssigneeCounts(ctx context.Context, projectID string) ([]model.AssigneeCount, error) {
	return e.assignees.Load(ctx, cache.AssigneesKey(projectID))
}

// Board returns the currently published board for projectID.
func (e *Engine) Board(projectID string) (model.Board, bool) {
	b, ok := e.boards.Get(cache.ColumnsKey(projectID))
	if !ok {
		return model.Board{}, false
	}
	return b.Clone(), true
}

func (e *Engine) Project(projectID string) (model.Project, bool) {
	return e.projects.Get(cache.ProjectKey(projectID))
}

func (e *Engine) AssigneeCounts(projectID string) ([]model.AssigneeCount, bool) {
	v, ok := e.assignees.Get(cache.AssigneesKey(projectID))
	if !ok {
		return nil, false
	}
	return append([]model.AssigneeCount(nil), v...), true
}

// Invalidate schedules a refetch of key. Realtime listeners call it when the
// server announces a change.
func (e *Engine) Invalidate(key cache.Key) {
	switch key.Kind {
	case cache.KindColumns:
		e.boards.Invalidate(key)
	case cache.KindProject:
		e.projects.Invalidate(key)
	case cache.KindAssignees:
		e.assignees.Invalidate(key)
	default:
		e.log.Warn("invalidate: unknown key kind", "key", key.String())
	}
}

// Subscribe signals whenever the board for projectID is replaced.
func (e *Engine) Subscribe(projectID string) (<-chan struct{}, func()) {
	return e.boards.Subscribe(cache.ColumnsKey(projectID))
}

// WaitSettled blocks until no refetch is outstanding for any projection of
// projectID.
func (e *Engine) WaitSettled(ctx context.Context, projectID string) error {
	if err := e.boards.WaitIdle(ctx, cache.ColumnsKey(projectID)); err != nil {
		return err
	}
	if err := e.projects.WaitIdle(ctx, cache.ProjectKey(projectID)); err != nil {
		return err
	}
	return e.assignees.WaitIdle(ctx, cache.AssigneesKey(projectID))
}

// Close stops background refetches.
func (e *Engine) Close() {
	e.boards.Close()
	e.projects.Close()
	e.assignees.Close()
}

func (e *Engine) keyLock(key cache.Key) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.locks[key]
	if l == nil {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// Apply runs in through the optimistic pipeline. The returned error is non-nil
// only when the intent fails validation; in that case nothing was published,
// no remote call was made, and no refetch was scheduled. Remote failures are
// reported in the Result.
func (e *Engine) Apply(ctx context.Context, in intent.Intent) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{Intent: in, State: StateIdle}, err
	}

	res := Result{MutationID: uuid.NewString(), Intent: in, State: StateApplying}
	log := e.log.WithProject(in.ProjectID).WithMutation(res.MutationID)
	ctx, span := startMutationSpan(ctx, in, res.MutationID)
	defer span.End()
	started := time.Now()

	key := cache.ColumnsKey(in.ProjectID)
	snap := e.applyLocal(key, in, res.MutationID, log)

	res.State = StateInFlight
	out := e.dispatch(ctx, in)

	if out.ok {
		res.State = StateCommitted
		res.Task = out.task
		res.Column = out.column
		log.Info("mutation committed", "kind", string(in.Kind))
	} else {
		res.State = StateRolledBack
		e.restore(key, snap)
		res.Err, res.Message = surface(out)
		raw := res.Message
		if out.err != nil {
			raw = out.err.Message
		}
		log.Warn("mutation rolled back",
			"kind", string(in.Kind),
			"status", out.status,
			"error", raw,
		)
	}
	res.Board, _ = e.Board(in.ProjectID)

	for _, k := range AffectedKeys(in.Kind, in.ProjectID) {
		e.Invalidate(k)
	}

	setSpanOutcome(span, res)
	recordMutation(ctx, in.Kind, res.State, time.Since(started))
	return res, nil
}

// applyLocal publishes the optimistic board and returns the snapshot taken
// immediately before. A board that was never loaded, or an intent that does
// not match the published board, leaves the projection untouched.
func (e *Engine) applyLocal(key cache.Key, in intent.Intent, mutationID string, log *logging.Logger) snapshot.Snapshot {
	l := e.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if n := e.boards.CancelRefetch(key); n > 0 {
		log.Debug("superseded refetches", "count", n)
	}
	cur, present := e.boards.Get(key)
	snap := snapshot.Capture(key.String(), cur, present, time.Now())
	if !present {
		log.Debug("no published board; skipping optimistic apply", "kind", string(in.Kind))
		return snap
	}
	next, err := optimistic(cur, in, mutationID, time.Now().UTC())
	if err != nil {
		log.Debug("optimistic apply skipped", "kind", string(in.Kind), "error", err.Error())
		return snap
	}
	e.boards.Set(key, next)
	log.Debug("optimistic board published", "kind", string(in.Kind))
	return snap
}

func (e *Engine) restore(key cache.Key, snap snapshot.Snapshot) {
	l := e.keyLock(key)
	l.Lock()
	defer l.Unlock()
	if b, ok := snap.Restore(); ok {
		e.boards.Set(key, b)
	}
}

func surface(out outcome) (*remote.TypedError, string) {
	if out.status == 0 {
		return &remote.TypedError{Message: TransportMessage}, TransportMessage
	}
	if out.err == nil {
		return &remote.TypedError{Message: "request failed"}, "request failed"
	}
	return out.err, out.err.Message
}

type outcome struct {
	ok     bool
	status int
	err    *remote.TypedError
	task   *model.Task
	column *model.Column
}

func taskOutcome(r remote.Result[model.Task]) outcome {
	o := outcome{ok: r.OK, status: r.Status, err: r.Err}
	if r.OK {
		t := r.Data.Clone()
		o.task = &t
	}
	return o
}

func columnOutcome(r remote.Result[model.Column]) outcome {
	o := outcome{ok: r.OK, status: r.Status, err: r.Err}
	if r.OK {
		c := r.Data.Clone()
		o.column = &c
	}
	return o
}

func deletedOutcome(r remote.Result[model.Deleted]) outcome {
	o := outcome{ok: r.OK && r.Data.Success, status: r.Status, err: r.Err}
	if r.OK && !r.Data.Success {
		o.err = &remote.TypedError{Message: "delete was not acknowledged"}
	}
	return o
}

// dispatch translates in into the remote contract and performs the call.
func (e *Engine) dispatch(ctx context.Context, in intent.Intent) outcome {
	switch in.Kind {
	case intent.KindMoveTask, intent.KindUpdateTask:
		return taskOutcome(e.client.PatchTask(ctx, in.TaskID, in.TaskPatch()))
	case intent.KindCreateTask:
		return taskOutcome(e.client.CreateTask(ctx, in.NewTask()))
	case intent.KindDeleteTask:
		return deletedOutcome(e.client.DeleteTask(ctx, in.TaskID))
	case intent.KindMoveColumn, intent.KindRenameColumn:
		return columnOutcome(e.client.PatchColumn(ctx, in.ColumnID, in.ColumnPatch()))
	case intent.KindCreateColumn:
		return columnOutcome(e.client.CreateColumn(ctx, in.NewColumn()))
	case intent.KindDeleteColumn:
		return deletedOutcome(e.client.DeleteColumn(ctx, in.ColumnID))
	default:
		return outcome{status: http.StatusBadRequest, err: &remote.TypedError{Message: "unsupported intent kind " + string(in.Kind)}}
	}
}
