package pipeline

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"clarity-board/internal/cache"
	"clarity-board/internal/intent"
	"clarity-board/internal/model"
	"clarity-board/internal/mutate"
	"clarity-board/internal/remote"

	"github.com/google/go-cmp/cmp"
)

// fakeRemote is an in-memory board service. It applies accepted mutations with
// the same pure functions the engine uses, so a committed optimistic board and
// the refetched board agree.
type fakeRemote struct {
	mu      sync.Mutex
	board   model.Board
	nextID  int
	fetches map[cache.Kind]int
	calls   int

	failStatus int
	failMsg    string
	transport  bool

	entered chan struct{}
	gate    chan struct{}

	columnsGate *fetchGate
}

// fetchGate holds the next FetchColumns call. The call reads the board only
// after release is closed and ignores cancellation, like a slow server.
type fetchGate struct {
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRemote) holdNextColumnsFetch() *fetchGate {
	g := &fetchGate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.columnsGate = g
	f.mu.Unlock()
	return g
}

func (g *fetchGate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for columns fetch")
	}
}

func newFakeRemote(b model.Board) *fakeRemote {
	return &fakeRemote{board: b.Clone(), nextID: 100, fetches: map[cache.Kind]int{}}
}

// admit blocks on the gate (when set) and reports whether the call is rejected.
func (f *fakeRemote) admit() (int, string, bool) {
	f.mu.Lock()
	f.calls++
	entered, gate := f.entered, f.gate
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transport {
		return 0, "dial tcp 127.0.0.1:1: connect: connection refused", true
	}
	if f.failStatus != 0 {
		return f.failStatus, f.failMsg, true
	}
	return 0, "", false
}

func (f *fakeRemote) mutationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) fetchCount(k cache.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[k]
}

func rejected[T any](status int, msg string) remote.Result[T] {
	if status == 0 {
		return remote.TransportFailure[T](errString(msg))
	}
	return remote.Fail[T](status, msg)
}

type errString string

func (e errString) Error() string { return string(e) }

func (f *fakeRemote) ListProjects(ctx context.Context) remote.Result[[]model.Project] {
	p := f.FetchProject(ctx, f.board.ProjectID)
	return remote.Ok([]model.Project{p.Data})
}

func (f *fakeRemote) CreateProject(ctx context.Context, p model.NewProject) remote.Result[model.Project] {
	return remote.Fail[model.Project](http.StatusNotImplemented, "not implemented")
}

func (f *fakeRemote) FetchProject(ctx context.Context, projectID string) remote.Result[model.Project] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[cache.KindProject]++
	return remote.Ok(model.Project{
		ID:          projectID,
		Name:        "Demo",
		ColumnCount: len(f.board.Columns),
		TaskCount:   f.board.TaskCount(),
	})
}

func (f *fakeRemote) FetchColumns(ctx context.Context, projectID string) remote.Result[[]model.Column] {
	f.mu.Lock()
	g := f.columnsGate
	f.columnsGate = nil
	f.fetches[cache.KindColumns]++
	f.mu.Unlock()
	if g != nil {
		close(g.entered)
		<-g.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return remote.Ok(f.board.Clone().Columns)
}


func (f *fakeRemote) FetchAssigneeCounts(ctx context.Context, projectID string) remote.Result[[]model.AssigneeCount] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[cache.KindAssignees]++
	return remote.Ok(mutate.AssigneeCounts(f.board))
}

func (f *fakeRemote) PatchTask(ctx context.Context, taskID string, p model.TaskPatch) remote.Result[model.Task] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Task](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := mutate.PatchTask(f.board, taskID, p)
	if err != nil {
		return remote.Fail[model.Task](http.StatusNotFound, "Task not found")
	}
	f.board = next
	ci, ti := next.FindTask(taskID)
	return remote.Ok(next.Columns[ci].Tasks[ti])
}

func (f *fakeRemote) PatchColumn(ctx context.Context, columnID string, p model.ColumnPatch) remote.Result[model.Column] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Column](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := mutate.PatchColumn(f.board, columnID, p)
	if err != nil {
		return remote.Fail[model.Column](http.StatusNotFound, "Column not found")
	}
	f.board = next
	return remote.Ok(next.Columns[next.FindColumn(columnID)])
}

func (f *fakeRemote) CreateTask(ctx context.Context, nt model.NewTask) remote.Result[model.Task] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Task](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Task{ID: "task-" + strconv.Itoa(f.nextID), ColumnID: nt.ColumnID, Title: nt.Title, AssigneeID: nt.AssigneeID}
	next, err := mutate.InsertTask(f.board, t, targetOrLast(nt.Position))
	if err != nil {
		return remote.Fail[model.Task](http.StatusNotFound, "Column not found")
	}
	f.board = next
	ci, ti := next.FindTask(t.ID)
	return remote.Ok(next.Columns[ci].Tasks[ti])
}

func (f *fakeRemote) CreateColumn(ctx context.Context, nc model.NewColumn) remote.Result[model.Column] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Column](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := model.Column{ID: "col-" + strconv.Itoa(f.nextID), Name: nc.Name}
	f.board = mutate.InsertColumn(f.board, c, targetOrLast(nc.Position))
	return remote.Ok(f.board.Columns[f.board.FindColumn(c.ID)])
}

func (f *fakeRemote) DeleteTask(ctx context.Context, taskID string) remote.Result[model.Deleted] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Deleted](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := mutate.RemoveTask(f.board, taskID)
	if err != nil {
		return remote.Fail[model.Deleted](http.StatusNotFound, "Task not found")
	}
	f.board = next
	return remote.Ok(model.Deleted{Success: true})
}

func (f *fakeRemote) DeleteColumn(ctx context.Context, columnID string) remote.Result[model.Deleted] {
	if status, msg, bad := f.admit(); bad {
		return rejected[model.Deleted](status, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := mutate.RemoveColumn(f.board, columnID)
	if err != nil {
		return remote.Fail[model.Deleted](http.StatusNotFound, "Column not found")
	}
	f.board = next
	return remote.Ok(model.Deleted{Success: true})
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func fixtureBoard() model.Board {
	alice := "user-alice"
	return model.Board{
		ProjectID: "proj-a",
		Columns: []model.Column{
			{ID: "col-1", ProjectID: "proj-a", Name: "Todo", Position: 1, Tasks: []model.Task{
				{ID: "t1", ProjectID: "proj-a", ColumnID: "col-1", Position: 1, Title: "one", AssigneeID: &alice},
				{ID: "t2", ProjectID: "proj-a", ColumnID: "col-1", Position: 2, Title: "two"},
				{ID: "t3", ProjectID: "proj-a", ColumnID: "col-1", Position: 3, Title: "three"},
			}},
			{ID: "col-2", ProjectID: "proj-a", Name: "Done", Position: 2, Tasks: []model.Task{
				{ID: "t4", ProjectID: "proj-a", ColumnID: "col-2", Position: 1, Title: "four"},
			}},
		},
	}
}

func newLoadedEngine(t *testing.T, f *fakeRemote) *Engine {
	t.Helper()
	e := New(f)
	t.Cleanup(e.Close)
	if _, err := e.Load(context.Background(), "proj-a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func settle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitSettled(ctx, "proj-a"); err != nil {
		t.Fatalf("WaitSettled: %v", err)
	}
}

func taskIDs(c model.Column) []string {
	out := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, t.ID)
	}
	return out
}

func assertDense(t *testing.T, b model.Board) {
	t.Helper()
	for ci, c := range b.Columns {
		if c.Position != ci+1 {
			t.Fatalf("column %s at index %d has position %d", c.ID, ci, c.Position)
		}
		for ti, task := range c.Tasks {
			if task.Position != ti+1 {
				t.Fatalf("task %s at index %d of %s has position %d", task.ID, ti, c.ID, task.Position)
			}
			if task.ColumnID != c.ID {
				t.Fatalf("task %s in column %s claims column %s", task.ID, c.ID, task.ColumnID)
			}
		}
	}
}

func TestMoveTask_ReordersWithinColumn(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)

	res, err := e.MoveTask(context.Background(), "proj-a", "t3", "col-1", 1)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected committed; got %s (%s)", res.State, res.Message)
	}
	if res.MutationID == "" {
		t.Fatalf("expected mutation id")
	}
	if diff := cmp.Diff([]string{"t3", "t1", "t2"}, taskIDs(res.Board.Columns[0])); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	assertDense(t, res.Board)
	if res.Task == nil || res.Task.ID != "t3" || res.Task.Position != 1 {
		t.Fatalf("expected server task t3 at 1; got %+v", res.Task)
	}

	settle(t, e)
	b, _ := e.Board("proj-a")
	if diff := cmp.Diff([]string{"t3", "t1", "t2"}, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("refetched order differs (-want +got):\n%s", diff)
	}
}

func TestMoveTask_AcrossColumns(t *testing.T) {
	start := fixtureBoard()
	start.Columns[0].Tasks = start.Columns[0].Tasks[:2]
	start.Columns[1].Tasks[0].ID = "t3"
	f := newFakeRemote(start)
	e := newLoadedEngine(t, f)

	res, err := e.MoveTask(context.Background(), "proj-a", "t1", "col-2", 1)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected committed; got %s", res.State)
	}
	if diff := cmp.Diff([]string{"t2"}, taskIDs(res.Board.Columns[0])); diff != "" {
		t.Fatalf("source column (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, taskIDs(res.Board.Columns[1])); diff != "" {
		t.Fatalf("destination column (-want +got):\n%s", diff)
	}
	assertDense(t, res.Board)
	if res.Board.TaskCount() != 3 {
		t.Fatalf("expected task count conserved; got %d", res.Board.TaskCount())
	}
}

func TestUpdateTask_RollbackRestoresSnapshotExactly(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	before, _ := e.Board("proj-a")

	f.failStatus, f.failMsg = http.StatusUnauthorized, "Not authenticated"
	res, err := e.UpdateTask(context.Background(), "proj-a", "t1", intent.Fields{Title: strPtr("renamed")})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if res.State != StateRolledBack {
		t.Fatalf("expected rolled back; got %s", res.State)
	}
	if res.Message != "Not authenticated" || res.Err == nil || res.Err.Message != "Not authenticated" {
		t.Fatalf("expected surfaced error; got message=%q err=%v", res.Message, res.Err)
	}
	if diff := cmp.Diff(before, res.Board); diff != "" {
		t.Fatalf("board not restored (-want +got):\n%s", diff)
	}

	settle(t, e)
	if f.fetchCount(cache.KindColumns) < 2 {
		t.Fatalf("expected reconciling refetch after rollback")
	}
}

func TestRollback_TransportFailureSurfacesGenericMessage(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	before, _ := e.Board("proj-a")

	f.transport = true
	res, err := e.MoveColumn(context.Background(), "proj-a", "col-2", 1)
	if err != nil {
		t.Fatalf("MoveColumn: %v", err)
	}
	if res.State != StateRolledBack {
		t.Fatalf("expected rolled back; got %s", res.State)
	}
	if res.Message != TransportMessage {
		t.Fatalf("expected %q; got %q", TransportMessage, res.Message)
	}
	if strings.Contains(res.Err.Message, "connection refused") {
		t.Fatalf("raw transport error leaked: %q", res.Err.Message)
	}
	if diff := cmp.Diff(before, res.Board); diff != "" {
		t.Fatalf("board not restored (-want +got):\n%s", diff)
	}
}

func TestCreateTask_ClampsPositionAndReconciles(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)

	res, err := e.CreateTask(context.Background(), "proj-a", "col-1", intPtr(99), intent.Fields{Title: strPtr("late")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected committed; got %s (%s)", res.State, res.Message)
	}
	col := res.Board.Columns[0]
	if len(col.Tasks) != 4 {
		t.Fatalf("expected 4 tasks; got %d", len(col.Tasks))
	}
	last := col.Tasks[3]
	if last.Position != 4 || last.Title != "late" || !strings.HasPrefix(last.ID, ProvisionalPrefix) {
		t.Fatalf("expected provisional task at position 4; got %+v", last)
	}
	if res.Task == nil || res.Task.ID != "task-101" {
		t.Fatalf("expected server task; got %+v", res.Task)
	}

	settle(t, e)
	b, _ := e.Board("proj-a")
	if got := b.Columns[0].Tasks[3].ID; got != "task-101" {
		t.Fatalf("expected provisional id replaced after refetch; got %q", got)
	}
	if p, ok := e.Project("proj-a"); !ok || p.TaskCount != 5 {
		t.Fatalf("expected project detail refetched; got %+v ok=%v", p, ok)
	}
	if _, ok := e.AssigneeCounts("proj-a"); !ok {
		t.Fatalf("expected assignee counts refetched")
	}
}

func TestCreateAndDeleteColumn(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	ctx := context.Background()

	res, err := e.CreateColumn(ctx, "proj-a", "Doing", intPtr(2))
	if err != nil {
		t.Fatalf("CreateColumn: %v", err)
	}
	if res.State != StateCommitted || len(res.Board.Columns) != 3 || res.Board.Columns[1].Name != "Doing" {
		t.Fatalf("unexpected create result: %+v", res)
	}
	assertDense(t, res.Board)
	settle(t, e)

	res, err = e.DeleteColumn(ctx, "proj-a", "col-1")
	if err != nil {
		t.Fatalf("DeleteColumn: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected committed; got %s", res.State)
	}
	if len(res.Board.Columns) != 2 || res.Board.Columns[0].Name != "Doing" {
		t.Fatalf("unexpected columns after delete: %+v", res.Board.Columns)
	}
	assertDense(t, res.Board)
}

func TestRenameColumnAndDeleteTask(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	ctx := context.Background()

	res, err := e.RenameColumn(ctx, "proj-a", "col-2", "Shipped")
	if err != nil || res.State != StateCommitted {
		t.Fatalf("RenameColumn: state=%s err=%v", res.State, err)
	}
	if res.Board.Columns[1].Name != "Shipped" {
		t.Fatalf("expected renamed column; got %q", res.Board.Columns[1].Name)
	}

	res, err = e.DeleteTask(ctx, "proj-a", "t2")
	if err != nil || res.State != StateCommitted {
		t.Fatalf("DeleteTask: state=%s err=%v", res.State, err)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, taskIDs(res.Board.Columns[0])); diff != "" {
		t.Fatalf("unexpected tasks (-want +got):\n%s", diff)
	}
	assertDense(t, res.Board)
}

func TestApply_ValidationRejectsBeforeAnyEffect(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	before, _ := e.Board("proj-a")
	fetchesBefore := f.fetchCount(cache.KindColumns)

	res, err := e.UpdateTask(context.Background(), "proj-a", "t1", intent.Fields{Title: strPtr("   ")})
	if !intent.IsValidation(err) {
		t.Fatalf("expected validation error; got %v", err)
	}
	if res.State != StateIdle || res.MutationID != "" {
		t.Fatalf("expected idle result; got %+v", res)
	}
	if f.mutationCalls() != 0 {
		t.Fatalf("expected no remote call; got %d", f.mutationCalls())
	}
	settle(t, e)
	if f.fetchCount(cache.KindColumns) != fetchesBefore {
		t.Fatalf("expected no refetch")
	}
	after, _ := e.Board("proj-a")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("board changed (-want +got):\n%s", diff)
	}
}

func TestApply_UnknownTaskIsLocalNoOpAndRollsBack(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	before, _ := e.Board("proj-a")

	res, err := e.MoveTask(context.Background(), "proj-a", "missing", "col-2", 1)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if f.mutationCalls() != 1 {
		t.Fatalf("expected remote call to proceed")
	}
	if res.State != StateRolledBack || res.Message != "Task not found" {
		t.Fatalf("expected rollback with server message; got %s %q", res.State, res.Message)
	}
	if diff := cmp.Diff(before, res.Board); diff != "" {
		t.Fatalf("board changed (-want +got):\n%s", diff)
	}
}

func TestApply_OverlappingMutationsCompose(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	f.entered = make(chan struct{}, 2)
	f.gate = make(chan struct{})

	ctx := context.Background()
	results := make(chan Result, 2)
	go func() {
		res, _ := e.MoveTask(ctx, "proj-a", "t1", "col-2", 1)
		results <- res
	}()
	<-f.entered
	go func() {
		res, _ := e.UpdateTask(ctx, "proj-a", "t1", intent.Fields{Title: strPtr("moved and renamed")})
		results <- res
	}()
	<-f.entered

	b, _ := e.Board("proj-a")
	ci, ti := b.FindTask("t1")
	if ci != 1 || b.Columns[ci].Tasks[ti].Title != "moved and renamed" {
		t.Fatalf("expected both optimistic changes published; got column %d task %+v", ci, b.Columns[ci].Tasks[ti])
	}

	close(f.gate)
	for i := 0; i < 2; i++ {
		if res := <-results; res.State != StateCommitted {
			t.Fatalf("expected committed; got %s (%s)", res.State, res.Message)
		}
	}
	settle(t, e)
	b, _ = e.Board("proj-a")
	ci, ti = b.FindTask("t1")
	if ci != 1 || b.Columns[ci].Tasks[ti].Title != "moved and renamed" {
		t.Fatalf("expected server state to match; got %+v", b)
	}
}

func holdMutations(f *fakeRemote) {
	f.mu.Lock()
	f.entered = make(chan struct{}, 1)
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

func TestApply_SupersedesInFlightLoad(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	ctx := context.Background()
	want := []string{"t3", "t1", "t2"}

	g := f.holdNextColumnsFetch()
	loaded := make(chan model.Board, 1)
	go func() {
		b, err := e.Load(ctx, "proj-a")
		if err != nil {
			t.Errorf("Load: %v", err)
		}
		loaded <- b
	}()
	g.waitEntered(t)

	holdMutations(f)
	results := make(chan Result, 1)
	go func() {
		res, _ := e.MoveTask(ctx, "proj-a", "t3", "col-1", 1)
		results <- res
	}()
	<-f.entered

	b, _ := e.Board("proj-a")
	if diff := cmp.Diff(want, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("optimistic order (-want +got):\n%s", diff)
	}

	close(g.release)
	select {
	case lb := <-loaded:
		if diff := cmp.Diff(want, taskIDs(lb.Columns[0])); diff != "" {
			t.Fatalf("Load returned the pre-mutation board (-want +got):\n%s", diff)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Load")
	}
	b, _ = e.Board("proj-a")
	if diff := cmp.Diff(want, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("pre-mutation load replaced the optimistic board (-want +got):\n%s", diff)
	}

	close(f.gate)
	if res := <-results; res.State != StateCommitted {
		t.Fatalf("expected committed; got %s (%s)", res.State, res.Message)
	}
	settle(t, e)
	b, _ = e.Board("proj-a")
	if diff := cmp.Diff(want, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("refetched order (-want +got):\n%s", diff)
	}
}

func TestApply_SupersedesOutstandingRefetch(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := newLoadedEngine(t, f)
	ctx := context.Background()
	key := cache.ColumnsKey("proj-a")
	want := []string{"t3", "t1", "t2"}

	g := f.holdNextColumnsFetch()
	e.Invalidate(key)
	g.waitEntered(t)
	if n := e.boards.Refetching(key); n != 1 {
		t.Fatalf("expected one outstanding refetch; got %d", n)
	}

	holdMutations(f)
	results := make(chan Result, 1)
	go func() {
		res, _ := e.MoveTask(ctx, "proj-a", "t3", "col-1", 1)
		results <- res
	}()
	<-f.entered

	if n := e.boards.Refetching(key); n != 0 {
		t.Fatalf("expected apply to drop the outstanding refetch; %d left", n)
	}
	b, _ := e.Board("proj-a")
	if diff := cmp.Diff(want, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("optimistic order (-want +got):\n%s", diff)
	}

	// Close waits for the held refetch to return and be discarded.
	close(g.release)
	e.boards.Close()
	b, _ = e.Board("proj-a")
	if diff := cmp.Diff(want, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("superseded refetch replaced the optimistic board (-want +got):\n%s", diff)
	}

	close(f.gate)
	if res := <-results; res.State != StateCommitted {
		t.Fatalf("expected committed; got %s (%s)", res.State, res.Message)
	}
}

func TestApply_WithoutLoadedBoardStillCallsRemote(t *testing.T) {
	f := newFakeRemote(fixtureBoard())
	e := New(f)
	defer e.Close()

	res, err := e.MoveTask(context.Background(), "proj-a", "t3", "", 1)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected committed; got %s", res.State)
	}
	settle(t, e)
	b, ok := e.Board("proj-a")
	if !ok {
		t.Fatalf("expected refetch to populate board")
	}
	if diff := cmp.Diff([]string{"t3", "t1", "t2"}, taskIDs(b.Columns[0])); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestAffectedKeys(t *testing.T) {
	cases := []struct {
		kind intent.Kind
		want []cache.Kind
	}{
		{intent.KindMoveTask, []cache.Kind{cache.KindColumns, cache.KindAssignees}},
		{intent.KindUpdateTask, []cache.Kind{cache.KindColumns, cache.KindAssignees}},
		{intent.KindCreateTask, []cache.Kind{cache.KindColumns, cache.KindAssignees, cache.KindProject}},
		{intent.KindDeleteTask, []cache.Kind{cache.KindColumns, cache.KindAssignees, cache.KindProject}},
		{intent.KindMoveColumn, []cache.Kind{cache.KindColumns}},
		{intent.KindRenameColumn, []cache.Kind{cache.KindColumns}},
		{intent.KindCreateColumn, []cache.Kind{cache.KindColumns, cache.KindProject}},
		{intent.KindDeleteColumn, []cache.Kind{cache.KindColumns, cache.KindProject}},
	}
	for _, tc := range cases {
		keys := AffectedKeys(tc.kind, "proj-a")
		var got []cache.Kind
		for _, k := range keys {
			if k.ID != "proj-a" {
				t.Fatalf("%s: unexpected key id %q", tc.kind, k.ID)
			}
			got = append(got, k.Kind)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s affected keys (-want +got):\n%s", tc.kind, diff)
		}
	}
}
