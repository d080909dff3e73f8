package pipeline

import (
	"context"
	"fmt"
	"time"

	"clarity-board/internal/intent"
	"clarity-board/internal/model"
	"clarity-board/internal/mutate"
	"clarity-board/internal/position"
)

// ProvisionalPrefix marks IDs assigned to optimistically created tasks and
// columns. The server's ID replaces them once the board is refetched.
const ProvisionalPrefix = "tmp-"

func provisionalID(mutationID string) string { return ProvisionalPrefix + mutationID }

func (e *Engine) MoveTask(ctx context.Context, projectID, taskID, targetColumnID string, targetPosition int) (Result, error) {
	return e.Apply(ctx, intent.MoveTask(projectID, taskID, targetColumnID, targetPosition))
}

func (e *Engine) UpdateTask(ctx context.Context, projectID, taskID string, f intent.Fields) (Result, error) {
	return e.Apply(ctx, intent.UpdateTask(projectID, taskID, f))
}

// CreateTask adds a task to columnID. A nil targetPosition appends it.
func (e *Engine) CreateTask(ctx context.Context, projectID, columnID string, targetPosition *int, f intent.Fields) (Result, error) {
	return e.Apply(ctx, intent.CreateTask(projectID, columnID, targetPosition, f))
}

func (e *Engine) DeleteTask(ctx context.Context, projectID, taskID string) (Result, error) {
	return e.Apply(ctx, intent.DeleteTask(projectID, taskID))
}

func (e *Engine) MoveColumn(ctx context.Context, projectID, columnID string, targetPosition int) (Result, error) {
	return e.Apply(ctx, intent.MoveColumn(projectID, columnID, targetPosition))
}

func (e *Engine) RenameColumn(ctx context.Context, projectID, columnID, name string) (Result, error) {
	return e.Apply(ctx, intent.RenameColumn(projectID, columnID, name))
}

// CreateColumn adds a column to the project. A nil targetPosition appends it.
func (e *Engine) CreateColumn(ctx context.Context, projectID, name string, targetPosition *int) (Result, error) {
	return e.Apply(ctx, intent.CreateColumn(projectID, name, targetPosition))
}

func (e *Engine) DeleteColumn(ctx context.Context, projectID, columnID string) (Result, error) {
	return e.Apply(ctx, intent.DeleteColumn(projectID, columnID))
}

// optimistic computes the board the server is expected to produce for in.
func optimistic(b model.Board, in intent.Intent, mutationID string, now time.Time) (model.Board, error) {
	switch in.Kind {
	case intent.KindMoveTask:
		return mutate.MoveTask(b, in.TaskID, in.TargetColumnID, targetOrLast(in.TargetPosition))
	case intent.KindUpdateTask:
		return mutate.PatchTask(b, in.TaskID, in.TaskPatch())
	case intent.KindCreateTask:
		nt := in.NewTask()
		t := model.Task{
			ID:          provisionalID(mutationID),
			ProjectID:   nt.ProjectID,
			ColumnID:    nt.ColumnID,
			Title:       nt.Title,
			Description: nt.Description,
			AssigneeID:  nt.AssigneeID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return mutate.InsertTask(b, t, targetOrLast(nt.Position))
	case intent.KindDeleteTask:
		return mutate.RemoveTask(b, in.TaskID)
	case intent.KindMoveColumn:
		return mutate.MoveColumn(b, in.ColumnID, targetOrLast(in.TargetPosition))
	case intent.KindRenameColumn:
		return mutate.PatchColumn(b, in.ColumnID, in.ColumnPatch())
	case intent.KindCreateColumn:
		nc := in.NewColumn()
		c := model.Column{
			ID:        provisionalID(mutationID),
			ProjectID: nc.ProjectID,
			Name:      nc.Name,
			Tasks:     []model.Task{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return mutate.InsertColumn(b, c, targetOrLast(nc.Position)), nil
	case intent.KindDeleteColumn:
		return mutate.RemoveColumn(b, in.ColumnID)
	default:
		return b.Clone(), fmt.Errorf("unsupported intent kind %q", in.Kind)
	}
}

func targetOrLast(p *int) int {
	if p == nil {
		return position.Last
	}
	return *p
}
