package mutate

import (
	"sort"
	"strings"

	"clarity-board/internal/model"
	"clarity-board/internal/position"
)

// All functions in this file take a board by value and return a new board.
// The input is never modified; the result shares nothing with it.
//
// When the referenced task or column is missing, the returned board is an
// unchanged copy and the error is a NotFoundError. Callers applying optimistic
// updates treat that as a no-op: the server remains authoritative.

// MoveTask moves a task to destPosition of destColumnID. An empty destColumnID
// keeps the task in its current column.
func MoveTask(b model.Board, taskID, destColumnID string, destPosition int) (model.Board, error) {
	out := b.Clone()
	taskID = strings.TrimSpace(taskID)
	destColumnID = strings.TrimSpace(destColumnID)

	srcIdx, taskIdx := out.FindTask(taskID)
	if srcIdx < 0 {
		return out, NotFoundError{Kind: "task", ID: taskID}
	}
	dstIdx := srcIdx
	if destColumnID != "" {
		dstIdx = out.FindColumn(destColumnID)
		if dstIdx < 0 {
			return out, NotFoundError{Kind: "column", ID: destColumnID}
		}
	}

	src := &out.Columns[srcIdx]
	if dstIdx == srcIdx {
		src.Tasks = position.Relocate(src.Tasks, taskIdx+1, destPosition)
		return out, nil
	}

	rest, moved, _ := position.RemoveAt(src.Tasks, taskIdx+1)
	src.Tasks = rest

	dst := &out.Columns[dstIdx]
	moved.ColumnID = dst.ID
	dst.Tasks = position.InsertAt(dst.Tasks, moved, destPosition)
	return out, nil
}

// MoveColumn relocates a column among the board's columns.
func MoveColumn(b model.Board, columnID string, destPosition int) (model.Board, error) {
	out := b.Clone()
	idx := out.FindColumn(strings.TrimSpace(columnID))
	if idx < 0 {
		return out, NotFoundError{Kind: "column", ID: columnID}
	}
	out.Columns = position.Relocate(out.Columns, idx+1, destPosition)
	return out, nil
}

// PatchTask applies a task patch. A patch that moves the task goes through
// MoveTask first; scalar fields are then written onto the task in place within
// the copy.
func PatchTask(b model.Board, taskID string, p model.TaskPatch) (model.Board, error) {
	out := b
	if p.Moves() {
		dest := ""
		if p.ColumnID != nil {
			dest = *p.ColumnID
		}
		target := position.Last
		if p.Position != nil {
			target = *p.Position
		} else if p.ColumnID != nil {
			// Staying in the same column without a position keeps the current slot.
			if ci, ti := b.FindTask(taskID); ci >= 0 && b.Columns[ci].ID == dest {
				target = ti + 1
			}
		}
		var err error
		out, err = MoveTask(out, taskID, dest, target)
		if err != nil {
			return out, err
		}
	} else {
		out = out.Clone()
	}
	if !p.HasFields() {
		return out, nil
	}

	ci, ti := out.FindTask(taskID)
	if ci < 0 {
		return out, NotFoundError{Kind: "task", ID: taskID}
	}
	t := &out.Columns[ci].Tasks[ti]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssigneeID != nil {
		if a := strings.TrimSpace(*p.AssigneeID); a == "" {
			t.AssigneeID = nil
		} else {
			t.AssigneeID = &a
		}
	}
	return out, nil
}

// PatchColumn renames and/or relocates a column.
func PatchColumn(b model.Board, columnID string, p model.ColumnPatch) (model.Board, error) {
	out := b.Clone()
	if p.Position != nil {
		var err error
		out, err = MoveColumn(out, columnID, *p.Position)
		if err != nil {
			return out, err
		}
	}
	if p.Name == nil {
		return out, nil
	}
	idx := out.FindColumn(strings.TrimSpace(columnID))
	if idx < 0 {
		return out, NotFoundError{Kind: "column", ID: columnID}
	}
	out.Columns[idx].Name = *p.Name
	return out, nil
}

// InsertTask places t into its ColumnID at targetPosition (clamped).
func InsertTask(b model.Board, t model.Task, targetPosition int) (model.Board, error) {
	out := b.Clone()
	idx := out.FindColumn(t.ColumnID)
	if idx < 0 {
		return out, NotFoundError{Kind: "column", ID: t.ColumnID}
	}
	col := &out.Columns[idx]
	t.ProjectID = col.ProjectID
	col.Tasks = position.InsertAt(col.Tasks, t.Clone(), targetPosition)
	return out, nil
}

func RemoveTask(b model.Board, taskID string) (model.Board, error) {
	out := b.Clone()
	ci, ti := out.FindTask(strings.TrimSpace(taskID))
	if ci < 0 {
		return out, NotFoundError{Kind: "task", ID: taskID}
	}
	out.Columns[ci].Tasks, _, _ = position.RemoveAt(out.Columns[ci].Tasks, ti+1)
	return out, nil
}

// InsertColumn places c among the board's columns at targetPosition (clamped).
func InsertColumn(b model.Board, c model.Column, targetPosition int) model.Board {
	out := b.Clone()
	c = c.Clone()
	if c.Tasks == nil {
		c.Tasks = []model.Task{}
	}
	c.ProjectID = out.ProjectID
	out.Columns = position.InsertAt(out.Columns, c, targetPosition)
	return out
}

// RemoveColumn drops a column together with its tasks.
func RemoveColumn(b model.Board, columnID string) (model.Board, error) {
	out := b.Clone()
	idx := out.FindColumn(strings.TrimSpace(columnID))
	if idx < 0 {
		return out, NotFoundError{Kind: "column", ID: columnID}
	}
	out.Columns, _, _ = position.RemoveAt(out.Columns, idx+1)
	return out, nil
}

// Normalize sorts columns and tasks by position and makes positions dense.
// Boards arriving from a remote are passed through it before entering a cache.
func Normalize(b model.Board) model.Board {
	out := b.Clone()
	out.Columns = position.Normalize(out.Columns)
	for i := range out.Columns {
		if out.Columns[i].Tasks == nil {
			out.Columns[i].Tasks = []model.Task{}
			continue
		}
		out.Columns[i].Tasks = position.Normalize(out.Columns[i].Tasks)
	}
	return out
}

// AssigneeCounts derives the per-assignee task counts of a board, ordered by
// descending count then assignee id. Unassigned tasks count under "".
func AssigneeCounts(b model.Board) []model.AssigneeCount {
	byID := map[string]int{}
	for _, c := range b.Columns {
		for _, t := range c.Tasks {
			id := ""
			if t.AssigneeID != nil {
				id = strings.TrimSpace(*t.AssigneeID)
			}
			byID[id]++
		}
	}
	out := make([]model.AssigneeCount, 0, len(byID))
	for id, n := range byID {
		out = append(out, model.AssigneeCount{AssigneeID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].AssigneeID < out[j].AssigneeID
	})
	return out
}
