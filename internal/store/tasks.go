package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"clarity-board/internal/model"
	"clarity-board/internal/position"
)

const taskSelect = `SELECT id, project_id, column_id, position, title, description, assignee_id, created_by, created_at_unixms, updated_at_unixms FROM tasks`

func scanTask(sc interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	var assignee sql.NullString
	var createdMs, updatedMs int64
	if err := sc.Scan(&t.ID, &t.ProjectID, &t.ColumnID, &t.Position, &t.Title, &t.Description, &assignee, &t.CreatedBy, &createdMs, &updatedMs); err != nil {
		return model.Task{}, err
	}
	if assignee.Valid {
		a := assignee.String
		t.AssigneeID = &a
	}
	t.CreatedAt = fromMs(createdMs)
	t.UpdatedAt = fromMs(updatedMs)
	return t, nil
}

func getTask(ctx context.Context, q queryer, taskID string) (model.Task, error) {
	taskID = strings.TrimSpace(taskID)
	t, err := scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, NotFoundError{Kind: "task", ID: taskID}
	}
	return t, err
}

func (s *Store) GetTask(ctx context.Context, taskID string) (model.Task, error) {
	return getTask(ctx, s.db, taskID)
}

func nullableAssignee(p *string) any {
	if p == nil {
		return nil
	}
	a := strings.TrimSpace(*p)
	if a == "" {
		return nil
	}
	return a
}

// CreateTask inserts a task into nt.ColumnID at nt.Position (clamped; nil
// appends). The project is taken from the column.
func (s *Store) CreateTask(ctx context.Context, actorID string, nt model.NewTask) (model.Task, error) {
	title := strings.TrimSpace(nt.Title)
	if title == "" {
		return model.Task{}, invalidf("title is required")
	}
	if strings.TrimSpace(nt.ColumnID) == "" {
		return model.Task{}, invalidf("columnId is required")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return model.Task{}, invalidf("actor is required")
	}

	var id string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		col, err := getColumn(ctx, tx, nt.ColumnID)
		if err != nil {
			return err
		}
		if pid := strings.TrimSpace(nt.ProjectID); pid != "" && pid != col.ProjectID {
			return invalidf("column %s does not belong to project %s", col.ID, pid)
		}
		id, err = newUniqueID(ctx, tx, "tasks", "task")
		if err != nil {
			return err
		}
		seq, err := loadTaskOrder(ctx, tx, col.ID)
		if err != nil {
			return err
		}
		now := s.nowMs()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks(id, project_id, column_id, position, title, description, assignee_id, created_by, created_at_unixms, updated_at_unixms)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, col.ProjectID, col.ID, len(seq)+1, title, nt.Description, nullableAssignee(nt.AssigneeID), actorID, now, now); err != nil {
			return err
		}
		seq = position.InsertAt(seq, model.Task{ID: id}, targetOf(nt.Position))
		return writeTaskOrder(ctx, tx, col.ID, seq, now)
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// PatchTask edits a task. Moves are applied first: removal from the source
// column, then insertion into the destination at the clamped position. A
// column change without a position appends; a position without a column
// relocates within the current column.
func (s *Store) PatchTask(ctx context.Context, taskID string, p model.TaskPatch) (model.Task, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return model.Task{}, invalidf("title must not be blank")
	}
	taskID = strings.TrimSpace(taskID)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		now := s.nowMs()
		if p.Moves() {
			if err := s.moveTask(ctx, tx, cur, p, now); err != nil {
				return err
			}
		}
		if p.Title != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET title = ?, updated_at_unixms = ? WHERE id = ?`,
				strings.TrimSpace(*p.Title), now, cur.ID); err != nil {
				return err
			}
		}
		if p.Description != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET description = ?, updated_at_unixms = ? WHERE id = ?`,
				*p.Description, now, cur.ID); err != nil {
				return err
			}
		}
		if p.AssigneeID != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assignee_id = ?, updated_at_unixms = ? WHERE id = ?`,
				nullableAssignee(p.AssigneeID), now, cur.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, taskID)
}

func (s *Store) moveTask(ctx context.Context, tx *sql.Tx, cur model.Task, p model.TaskPatch, now int64) error {
	destID := cur.ColumnID
	if p.ColumnID != nil && strings.TrimSpace(*p.ColumnID) != "" {
		dest, err := getColumn(ctx, tx, *p.ColumnID)
		if err != nil {
			return err
		}
		if dest.ProjectID != cur.ProjectID {
			return invalidf("column %s does not belong to project %s", dest.ID, cur.ProjectID)
		}
		destID = dest.ID
	}

	src, err := loadTaskOrder(ctx, tx, cur.ColumnID)
	if err != nil {
		return err
	}
	from := position.IndexOf(src, func(t *model.Task) bool { return t.ID == cur.ID })

	if destID == cur.ColumnID {
		target := from
		if p.Position != nil {
			target = *p.Position
		}
		return writeTaskOrder(ctx, tx, destID, position.Relocate(src, from, target), now)
	}

	rest, moved, _ := position.RemoveAt(src, from)
	if err := writeTaskOrder(ctx, tx, cur.ColumnID, rest, now); err != nil {
		return err
	}
	dst, err := loadTaskOrder(ctx, tx, destID)
	if err != nil {
		return err
	}
	return writeTaskOrder(ctx, tx, destID, position.InsertAt(dst, moved, targetOf(p.Position)), now)
}

// DeleteTask removes a task and closes the gap in its column. The removed
// task is returned.
func (s *Store) DeleteTask(ctx context.Context, taskID string) (model.Task, error) {
	var removed model.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, removed.ID); err != nil {
			return err
		}
		seq, err := loadTaskOrder(ctx, tx, removed.ColumnID)
		if err != nil {
			return err
		}
		return writeTaskOrder(ctx, tx, removed.ColumnID, position.Renumber(seq), s.nowMs())
	})
	return removed, err
}
