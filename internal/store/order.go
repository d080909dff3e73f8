package store

import (
	"context"

	"clarity-board/internal/model"
)

// Sibling sequences are read into position-only values, rearranged with the
// position package, and written back in full. Ties in stored positions break
// by creation time and then id, so a damaged ordering is repaired the same way
// on every write.

func loadTaskOrder(ctx context.Context, q queryer, columnID string) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, position FROM tasks
		WHERE column_id = ?
		ORDER BY position, created_at_unixms, id`, columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Position); err != nil {
			return nil, err
		}
		t.ColumnID = columnID
		out = append(out, t)
	}
	return out, rows.Err()
}

func writeTaskOrder(ctx context.Context, q queryer, columnID string, seq []model.Task, nowMs int64) error {
	for i, t := range seq {
		if _, err := q.ExecContext(ctx, `
			UPDATE tasks SET column_id = ?, position = ?, updated_at_unixms = ?
			WHERE id = ? AND (column_id <> ? OR position <> ?)`,
			columnID, i+1, nowMs, t.ID, columnID, i+1); err != nil {
			return err
		}
	}
	return nil
}

func loadColumnOrder(ctx context.Context, q queryer, projectID string) ([]model.Column, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, position FROM columns
		WHERE project_id = ?
		ORDER BY position, created_at_unixms, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Column{}
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.ID, &c.Position); err != nil {
			return nil, err
		}
		c.ProjectID = projectID
		out = append(out, c)
	}
	return out, rows.Err()
}

func writeColumnOrder(ctx context.Context, q queryer, seq []model.Column, nowMs int64) error {
	for i, c := range seq {
		if _, err := q.ExecContext(ctx, `
			UPDATE columns SET position = ?, updated_at_unixms = ?
			WHERE id = ? AND position <> ?`,
			i+1, nowMs, c.ID, i+1); err != nil {
			return err
		}
	}
	return nil
}
