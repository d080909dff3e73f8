package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"clarity-board/internal/model"
	"clarity-board/internal/position"
)

const columnSelect = `SELECT id, project_id, name, position, created_at_unixms, updated_at_unixms FROM columns`

func scanColumn(sc interface{ Scan(...any) error }) (model.Column, error) {
	var c model.Column
	var createdMs, updatedMs int64
	if err := sc.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position, &createdMs, &updatedMs); err != nil {
		return model.Column{}, err
	}
	c.CreatedAt = fromMs(createdMs)
	c.UpdatedAt = fromMs(updatedMs)
	c.Tasks = []model.Task{}
	return c, nil
}

func getColumn(ctx context.Context, q queryer, columnID string) (model.Column, error) {
	columnID = strings.TrimSpace(columnID)
	c, err := scanColumn(q.QueryRowContext(ctx, columnSelect+` WHERE id = ?`, columnID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Column{}, NotFoundError{Kind: "column", ID: columnID}
	}
	return c, err
}

// GetColumn returns a column without its tasks.
func (s *Store) GetColumn(ctx context.Context, columnID string) (model.Column, error) {
	return getColumn(ctx, s.db, columnID)
}

// CreateColumn inserts a column at nc.Position (clamped; nil appends).
func (s *Store) CreateColumn(ctx context.Context, nc model.NewColumn) (model.Column, error) {
	name := strings.TrimSpace(nc.Name)
	if name == "" {
		return model.Column{}, invalidf("name is required")
	}
	projectID := strings.TrimSpace(nc.ProjectID)
	if projectID == "" {
		return model.Column{}, invalidf("projectId is required")
	}

	var id string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}
		var err error
		id, err = newUniqueID(ctx, tx, "columns", "col")
		if err != nil {
			return err
		}
		seq, err := loadColumnOrder(ctx, tx, projectID)
		if err != nil {
			return err
		}
		now := s.nowMs()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO columns(id, project_id, name, position, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			id, projectID, name, len(seq)+1, now, now); err != nil {
			return err
		}
		seq = position.InsertAt(seq, model.Column{ID: id}, targetOf(nc.Position))
		return writeColumnOrder(ctx, tx, seq, now)
	})
	if err != nil {
		return model.Column{}, err
	}
	return s.GetColumn(ctx, id)
}

// PatchColumn renames and/or relocates a column among its project's columns.
func (s *Store) PatchColumn(ctx context.Context, columnID string, p model.ColumnPatch) (model.Column, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return model.Column{}, invalidf("name must not be blank")
	}
	columnID = strings.TrimSpace(columnID)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}
		now := s.nowMs()
		if p.Position != nil {
			seq, err := loadColumnOrder(ctx, tx, cur.ProjectID)
			if err != nil {
				return err
			}
			from := position.IndexOf(seq, func(c *model.Column) bool { return c.ID == cur.ID })
			seq = position.Relocate(seq, from, *p.Position)
			if err := writeColumnOrder(ctx, tx, seq, now); err != nil {
				return err
			}
		}
		if p.Name != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE columns SET name = ?, updated_at_unixms = ? WHERE id = ?`,
				strings.TrimSpace(*p.Name), now, cur.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Column{}, err
	}
	return s.GetColumn(ctx, columnID)
}

// DeleteColumn removes a column and its tasks, closing the gap it leaves.
// The removed column is returned.
func (s *Store) DeleteColumn(ctx context.Context, columnID string) (model.Column, error) {
	var removed model.Column
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE column_id = ?`, removed.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, removed.ID); err != nil {
			return err
		}
		seq, err := loadColumnOrder(ctx, tx, removed.ProjectID)
		if err != nil {
			return err
		}
		return writeColumnOrder(ctx, tx, position.Renumber(seq), s.nowMs())
	})
	return removed, err
}

func targetOf(p *int) int {
	if p == nil {
		return position.Last
	}
	return *p
}
