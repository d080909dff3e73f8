package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"clarity-board/internal/model"
)

// DefaultColumns are created with every new project.
var DefaultColumns = []string{"To Do", "In Progress", "Done"}

const projectSelect = `
	SELECT p.id, p.name, p.created_by, p.created_at_unixms,
		(SELECT COUNT(*) FROM columns c WHERE c.project_id = p.id),
		(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id)
	FROM projects p`

func scanProject(sc interface{ Scan(...any) error }) (model.Project, error) {
	var p model.Project
	var createdMs int64
	if err := sc.Scan(&p.ID, &p.Name, &p.CreatedBy, &createdMs, &p.ColumnCount, &p.TaskCount); err != nil {
		return model.Project{}, err
	}
	p.CreatedAt = fromMs(createdMs)
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+` ORDER BY p.created_at_unixms, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	return getProject(ctx, s.db, projectID)
}

func getProject(ctx context.Context, q queryer, projectID string) (model.Project, error) {
	projectID = strings.TrimSpace(projectID)
	p, err := scanProject(q.QueryRowContext(ctx, projectSelect+` WHERE p.id = ?`, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, NotFoundError{Kind: "project", ID: projectID}
	}
	return p, err
}

// CreateProject stores a new project owned by actorID, seeded with
// DefaultColumns.
func (s *Store) CreateProject(ctx context.Context, actorID string, np model.NewProject) (model.Project, error) {
	name := strings.TrimSpace(np.Name)
	if name == "" {
		return model.Project{}, invalidf("name is required")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return model.Project{}, invalidf("actor is required")
	}

	var id string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = newUniqueID(ctx, tx, "projects", "proj")
		if err != nil {
			return err
		}
		now := s.nowMs()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projects(id, name, created_by, created_at_unixms) VALUES(?, ?, ?, ?)`,
			id, name, actorID, now); err != nil {
			return err
		}
		for i, colName := range DefaultColumns {
			colID, err := newUniqueID(ctx, tx, "columns", "col")
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO columns(id, project_id, name, position, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
				colID, id, colName, i+1, now, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// Columns returns the project's columns with their tasks, both ordered by
// position.
func (s *Store) Columns(ctx context.Context, projectID string) ([]model.Column, error) {
	projectID = strings.TrimSpace(projectID)
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, columnSelect+` WHERE project_id = ? ORDER BY position, created_at_unixms, id`, projectID)
	if err != nil {
		return nil, err
	}
	cols := []model.Column{}
	byID := map[string]int{}
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		byID[c.ID] = len(cols)
		cols = append(cols, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	trows, err := s.db.QueryContext(ctx, taskSelect+` WHERE project_id = ? ORDER BY column_id, position, created_at_unixms, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		t, err := scanTask(trows)
		if err != nil {
			return nil, err
		}
		if i, ok := byID[t.ColumnID]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols, trows.Err()
}

// AssigneeCounts returns task counts per assignee, most loaded first.
// Unassigned tasks count under the empty assignee id.
func (s *Store) AssigneeCounts(ctx context.Context, projectID string) ([]model.AssigneeCount, error) {
	projectID = strings.TrimSpace(projectID)
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(assignee_id, '') AS a, COUNT(*) AS n
		FROM tasks WHERE project_id = ?
		GROUP BY a ORDER BY n DESC, a ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AssigneeCount{}
	for rows.Next() {
		var ac model.AssigneeCount
		if err := rows.Scan(&ac.AssigneeID, &ac.Count); err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}
