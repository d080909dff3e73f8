package model

import "time"

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ColumnCount int       `json:"columnCount"`
	TaskCount   int       `json:"taskCount"`
}

// Column is an ordered container of tasks within a project.
// Tasks are kept sorted so that Tasks[i].Position == i+1.
type Column struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Tasks     []Task    `json:"tasks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ColumnID    string    `json:"columnId"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AssigneeID  *string   `json:"assigneeId,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Task) GetPosition() int    { return t.Position }
func (t *Task) SetPosition(p int)   { t.Position = p }
func (c *Column) GetPosition() int  { return c.Position }
func (c *Column) SetPosition(p int) { c.Position = p }

// Clone returns a copy of t that shares no pointers with t.
func (t Task) Clone() Task {
	out := t
	if t.AssigneeID != nil {
		a := *t.AssigneeID
		out.AssigneeID = &a
	}
	return out
}

// Clone returns a deep copy of c, including its tasks.
func (c Column) Clone() Column {
	out := c
	if c.Tasks != nil {
		out.Tasks = make([]Task, len(c.Tasks))
		for i := range c.Tasks {
			out.Tasks[i] = c.Tasks[i].Clone()
		}
	}
	return out
}

// Board is the in-memory projection of one project's columns and their tasks.
//
// A Board value is treated as immutable once it has been published to a cache:
// every mutation works on a Clone and the result replaces the published value.
type Board struct {
	ProjectID string   `json:"projectId"`
	Columns   []Column `json:"columns"`
}

func (b Board) Clone() Board {
	out := Board{ProjectID: b.ProjectID}
	if b.Columns != nil {
		out.Columns = make([]Column, len(b.Columns))
		for i := range b.Columns {
			out.Columns[i] = b.Columns[i].Clone()
		}
	}
	return out
}

// FindColumn returns the index of the column with the given id, or -1.
func (b Board) FindColumn(id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

// FindTask returns the column and task indexes for id, or (-1, -1).
func (b Board) FindTask(id string) (col int, idx int) {
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			if b.Columns[ci].Tasks[ti].ID == id {
				return ci, ti
			}
		}
	}
	return -1, -1
}

func (b Board) TaskCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

// AssigneeCount is the number of tasks on a board assigned to one actor.
// Unassigned tasks are reported under an empty AssigneeID.
type AssigneeCount struct {
	AssigneeID string `json:"assigneeId"`
	Count      int    `json:"count"`
}
