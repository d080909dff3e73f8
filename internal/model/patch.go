package model

// TaskPatch carries the fields of a task update. Nil fields are left unchanged.
// A non-nil AssigneeID pointing at "" clears the assignment.
type TaskPatch struct {
	ColumnID    *string `json:"columnId,omitempty"`
	Position    *int    `json:"position,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

// Moves reports whether the patch relocates the task.
func (p TaskPatch) Moves() bool { return p.ColumnID != nil || p.Position != nil }

// HasFields reports whether the patch edits any scalar field.
func (p TaskPatch) HasFields() bool {
	return p.Title != nil || p.Description != nil || p.AssigneeID != nil
}

type ColumnPatch struct {
	Position *int    `json:"position,omitempty"`
	Name     *string `json:"name,omitempty"`
}

type NewTask struct {
	ProjectID   string  `json:"projectId"`
	ColumnID    string  `json:"columnId"`
	Position    *int    `json:"position,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

type NewColumn struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Position  *int   `json:"position,omitempty"`
}

type NewProject struct {
	Name string `json:"name"`
}

// Deleted is the acknowledgement returned by delete calls.
type Deleted struct {
	Success bool `json:"success"`
}
