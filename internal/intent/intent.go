// Package intent describes requested board changes independently of how they
// are applied locally or encoded for the remote service.
//
// An Intent never carries slice indexes: targets are the 1-based positions the
// caller determined. A nil TargetPosition means "append at the end".
package intent

import (
	"strings"

	"clarity-board/internal/model"
)

type Kind string

const (
	KindMoveTask     Kind = "task.move"
	KindUpdateTask   Kind = "task.update"
	KindCreateTask   Kind = "task.create"
	KindDeleteTask   Kind = "task.delete"
	KindMoveColumn   Kind = "column.move"
	KindRenameColumn Kind = "column.rename"
	KindCreateColumn Kind = "column.create"
	KindDeleteColumn Kind = "column.delete"
)

// Kinds lists every supported intent kind.
var Kinds = []Kind{
	KindMoveTask, KindUpdateTask, KindCreateTask, KindDeleteTask,
	KindMoveColumn, KindRenameColumn, KindCreateColumn, KindDeleteColumn,
}

// Table reports the remote table an intent kind writes to ("tasks" or "columns").
func (k Kind) Table() string {
	if strings.HasPrefix(string(k), "column.") {
		return "columns"
	}
	return "tasks"
}

// Fields carries scalar edits. Nil fields are untouched.
type Fields struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
	Name        *string `json:"name,omitempty"`
}

type Intent struct {
	Kind           Kind    `json:"kind" validate:"required,oneof=task.move task.update task.create task.delete column.move column.rename column.create column.delete"`
	ProjectID      string  `json:"projectId" validate:"required,max=128"`
	TaskID         string  `json:"taskId,omitempty" validate:"max=128"`
	ColumnID       string  `json:"columnId,omitempty" validate:"max=128"`
	TargetColumnID string  `json:"targetColumnId,omitempty" validate:"max=128"`
	TargetPosition *int    `json:"targetPosition,omitempty"`
	Fields         *Fields `json:"fields,omitempty"`
}

func MoveTask(projectID, taskID, targetColumnID string, targetPosition int) Intent {
	return Intent{Kind: KindMoveTask, ProjectID: projectID, TaskID: taskID, TargetColumnID: targetColumnID, TargetPosition: &targetPosition}
}

func UpdateTask(projectID, taskID string, f Fields) Intent {
	return Intent{Kind: KindUpdateTask, ProjectID: projectID, TaskID: taskID, Fields: &f}
}

func CreateTask(projectID, columnID string, targetPosition *int, f Fields) Intent {
	return Intent{Kind: KindCreateTask, ProjectID: projectID, TargetColumnID: columnID, TargetPosition: targetPosition, Fields: &f}
}

func DeleteTask(projectID, taskID string) Intent {
	return Intent{Kind: KindDeleteTask, ProjectID: projectID, TaskID: taskID}
}

func MoveColumn(projectID, columnID string, targetPosition int) Intent {
	return Intent{Kind: KindMoveColumn, ProjectID: projectID, ColumnID: columnID, TargetPosition: &targetPosition}
}

func RenameColumn(projectID, columnID, name string) Intent {
	return Intent{Kind: KindRenameColumn, ProjectID: projectID, ColumnID: columnID, Fields: &Fields{Name: &name}}
}

func CreateColumn(projectID, name string, targetPosition *int) Intent {
	return Intent{Kind: KindCreateColumn, ProjectID: projectID, TargetPosition: targetPosition, Fields: &Fields{Name: &name}}
}

func DeleteColumn(projectID, columnID string) Intent {
	return Intent{Kind: KindDeleteColumn, ProjectID: projectID, ColumnID: columnID}
}

// TaskPatch translates a task intent into the remote PATCH body.
func (in Intent) TaskPatch() model.TaskPatch {
	var p model.TaskPatch
	switch in.Kind {
	case KindMoveTask:
		if in.TargetColumnID != "" {
			col := in.TargetColumnID
			p.ColumnID = &col
		}
		p.Position = copyInt(in.TargetPosition)
	case KindUpdateTask:
		if in.Fields != nil {
			p.Title = copyStr(in.Fields.Title)
			p.Description = copyStr(in.Fields.Description)
			p.AssigneeID = copyStr(in.Fields.AssigneeID)
		}
	}
	return p
}

// ColumnPatch translates a column intent into the remote PATCH body.
func (in Intent) ColumnPatch() model.ColumnPatch {
	var p model.ColumnPatch
	switch in.Kind {
	case KindMoveColumn:
		p.Position = copyInt(in.TargetPosition)
	case KindRenameColumn:
		if in.Fields != nil {
			p.Name = copyStr(in.Fields.Name)
		}
	}
	return p
}

func (in Intent) NewTask() model.NewTask {
	nt := model.NewTask{
		ProjectID: in.ProjectID,
		ColumnID:  in.TargetColumnID,
		Position:  copyInt(in.TargetPosition),
	}
	if in.Fields != nil {
		nt.Title = deref(in.Fields.Title)
		nt.Description = deref(in.Fields.Description)
		nt.AssigneeID = copyStr(in.Fields.AssigneeID)
	}
	return nt
}

func (in Intent) NewColumn() model.NewColumn {
	nc := model.NewColumn{ProjectID: in.ProjectID, Position: copyInt(in.TargetPosition)}
	if in.Fields != nil {
		nc.Name = deref(in.Fields.Name)
	}
	return nc
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
