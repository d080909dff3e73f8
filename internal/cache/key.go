package cache

import "strings"

type Kind string

const (
	KindColumns   Kind = "columns-for-project"
	KindProject   Kind = "project-detail"
	KindAssignees Kind = "assignee-counts"
)

// Key identifies one cached projection.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	kind := strings.TrimSpace(string(k.Kind))
	id := strings.TrimSpace(k.ID)
	if id == "" {
		return kind
	}
	return kind + ":" + id
}

func ColumnsKey(projectID string) Key   { return Key{Kind: KindColumns, ID: projectID} }
func ProjectKey(projectID string) Key   { return Key{Kind: KindProject, ID: projectID} }
func AssigneesKey(projectID string) Key { return Key{Kind: KindAssignees, ID: projectID} }
