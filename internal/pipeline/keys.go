package pipeline

import (
	"clarity-board/internal/cache"
	"clarity-board/internal/intent"
)

// affected lists, per intent kind, the projections a settled mutation makes
// stale. The board projection is always first.
var affected = map[intent.Kind][]cache.Kind{
	intent.KindMoveTask:     {cache.KindColumns, cache.KindAssignees},
	intent.KindUpdateTask:   {cache.KindColumns, cache.KindAssignees},
	intent.KindCreateTask:   {cache.KindColumns, cache.KindAssignees, cache.KindProject},
	intent.KindDeleteTask:   {cache.KindColumns, cache.KindAssignees, cache.KindProject},
	intent.KindMoveColumn:   {cache.KindColumns},
	intent.KindRenameColumn: {cache.KindColumns},
	intent.KindCreateColumn: {cache.KindColumns, cache.KindProject},
	intent.KindDeleteColumn: {cache.KindColumns, cache.KindProject},
}

// AffectedKeys returns the cache keys refetched after a mutation of kind k on
// projectID settles.
func AffectedKeys(k intent.Kind, projectID string) []cache.Key {
	kinds, ok := affected[k]
	if !ok {
		kinds = []cache.Kind{cache.KindColumns}
	}
	out := make([]cache.Key, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, cache.Key{Kind: kind, ID: projectID})
	}
	return out
}
