// Package realtime carries change notifications from the board server to
// connected engines. An event names only the table and project that changed;
// receivers refetch instead of patching.
package realtime

import (
	"strings"
	"sync"

	"clarity-board/internal/cache"
)

const (
	TableTasks   = "tasks"
	TableColumns = "columns"
)

// Event is the push payload: {"table": "tasks"|"columns", "projectId": "..."}.
type Event struct {
	Table     string `json:"table"`
	ProjectID string `json:"projectId"`
}

// Keys lists the cache keys an event makes stale.
func (e Event) Keys() []cache.Key {
	keys := []cache.Key{cache.ColumnsKey(e.ProjectID)}
	if e.Table == TableTasks {
		keys = append(keys, cache.AssigneesKey(e.ProjectID))
	}
	return keys
}

func (e Event) valid() bool {
	return strings.TrimSpace(e.ProjectID) != "" && (e.Table == TableTasks || e.Table == TableColumns)
}

// Hub fans events out to per-project subscribers. Slow subscribers miss
// events rather than block publishers; any event triggers a full refetch, so
// a dropped duplicate loses nothing.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Event]struct{}{}}
}

func (h *Hub) Subscribe(projectID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	h.mu.Lock()
	set := h.subs[projectID]
	if set == nil {
		set = map[chan Event]struct{}{}
		h.subs[projectID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if set := h.subs[projectID]; set != nil {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, projectID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	if !ev.valid() {
		return
	}
	h.mu.Lock()
	for ch := range h.subs[ev.ProjectID] {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// Notify adapts Publish to the store write-notification callback.
func (h *Hub) Notify(table, projectID string) {
	h.Publish(Event{Table: table, ProjectID: projectID})
}

// Subscribers reports how many listeners follow projectID.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[projectID])
}
