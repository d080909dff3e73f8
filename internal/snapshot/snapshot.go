// Package snapshot captures point-in-time copies of a board projection so an
// optimistic mutation can be undone.
package snapshot

import (
	"time"

	"clarity-board/internal/model"
)

// Snapshot is an immutable deep copy of a board. The captured value is never
// handed out directly; Restore returns a fresh copy every time.
type Snapshot struct {
	key     string
	board   model.Board
	present bool
	takenAt time.Time
}

// Capture deep-copies board. present reports whether the key had a published
// projection at all; restoring an absent snapshot yields (zero, false).
func Capture(key string, board model.Board, present bool, now time.Time) Snapshot {
	s := Snapshot{key: key, present: present, takenAt: now}
	if present {
		s.board = board.Clone()
	}
	return s
}

// Restore returns a copy of the captured board.
func (s Snapshot) Restore() (model.Board, bool) {
	if !s.present {
		return model.Board{}, false
	}
	return s.board.Clone(), true
}

func (s Snapshot) Key() string        { return s.key }
func (s Snapshot) TakenAt() time.Time { return s.takenAt }
func (s Snapshot) Present() bool      { return s.present }
