// Package position keeps the integer Position field of an ordered sequence dense.
//
// Every function returns a fresh slice in which element i carries Position i+1.
// Input slices are never modified. Elements are copied by value, so callers that
// hold elements with nested slices (columns holding tasks) must clone those first
// if the result will be mutated further.
package position

import (
	"math"
	"sort"
)

// Last is an insertion target that always clamps to the end of a sequence.
const Last = math.MaxInt32

// Positioned is satisfied by pointers to sequence elements that carry a 1-based position.
type Positioned[T any] interface {
	*T
	GetPosition() int
	SetPosition(int)
}

// Clamp bounds a 1-based insertion target for a sequence of length n to [1, n+1].
func Clamp(target, n int) int {
	if target < 1 {
		return 1
	}
	if target > n+1 {
		return n + 1
	}
	return target
}

// Renumber returns a copy of seq with positions reassigned to 1..len(seq) in slice order.
func Renumber[T any, P Positioned[T]](seq []T) []T {
	out := make([]T, len(seq))
	copy(out, seq)
	for i := range out {
		P(&out[i]).SetPosition(i + 1)
	}
	return out
}

// Normalize orders seq by its current positions (stable for ties) and renumbers it.
// It is used at trust boundaries where positions may be sparse or duplicated.
func Normalize[T any, P Positioned[T]](seq []T) []T {
	out := make([]T, len(seq))
	copy(out, seq)
	sort.SliceStable(out, func(i, j int) bool {
		return P(&out[i]).GetPosition() < P(&out[j]).GetPosition()
	})
	for i := range out {
		P(&out[i]).SetPosition(i + 1)
	}
	return out
}

// IsDense reports whether element i of seq carries position i+1 for every i.
func IsDense[T any, P Positioned[T]](seq []T) bool {
	for i := range seq {
		if P(&seq[i]).GetPosition() != i+1 {
			return false
		}
	}
	return true
}

// RemoveAt excises the element at 1-based index and renumbers the remainder.
// ok is false (and the renumbered input is returned) when index is out of range.
func RemoveAt[T any, P Positioned[T]](seq []T, index int) (out []T, removed T, ok bool) {
	if index < 1 || index > len(seq) {
		return Renumber[T, P](seq), removed, false
	}
	removed = seq[index-1]
	out = make([]T, 0, len(seq)-1)
	out = append(out, seq[:index-1]...)
	out = append(out, seq[index:]...)
	for i := range out {
		P(&out[i]).SetPosition(i + 1)
	}
	return out, removed, true
}

// InsertAt inserts el so that it lands at targetPosition, clamped to [1, len(seq)+1].
// Out-of-range targets are clamped rather than rejected since drop targets may be
// computed from stale coordinates.
func InsertAt[T any, P Positioned[T]](seq []T, el T, targetPosition int) []T {
	at := Clamp(targetPosition, len(seq)) - 1
	out := make([]T, 0, len(seq)+1)
	out = append(out, seq[:at]...)
	out = append(out, el)
	out = append(out, seq[at:]...)
	for i := range out {
		P(&out[i]).SetPosition(i + 1)
	}
	return out
}

// Relocate moves the element at 1-based position from to position to within the same
// sequence. The target is interpreted against the sequence with the moving element
// already removed, so Relocate(seq, k, k) is a no-op.
func Relocate[T any, P Positioned[T]](seq []T, from, to int) []T {
	rest, moved, ok := RemoveAt[T, P](seq, from)
	if !ok {
		return rest
	}
	return InsertAt[T, P](rest, moved, to)
}

// IndexOf returns the 1-based position of the first element matching pred, or 0.
func IndexOf[T any](seq []T, pred func(*T) bool) int {
	for i := range seq {
		if pred(&seq[i]) {
			return i + 1
		}
	}
	return 0
}
