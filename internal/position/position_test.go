package position

import (
	"testing"
)

type el struct {
	id  string
	pos int
}

func (e *el) GetPosition() int  { return e.pos }
func (e *el) SetPosition(p int) { e.pos = p }

func seqOf(ids ...string) []el {
	out := make([]el, len(ids))
	for i, id := range ids {
		out[i] = el{id: id, pos: i + 1}
	}
	return out
}

func ids(seq []el) []string {
	out := make([]string, len(seq))
	for i := range seq {
		out[i] = seq[i].id
	}
	return out
}

func assertOrder(t *testing.T, seq []el, want ...string) {
	t.Helper()
	got := ids(seq)
	if len(got) != len(want) {
		t.Fatalf("expected %v; got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v; got %v", want, got)
		}
	}
	if !IsDense(seq) {
		t.Fatalf("expected dense positions; got %+v", seq)
	}
}

func TestRelocate_MovesLastToFirst(t *testing.T) {
	seq := seqOf("t1", "t2", "t3")
	out := Relocate(seq, 3, 1)
	assertOrder(t, out, "t3", "t1", "t2")

	// Input is untouched.
	assertOrder(t, seq, "t1", "t2", "t3")
}

func TestRelocate_ToOwnPositionIsNoop(t *testing.T) {
	seq := seqOf("a", "b", "c", "d", "e")
	for p := 1; p <= len(seq); p++ {
		out := Relocate(seq, p, p)
		assertOrder(t, out, "a", "b", "c", "d", "e")
	}
}

func TestRelocate_DownUsesPostRemovalTarget(t *testing.T) {
	seq := seqOf("a", "b", "c", "d", "e")
	out := Relocate(seq, 2, 4)
	assertOrder(t, out, "a", "c", "d", "b", "e")
}

func TestRelocate_OutOfRangeSourceRenumbersOnly(t *testing.T) {
	seq := []el{{id: "a", pos: 4}, {id: "b", pos: 9}}
	out := Relocate(seq, 7, 1)
	assertOrder(t, out, "a", "b")
}

func TestInsertAt_ClampsTarget(t *testing.T) {
	seq := seqOf("t1", "t2", "t3")

	out := InsertAt(seq, el{id: "x"}, 99)
	assertOrder(t, out, "t1", "t2", "t3", "x")
	if out[3].pos != 4 {
		t.Fatalf("expected clamped position 4; got %d", out[3].pos)
	}

	out = InsertAt(seq, el{id: "x"}, -5)
	assertOrder(t, out, "x", "t1", "t2", "t3")

	out = InsertAt(nil, el{id: "x"}, 3)
	assertOrder(t, out, "x")
}

func TestRemoveAt(t *testing.T) {
	seq := seqOf("a", "b", "c")

	out, removed, ok := RemoveAt(seq, 2)
	if !ok || removed.id != "b" {
		t.Fatalf("expected to remove b; got ok=%v removed=%+v", ok, removed)
	}
	assertOrder(t, out, "a", "c")

	out, _, ok = RemoveAt(seq, 0)
	if ok {
		t.Fatalf("expected ok=false for index 0")
	}
	assertOrder(t, out, "a", "b", "c")

	out, _, ok = RemoveAt(seqOf("only"), 1)
	if !ok || len(out) != 0 {
		t.Fatalf("expected empty result; got ok=%v out=%v", ok, out)
	}
}

func TestDensityInvariant_AllOperations(t *testing.T) {
	for n := 0; n <= 6; n++ {
		seq := make([]el, n)
		for i := range seq {
			seq[i] = el{id: string(rune('a' + i)), pos: i + 1}
		}
		for from := 0; from <= n+1; from++ {
			for to := -1; to <= n+2; to++ {
				if out := Relocate(seq, from, to); !IsDense(out) || len(out) != n {
					t.Fatalf("n=%d relocate %d->%d: not dense: %+v", n, from, to, out)
				}
				if out := InsertAt(seq, el{id: "z"}, to); !IsDense(out) || len(out) != n+1 {
					t.Fatalf("n=%d insert at %d: not dense: %+v", n, to, out)
				}
			}
			if out, _, _ := RemoveAt(seq, from); !IsDense(out) {
				t.Fatalf("n=%d remove %d: not dense: %+v", n, from, out)
			}
		}
	}
}

func TestNormalize_SortsSparseAndDuplicatePositions(t *testing.T) {
	seq := []el{{id: "c", pos: 30}, {id: "a", pos: 2}, {id: "b", pos: 2}}
	out := Normalize(seq)
	assertOrder(t, out, "a", "b", "c")
}

func TestIndexOf(t *testing.T) {
	seq := seqOf("a", "b", "c")
	if got := IndexOf(seq, func(e *el) bool { return e.id == "c" }); got != 3 {
		t.Fatalf("expected 3; got %d", got)
	}
	if got := IndexOf(seq, func(e *el) bool { return e.id == "zz" }); got != 0 {
		t.Fatalf("expected 0; got %d", got)
	}
}
