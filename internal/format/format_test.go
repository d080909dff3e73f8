package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"clarity-board/internal/model"

	xansi "github.com/charmbracelet/x/ansi"
)

func strPtr(s string) *string { return &s }

func sampleBoard() model.Board {
	return model.Board{ProjectID: "proj-a", Columns: []model.Column{
		{ID: "col-1", Name: "To Do", Position: 1, Tasks: []model.Task{
			{ID: "t1", ColumnID: "col-1", Position: 1, Title: "Write launch post", AssigneeID: strPtr("alice")},
			{ID: "t2", ColumnID: "col-1", Position: 2, Title: "Book venue"},
		}},
		{ID: "col-2", Name: "Done", Position: 2, Tasks: []model.Task{}},
	}}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"state": "committed"}, "json", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "{\"state\":\"committed\"}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteEDN_KeywordsAndInstants(t *testing.T) {
	task := model.Task{
		ID:        "t1",
		ProjectID: "proj-a",
		Position:  3,
		Title:     "Ship",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	var buf bytes.Buffer
	if err := WriteEDN(&buf, task, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`:project-id "proj-a"`,
		`:position 3`,
		`:created-at #inst "2026-01-02T03:04:05Z"`,
		`:title "Ship"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, "assignee") {
		t.Fatalf("omitted fields should not appear: %s", out)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"ids": []string{"a", "b"}, "ok": true}, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := "{\n  :ids [\n    \"a\"\n    \"b\"\n  ]\n  :ok true\n}\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderBoard(t *testing.T) {
	out := xansi.Strip(RenderBoard(sampleBoard(), 80))
	for _, want := range []string{"1. To Do (2)", "1 Write launch post", "t1 @alice", "2 Book venue", "2. Done (0)", "empty"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if i, j := strings.Index(out, "Write launch post"), strings.Index(out, "Book venue"); i < 0 || j < i {
		t.Fatalf("tasks out of order:\n%s", out)
	}
}

func TestRenderBoard_TruncatesLongTitles(t *testing.T) {
	b := sampleBoard()
	b.Columns[0].Tasks[0].Title = strings.Repeat("x", 200)
	out := xansi.Strip(RenderBoard(b, 60))
	if !strings.Contains(out, "…") {
		t.Fatalf("expected truncation marker:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if w := xansi.StringWidth(line); w > 60 {
			t.Fatalf("line wider than 60 (%d): %q", w, line)
		}
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	counts := []model.AssigneeCount{{AssigneeID: "alice", Count: 2}, {AssigneeID: "", Count: 1}}
	if err := WriteText(&buf, counts); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := xansi.Strip(buf.String())
	if !strings.Contains(out, "alice") || !strings.Contains(out, "(unassigned)") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteText(&buf, []model.Project{{ID: "proj-a", Name: "Launch", ColumnCount: 3, TaskCount: 7}}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(xansi.Strip(buf.String())), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "proj-a  Launch") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteText(&buf, struct {
		N int `json:"n"`
	}{N: 1}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "\"n\": 1") {
		t.Fatalf("expected JSON fallback; got %q", buf.String())
	}
}
