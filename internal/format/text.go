package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"clarity-board/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// Texter is implemented by values that know their own text rendering.
type Texter interface {
	Text() string
}

// DefaultWidth is the board width used when the terminal size is unknown.
const DefaultWidth = 100

var (
	colorMuted  lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "240", Dark: "243"}
	colorAccent lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "27", Dark: "62"}
	colorBorder lipgloss.TerminalColor = lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
)

func WriteText(w io.Writer, v any) error {
	var s string
	switch t := v.(type) {
	case Texter:
		s = t.Text()
	case model.Board:
		s = RenderBoard(t, DefaultWidth)
	case model.Project:
		s = RenderProjects([]model.Project{t})
	case []model.Project:
		s = RenderProjects(t)
	case []model.AssigneeCount:
		s = RenderAssigneeCounts(t)
	default:
		return WriteJSON(w, v, true)
	}
	_, err := io.WriteString(w, strings.TrimRight(s, "\n")+"\n")
	return err
}

// RenderBoard lays the columns out side by side, each listing its tasks in
// position order.
func RenderBoard(b model.Board, width int) string {
	n := len(b.Columns)
	if n == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("(no columns)")
	}
	if width <= 0 {
		width = DefaultWidth
	}

	gap := 1
	colW := (width - gap*(n-1)) / n
	if colW < 16 {
		colW = 16
	}
	// Border plus padding on each side.
	innerW := colW - 4
	if innerW < 1 {
		innerW = 1
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(colW - 2)
	header := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	muted := lipgloss.NewStyle().Foreground(colorMuted)

	rendered := make([]string, 0, n*2)
	for i, c := range b.Columns {
		lines := []string{
			header.Render(truncate(fmt.Sprintf("%d. %s (%d)", c.Position, c.Name, len(c.Tasks)), innerW)),
		}
		if len(c.Tasks) == 0 {
			lines = append(lines, muted.Render("empty"))
		}
		for _, t := range c.Tasks {
			lines = append(lines, truncate(fmt.Sprintf("%d %s", t.Position, t.Title), innerW))
			meta := t.ID
			if t.AssigneeID != nil && *t.AssigneeID != "" {
				meta += " @" + *t.AssigneeID
			}
			lines = append(lines, muted.Render(truncate("  "+meta, innerW)))
		}
		if i > 0 {
			rendered = append(rendered, strings.Repeat(" ", gap))
		}
		rendered = append(rendered, box.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func RenderProjects(ps []model.Project) string {
	if len(ps) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("(no projects)")
	}
	rows := make([][]string, 0, len(ps)+1)
	rows = append(rows, []string{"ID", "NAME", "COLUMNS", "TASKS"})
	for _, p := range ps {
		rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(p.ColumnCount), strconv.Itoa(p.TaskCount)})
	}
	return renderTable(rows)
}

func RenderAssigneeCounts(counts []model.AssigneeCount) string {
	if len(counts) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("(no tasks)")
	}
	rows := make([][]string, 0, len(counts)+1)
	rows = append(rows, []string{"ASSIGNEE", "TASKS"})
	for _, c := range counts {
		who := c.AssigneeID
		if who == "" {
			who = "(unassigned)"
		}
		rows = append(rows, []string{who, strconv.Itoa(c.Count)})
	}
	return renderTable(rows)
}

// renderTable left-aligns cells; the first row is the header.
func renderTable(rows [][]string) string {
	widths := map[int]int{}
	for _, r := range rows {
		for i, cell := range r {
			if w := xansi.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	head := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	for ri, r := range rows {
		cells := make([]string, len(r))
		for i, cell := range r {
			cells[i] = cell + strings.Repeat(" ", widths[i]-xansi.StringWidth(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if ri == 0 {
			line = head.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func truncate(s string, w int) string {
	if xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Truncate(s, w, "…")
}
