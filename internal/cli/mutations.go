package cli

import (
	"errors"
	"fmt"
	"strings"

	"clarity-board/internal/format"
	"clarity-board/internal/intent"
	"clarity-board/internal/model"
	"clarity-board/internal/pipeline"

	"github.com/spf13/cobra"
)

// mutationOutput is printed by every board-changing command.
type mutationOutput struct {
	Data       any            `json:"data,omitempty"`
	State      pipeline.State `json:"state"`
	Kind       intent.Kind    `json:"kind"`
	MutationID string         `json:"mutationId"`
	Error      string         `json:"error,omitempty"`
	Board      *model.Board   `json:"board,omitempty"`
}

func (o mutationOutput) Text() string {
	var b strings.Builder
	switch o.State {
	case pipeline.StateCommitted:
		fmt.Fprintf(&b, "%s committed (%s)\n", o.Kind, o.MutationID)
	default:
		fmt.Fprintf(&b, "%s %s: %s\n", o.Kind, strings.ReplaceAll(string(o.State), "_", " "), o.Error)
	}
	if o.Board != nil {
		b.WriteString(format.RenderBoard(*o.Board, format.DefaultWidth))
		b.WriteByte('\n')
	}
	return b.String()
}

// runMutation loads the project's board, applies the change through the
// engine, waits for the reconciling refetch and prints the outcome.
func runMutation(cmd *cobra.Command, app *App, projectID string, apply func(*pipeline.Engine) (pipeline.Result, error)) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return writeErr(cmd, errors.New("--project is required"))
	}
	eng, closeEngine, err := app.engine(cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeEngine()

	ctx := cmd.Context()
	if _, err := eng.Load(ctx, projectID); err != nil {
		return writeErr(cmd, err)
	}

	res, err := apply(eng)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := eng.WaitSettled(ctx, projectID); err != nil {
		return writeErr(cmd, err)
	}

	out := mutationOutput{
		State:      res.State,
		Kind:       res.Intent.Kind,
		MutationID: res.MutationID,
		Error:      res.Message,
	}
	switch {
	case res.Task != nil:
		out.Data = res.Task
	case res.Column != nil:
		out.Data = res.Column
	case res.Committed():
		out.Data = model.Deleted{Success: true}
	}
	if b, ok := eng.Board(projectID); ok {
		out.Board = &b
	}

	if err := writeOut(cmd, app, out); err != nil {
		return writeErr(cmd, err)
	}
	if !res.Committed() {
		return writeErr(cmd, fmt.Errorf("%w: %s", errRolledBack, res.Message))
	}
	return nil
}

// optionalPosition returns nil for 0, meaning "append".
func optionalPosition(p int) *int {
	if p <= 0 {
		return nil
	}
	return &p
}

// changedString returns a pointer to the flag's value only when it was set.
func changedString(cmd *cobra.Command, name string, v string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}
