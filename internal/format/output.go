package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	FormatJSON = "json"
	FormatEDN  = "edn"
	FormatText = "text"
)

// Formats lists the accepted --format values.
func Formats() []string { return []string{FormatJSON, FormatEDN, FormatText} }

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - edn
// - text (boards, project lists and assignee counts; anything else falls back to indented JSON)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return WriteJSON(w, v, pretty)
	case FormatEDN:
		return WriteEDN(w, v, pretty)
	case FormatText:
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
