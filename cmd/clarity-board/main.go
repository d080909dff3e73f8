package main

import (
	"os"
	"strings"

	"clarity-board/internal/cli"
)

func isProjectID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "proj-") && len(s) > len("proj-")
}

// rewriteDirectBoardArgs makes `clarity-board <project-id>` work like
// `clarity-board board show <project-id>`. Cobra treats the first non-flag
// token as a subcommand, so argv is rewritten before parsing.
func rewriteDirectBoardArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--server":    true,
		"--dir":       true,
		"--actor":     true,
		"--format":    true,
		"--log-level": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}

		if !isProjectID(a) {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "board", "show")
		out = append(out, argv[i:]...)
		return out
	}
	return argv
}

func main() {
	os.Args = rewriteDirectBoardArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
