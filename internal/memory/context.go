package memory

import (
	"fmt"
	"strings"
)

const summaryLead = "Summary of earlier conversation: "

// RenderContext formats the summary line, when there is one, followed by the
// last window turns as "role: content", separated by blank lines.
func RenderContext(summary string, history []Turn, window int) string {
	var parts []string
	if s := strings.TrimSpace(summary); s != "" {
		parts = append(parts, summaryLead+s)
	}
	for _, t := range lastN(history, window) {
		parts = append(parts, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(parts, "\n\n")
}

func renderTurns(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}

func lastN(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
