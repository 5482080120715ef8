package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm shows a warning box and asks a yes/no question on in.
// Only "y" or "yes" (any case) confirms.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	for _, w := range warnings {
		lines = append(lines, ResultValueStyle.Render("   • "+w))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, BoxStyle(WarningColor, width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render("Continue? [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	_, _ = fmt.Fprintln(out, StepPendingStyle.Render("  Cancelled."))
	return false
}
