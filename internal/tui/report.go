package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/loom/internal/compiler"
	"github.com/kingrea/loom/manifest"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// FormatReport renders a validation report for the terminal. Errors come
// first so the blocking findings are visible even on short terminals.
func FormatReport(report manifest.Report) string {
	var b strings.Builder
	for _, msg := range report.Errors {
		fmt.Fprintf(&b, "%s %s\n", errorStyle.Render("error:"), msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(&b, "%s %s\n", warningStyle.Render("warning:"), msg)
	}
	if report.IsValid() {
		fmt.Fprintf(&b, "%s %d error(s), %d warning(s)\n",
			okStyle.Render("valid:"), len(report.Errors), len(report.Warnings))
	} else {
		fmt.Fprintf(&b, "%s %d error(s), %d warning(s)\n",
			errorStyle.Render("invalid:"), len(report.Errors), len(report.Warnings))
	}
	return b.String()
}

// FormatRun renders the per-artifact lines and summary count for one run.
func FormatRun(report *compiler.RunReport) string {
	var b strings.Builder
	written := 0
	for _, artifact := range report.Artifacts {
		if artifact.Err != nil {
			fmt.Fprintf(&b, "%s %s %s: %v\n",
				errorStyle.Render("failed"), string(artifact.Kind), artifact.Name, artifact.Err)
			continue
		}
		written++
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("written"), artifact.Path)
	}
	failed := len(report.Artifacts) - written
	summary := fmt.Sprintf("%d artifact(s) written, %d failed", written, failed)
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(summary))
	return b.String()
}
