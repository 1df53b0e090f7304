package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"weightgen/internal/diff"
	"weightgen/internal/generate"
)

var (
	success = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#e53935")
	info    = lipgloss.Color("#2196F3")
	muted   = lipgloss.Color("#6b7785")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(danger)
	infoStyle    = lipgloss.NewStyle().Foreground(info)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)

	labelStyle = lipgloss.NewStyle().Width(10).Foreground(muted)
)

func statusStyle(s generate.Status) lipgloss.Style {
	switch s {
	case generate.StatusWritten, generate.StatusRemoved:
		return successStyle
	case generate.StatusStale:
		return warningStyle
	case generate.StatusFailed:
		return errorStyle
	default:
		return mutedStyle
	}
}

// renderResult is one line per input. Skipped and unchanged files are only
// shown in verbose mode.
func renderResult(r generate.Result) string {
	status := statusStyle(r.Status).Width(10).Render(r.Status.String())
	switch r.Status {
	case generate.StatusFailed:
		return fmt.Sprintf("%s %s\n%s", status, r.Path, errorStyle.Render("  "+r.Err.Error()))
	case generate.StatusSkipped:
		return fmt.Sprintf("%s %s", status, r.Path)
	default:
		return fmt.Sprintf("%s %s %s", status, r.Output, mutedStyle.Render(fmt.Sprintf("(%d functions)", r.Funcs)))
	}
}

func renderSummary(s generate.Summary) string {
	parts := []string{
		successStyle.Render(fmt.Sprintf("%d written", s.Written)),
		mutedStyle.Render(fmt.Sprintf("%d unchanged", s.Unchanged)),
	}
	if s.Removed > 0 {
		parts = append(parts, successStyle.Render(fmt.Sprintf("%d removed", s.Removed)))
	}
	if s.Stale > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%d stale", s.Stale)))
	}
	if s.Failed > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	return fmt.Sprintf("%s %s, %d weighted functions",
		titleStyle.Render("weightgen:"), strings.Join(parts, ", "), s.Funcs)
}

// renderDiff colours a unified diff line by line.
func renderDiff(d *diff.FileDiff) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(d.Unified(), "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(titleStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(infoStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(successStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(errorStyle.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func field(label, value string) string {
	return labelStyle.Render(label) + " " + value
}
