package main

import (
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	procStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Faint(true)
	defaultStyle = lipgloss.NewStyle().Italic(true).Faint(true)
	arrowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// styleListing colors each line of a dispatch listing according to its role.
func styleListing(listing string) string {
	lines := strings.Split(strings.TrimRight(listing, "\n"), "\n")
	for i, line := range lines {
		lines[i] = styleLine(line)
	}
	return strings.Join(lines, "\n")
}

func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "procedure "):
		return procStyle.Render(line)
	case strings.HasPrefix(line, "  switch:"), strings.HasPrefix(line, "  node-first:"):
		return infoStyle.Render(line)
	case strings.HasPrefix(line, "  default "):
		return defaultStyle.Render(line)
	case !strings.HasPrefix(line, " "):
		label, rest, ok := strings.Cut(line, ":")
		if !ok {
			return line
		}
		return labelStyle.Render(label+":") + rest
	}
	pattern, target, ok := strings.Cut(line, " -> ")
	if !ok {
		return line
	}
	return pattern + arrowStyle.Render(" -> ") + target
}
