package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/projecthub"
)

// Status colors
var (
	colorOnline   = lipgloss.Color("#95E1A3") // Green
	colorOffline  = lipgloss.Color("#FF6B6B") // Red
	colorPending  = lipgloss.Color("#FFE66D") // Yellow
	colorDisabled = lipgloss.Color("#6C757D") // Gray
	colorPrimary  = lipgloss.Color("#4ECDC4")
	colorMuted    = lipgloss.Color("#888888")
	colorBorder   = lipgloss.Color("#333333")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	nameStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	ruleStyle   = lipgloss.NewStyle().Foreground(colorBorder)
)

func statusStyle(s projecthub.Status) lipgloss.Style {
	switch s {
	case projecthub.StatusOnline:
		return lipgloss.NewStyle().Foreground(colorOnline)
	case projecthub.StatusOffline:
		return lipgloss.NewStyle().Foreground(colorOffline)
	case projecthub.StatusPending:
		return lipgloss.NewStyle().Foreground(colorPending)
	default:
		return lipgloss.NewStyle().Foreground(colorDisabled)
	}
}

// statusIcon returns a one-character marker for s.
func statusIcon(s projecthub.Status) string {
	switch s {
	case projecthub.StatusOnline:
		return "●"
	case projecthub.StatusOffline:
		return "✗"
	case projecthub.StatusPending:
		return "○"
	default:
		return "-"
	}
}

// renderStatus renders s with its icon, padded to a fixed width.
func renderStatus(s projecthub.Status) string {
	return statusStyle(s).Width(10).Render(statusIcon(s) + " " + string(s))
}
