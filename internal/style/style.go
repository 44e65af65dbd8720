// Package style holds the terminal styles shared by perfkit's reports.
package style

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	Title = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	Label = lipgloss.NewStyle().Foreground(colorGray)
	OK    = lipgloss.NewStyle().Foreground(colorGreen)
	Warn  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	Crit  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	Rule  = lipgloss.NewStyle().Foreground(colorGray)
)
