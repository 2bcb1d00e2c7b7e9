// Package ui renders a running invocation in the terminal.
// Uses Bubbletea for the interactive loader dialog and a plain
// printer for non-interactive output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds lipgloss styles shared by the loader and the printer.
type Styles struct {
	// Text styles
	Title  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style

	// Status indicators
	StatusOK      lipgloss.Style
	StatusError   lipgloss.Style
	StatusRunning lipgloss.Style

	// Loader chrome
	Spinner  lipgloss.Style
	HelpText lipgloss.Style
}

// newStyles creates the default style set.
func newStyles() *Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#666", Dark: "#888"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	green := lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#3fb950"}
	red := lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#f85149"}
	blue := lipgloss.AdaptiveColor{Light: "#0366d6", Dark: "#58a6ff"}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),

		Value: lipgloss.NewStyle().
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(subtle),

		Accent: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),

		StatusOK: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),

		StatusError: lipgloss.NewStyle().
			Foreground(red).
			Bold(true),

		StatusRunning: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(highlight),

		HelpText: lipgloss.NewStyle().
			Foreground(subtle),
	}
}
