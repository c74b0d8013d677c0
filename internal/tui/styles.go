package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the view.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style
	Error    lipgloss.Style
	Prompt   lipgloss.Style
	Section  lipgloss.Style
	Muted    lipgloss.Style
	Index    lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#93c5fd")).
			Padding(0, 1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")),
		Button: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#2563eb")).
			Padding(0, 2),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e5e7eb")).
			Background(lipgloss.Color("#9ca3af")).
			Padding(0, 2),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")),
		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#92400e")),
		Section: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ca3af")),
		Index: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3b82f6")),
	}
}
