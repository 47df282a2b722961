package report

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	exposed  lipgloss.Style
	clear    lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	day      lipgloss.Style
	duration lipgloss.Style
	bracket  lipgloss.Style
	barFill  lipgloss.Style
	barEmpty lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		exposed:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		clear:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		day:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		duration: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		bracket:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:  lipgloss.NewStyle().Foreground(lipgloss.Color("209")),
		barEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
