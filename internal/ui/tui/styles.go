package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorInhale  = lipgloss.Color("#61AFEF")
	ColorHold    = lipgloss.Color("#C678DD")
	ColorExhale  = lipgloss.Color("#98C379")
	ColorMuted   = lipgloss.Color("#636B78")
	ColorError   = lipgloss.Color("#E06C75")
	ColorPrimary = lipgloss.Color("#ABB2BF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	PatternStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingTop(1)

	CountdownStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			PaddingTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)
)
