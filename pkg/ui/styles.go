package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Winners and healthy connections share the secondary color,
// timeouts and empty rounds the warning color.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#10B981")
	ColorDanger    = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorBorder    = lipgloss.Color("#374151")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(ColorPrimary).Padding(0, 2)
	HelpStyle   = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	MutedValue  = lipgloss.NewStyle().Foreground(ColorMuted)

	// startup steps and connections
	StatusConnected    = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	StatusDisconnected = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
	StatusReconnecting = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	// round feed
	WinnerStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(ColorDanger)
	PausedStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
)
