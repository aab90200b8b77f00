package tui

import "github.com/charmbracelet/lipgloss"

// Palette. accentColor is the viper green used for titles and selection.
var (
	accentColor = lipgloss.Color("42")
	mutedColor  = lipgloss.Color("241")
	textColor   = lipgloss.Color("252")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	findingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle    = lipgloss.NewStyle().Foreground(mutedColor)

	selectedStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	listItemStyle = lipgloss.NewStyle().Foreground(textColor)

	reportTextStyle = lipgloss.NewStyle().Foreground(textColor)
	statusBarStyle  = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)
