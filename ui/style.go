package ui

import "github.com/charmbracelet/lipgloss"

var (
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boldStyle = lipgloss.NewStyle().Bold(true)
)

// Good renders text in the up-to-date color.
func Good(text string) string { return goodStyle.Render(text) }

// Warn renders text in the update-available color.
func Warn(text string) string { return warnStyle.Render(text) }

// Bad renders text in the failure color.
func Bad(text string) string { return badStyle.Render(text) }

// Dim renders de-emphasized text, used for unrecognized mods.
func Dim(text string) string { return dimStyle.Render(text) }

// Bold renders emphasized text for summary headers.
func Bold(text string) string { return boldStyle.Render(text) }
