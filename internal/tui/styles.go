package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorDim       = lipgloss.Color("240") // gray
	colorWarn      = lipgloss.Color("11")  // bright yellow
	colorError     = lipgloss.Color("9")   // bright red
	colorBorder    = lipgloss.Color("238") // dark gray

	// Section panel
	styleSectionTitle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleSectionBody = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	styleSectionEmpty = lipgloss.NewStyle().
				Foreground(colorDim)

	// Panels
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleStatusDone = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	styleStatusRestart = lipgloss.NewStyle().
				Foreground(colorWarn).
				Bold(true)

	styleStatusError = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)
)
