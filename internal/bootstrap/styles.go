package bootstrap

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorError   = "#FF5F5F"
	colorWarn    = "#FFB86C"
	colorInfo    = "#8A8A8A"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary))

	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorSuccess))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorError))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWarn))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorInfo))
)
