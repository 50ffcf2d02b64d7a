package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#00377b")).
			Padding(0, 1)

	editHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00c8ff")).
			Padding(0, 1)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#00377b", Dark: "#00c8ff"}).
				Render

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56FF4E")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5f5f")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7a7a7a"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c8ff"))
)
var docStyle = lipgloss.NewStyle().Margin(1, 2)
