package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	tierStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")).Bold(true)

	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	runStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))
	retryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8E53"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// taskStateStyle maps a task state label to its display style.
func taskStateStyle(state string) lipgloss.Style {
	switch state {
	case "done":
		return doneStyle
	case "in_progress":
		return runStyle
	case "retrying":
		return retryStyle
	case "failed":
		return failStyle
	default:
		return pendingStyle
	}
}

// finalStyle maps a terminal handle state to its display style.
func finalStyle(state string) lipgloss.Style {
	switch state {
	case "done":
		return doneStyle
	case "escalated":
		return retryStyle
	default:
		return failStyle
	}
}
