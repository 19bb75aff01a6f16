package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	StyleHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	StyleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StyleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleSpinner  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleTag      = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("62")).Padding(0, 1)
	StyleDisabled = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	StyleActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

func renderHelp(s string) string {
	return StyleHelp.Render(s)
}

// headerLine places left-aligned text and a right-aligned refreshed timestamp on the same line.
// width is the full terminal width; padding (4) is subtracted for the content area.
func headerLine(left string, width int, t time.Time) string {
	right := "Refreshed: " + formatRefreshTime(t)
	contentWidth := width - 4 // account for outer Padding(1,2)
	leftLen := lipgloss.Width(left)
	rightLen := len(right)
	gap := contentWidth - leftLen - rightLen
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + StyleDim.Render(right)
}

func formatRefreshTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04:05")
}

// ConsoleSpinner is the braille spinner shared by the TUI screens and the
// CLI progress output.
var ConsoleSpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    time.Second / 10,
}
