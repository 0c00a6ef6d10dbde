package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Box drawing characters
const (
	TopLeft     = "╭"
	TopRight    = "╮"
	BottomLeft  = "╰"
	BottomRight = "╯"
	Horizontal  = "─"
	Vertical    = "│"
	LeftT       = "├"
	RightT      = "┤"
	TopT        = "┬"
	BottomT     = "┴"
	Cross       = "┼"
)

// Color palette
const (
	ColorBorder  = "240"
	ColorHeader  = "252"
	ColorID      = "214"
	ColorName    = "81"
	ColorValue   = "252"
	ColorRunning = "82"
	ColorStopped = "245"
	ColorPending = "214"
	ColorFailed  = "196"
	ColorMuted   = "240"
	ColorHint    = "245"
	ColorAWS     = "208"
	ColorGCP     = "33"
)

// Shared styles
var (
	BorderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder))
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorHeader))
	IDStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorID))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorName))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorValue))
	RunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRunning))
	StoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorStopped))
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPending))
	FailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorFailed))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	HintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHint))
	AWSStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAWS))
	GCPStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGCP))
)

// padRight pads a string to the specified display width using runewidth
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "...")
	}
	return s + strings.Repeat(" ", width-sw)
}

// stateIndicator returns the glyph and style for an instance state
func stateIndicator(state string) (string, lipgloss.Style) {
	switch state {
	case "running", "done":
		return "●", RunningStyle
	case "pending", "stopping":
		return "◐", PendingStyle
	case "failed":
		return "✗", FailedStyle
	default:
		return "○", StoppedStyle
	}
}

// ProviderStyle returns the accent style for a provider name
func ProviderStyle(p string) lipgloss.Style {
	switch p {
	case "aws":
		return AWSStyle
	case "gcp":
		return GCPStyle
	default:
		return MutedStyle
	}
}

func formatOptional(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
