package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // borders, dividers
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#626262")
	TextColor    = lipgloss.Color("#FFFFFF")
)

// Layout limits
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

// Reading range in mg/dL
const (
	LowReading  = 70
	HighReading = 180
)

// Markers
const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Header
var (
	HeaderTitleStyle      = fg(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = fg(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(TextColor)
)

// Progress
var (
	ProgressLabelStyle = fg(TextColor).Bold(true).PaddingLeft(2)
	StepCompleteStyle  = fg(SuccessColor)
	StepRunningStyle   = fg(WarningColor)
	StepPendingStyle   = fg(MutedColor)
	StepNoteStyle      = fg(MutedColor).Italic(true)
)

// Results
var (
	SuccessTitleStyle         = fg(SuccessColor).Bold(true)
	WarningTitleStyle         = fg(WarningColor).Bold(true)
	ErrorTitleStyle           = fg(ErrorColor).Bold(true)
	ErrorMessageStyle         = fg(ErrorColor)
	ResultKeyStyle            = fg(MutedColor).Width(15)
	ResultValueStyle          = fg(TextColor)
	TroubleshootingTitleStyle = fg(MutedColor).Bold(true)
	TroubleshootingItemStyle  = fg(MutedColor)
)

// Readings
var (
	ReadingLowStyle    = fg(ErrorColor).Bold(true)
	ReadingHighStyle   = fg(WarningColor).Bold(true)
	ReadingNormalStyle = fg(SuccessColor)
)

// GetTerminalWidth returns the stdout width clamped to the layout limits
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return clampWidth(width)
}

// HeaderBorderStyle returns the rounded border around command headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// BoxStyle returns the double border used by result and confirm boxes
func BoxStyle(color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}

// TroubleshootingBoxStyle returns the inner box listing hints
func TroubleshootingBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width).
		Padding(0, 1).
		MarginLeft(3)
}

// RenderHorizontalDivider draws a line of char width times
func RenderHorizontalDivider(width int, char string) string {
	return fg(PrimaryColor).Render(strings.Repeat(char, width))
}

// RenderReading styles a glucose value by range
func RenderReading(glucose int) string {
	text := fmt.Sprintf("%3d mg/dL", glucose)
	switch {
	case glucose < LowReading:
		return ReadingLowStyle.Render(text)
	case glucose > HighReading:
		return ReadingHighStyle.Render(text)
	default:
		return ReadingNormalStyle.Render(text)
	}
}
