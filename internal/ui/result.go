package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/session"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is a bordered outcome box
type Result struct {
	Type            ResultType
	Title           string
	Details         map[string]string // rendered sorted by key
	Error           error             // failure only
	Troubleshooting []string          // failure only
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SessionResult builds the outcome box for a finished (or abandoned) read
func SessionResult(name string, snap session.Snapshot) *Result {
	details := map[string]string{
		"Session": snap.ID,
		"Dialect": snap.Dialect,
	}
	if snap.Device != protocol.DeviceUnknown {
		details["Device"] = snap.Device.String()
	}
	if snap.Firmware != protocol.FirmwareUnknown {
		details["Firmware"] = snap.Firmware.String()
	}
	if snap.Expected > 0 {
		details["Entries"] = fmt.Sprintf("%d/%d", snap.Seen, snap.Expected)
	}
	if snap.Dropped > 0 {
		details["Dropped"] = fmt.Sprintf("%d malformed", snap.Dropped)
	}

	switch snap.State {
	case session.Done:
		details["Stored"] = snap.Result.String()
		details["Checksum"] = fmt.Sprintf("0x%04X", snap.Checksum)
		if snap.Result.Failed > 0 {
			return NewWarningResult(name+": read complete with store errors", details)
		}
		return NewSuccessResult(name+": read complete", details)
	case session.Fail:
		return NewFailureResult(name+": read failed", snap.Err, Troubleshooting(snap.Err))
	case session.End, session.Empty:
		if snap.Err != nil {
			details["Reason"] = snap.Err.Error()
		} else {
			details["Reason"] = "no valid checksum trailer"
		}
		return NewWarningResult(name+": batch discarded, nothing stored", details)
	default:
		details["State"] = snap.State.String()
		return NewWarningResult(name+": read incomplete", details)
	}
}

// Troubleshooting returns hints for a session failure
func Troubleshooting(err error) []string {
	switch {
	case errors.Is(err, protocol.ErrUnknownDevice), errors.Is(err, protocol.ErrUnknownFirmware):
		return []string{
			"Check the dialect matches the meter: glucometer dialects",
			"Run with GLUCOMETER_LOG_LEVEL=debug to see the raw lines",
		}
	case errors.Is(err, protocol.ErrTimeout):
		return []string{
			"Make sure the meter is switched on and showing the PC-link screen",
			"Check the cable is seated at both ends",
			"Verify the port with: glucometer ports",
		}
	case errors.Is(err, protocol.ErrChecksumMismatch):
		return []string{
			"Retry the read; line noise corrupts dumps",
			"Try a shorter or shielded cable",
		}
	default:
		return []string{"Run with GLUCOMETER_LOG_LEVEL=debug for the full transcript"}
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var title string
	var color lipgloss.Color
	switch r.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
		color = ErrorColor
	case ResultWarning:
		title = WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, r.Title))
		color = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		color = SuccessColor
	}

	lines := []string{"", title, ""}

	if r.Type == ResultFailure {
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, r.renderTroubleshootingBox(width), "")
		}
	} else {
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, ResultKeyStyle.Render("   "+k+":")+" "+ResultValueStyle.Render(r.Details[k]))
		}
		lines = append(lines, "")
	}

	return BoxStyle(color, width).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}
	return TroubleshootingBoxStyle(innerWidth).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
