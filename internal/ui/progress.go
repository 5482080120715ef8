package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/session"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
)

// Step is one phase of a meter read
type Step struct {
	Name    string
	Status  StepStatus
	Message string // e.g. "FreeStyle Mini", "12/40"
}

// Read phases, in protocol order
const (
	stepCommand = iota
	stepDevice
	stepFirmware
	stepClock
	stepCount
	stepResults
	stepChecksum
	stepTotal
)

var stepNames = [stepTotal]string{
	stepCommand:  "Send memory command",
	stepDevice:   "Identify device",
	stepFirmware: "Check firmware",
	stepClock:    "Read device clock",
	stepCount:    "Read entry count",
	stepResults:  "Read results",
	stepChecksum: "Verify checksum",
}

// stepFor maps a live protocol state to the phase it is working on
func stepFor(s session.State) int {
	switch s {
	case session.SendMemoryCommand:
		return stepCommand
	case session.DeviceType:
		return stepDevice
	case session.SoftwareRevision:
		return stepFirmware
	case session.CurrentDateTime:
		return stepClock
	case session.EntryCount:
		return stepCount
	case session.ResultLine:
		return stepResults
	default:
		return stepChecksum
	}
}

// Progress shows one device read as a bar plus a step list
type Progress struct {
	Label   string
	Steps   []Step
	Percent float64 // 0.0 - 1.0
	Width   int
	Snap    session.Snapshot
	failed  int // step that failed, -1 if none
	bar     progress.Model
}

// NewProgress creates a progress display for the named device
func NewProgress(label string) *Progress {
	steps := make([]Step, stepTotal)
	for i := range steps {
		steps[i] = Step{Name: stepNames[i]}
	}
	p := &Progress{
		Label:  label,
		Steps:  steps,
		failed: -1,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // room for percentage and counter
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Apply updates the display from a session snapshot
func (p *Progress) Apply(snap session.Snapshot) {
	p.Snap = snap

	current := stepFor(snap.State)
	if snap.State == session.Fail {
		if p.failed < 0 {
			p.failed = p.firstIncomplete()
		}
		current = p.failed
	}

	for i := range p.Steps {
		switch {
		case i < current:
			p.Steps[i].Status = StepComplete
		case i == current && snap.State == session.Done:
			p.Steps[i].Status = StepComplete
		case i == current && snap.State == session.Fail:
			p.Steps[i].Status = StepFailed
		case i == current:
			p.Steps[i].Status = StepRunning
		default:
			p.Steps[i].Status = StepPending
		}
	}

	if snap.Device != protocol.DeviceUnknown {
		p.Steps[stepDevice].Message = snap.Device.String()
	}
	if snap.Firmware != protocol.FirmwareUnknown {
		p.Steps[stepFirmware].Message = snap.Firmware.String()
	}
	if snap.Expected > 0 {
		p.Steps[stepCount].Message = fmt.Sprintf("%d entries", snap.Expected)
		msg := fmt.Sprintf("%d/%d", snap.Seen, snap.Expected)
		if snap.Dropped > 0 {
			msg += fmt.Sprintf(", %d dropped", snap.Dropped)
		}
		p.Steps[stepResults].Message = msg
	}
	switch snap.State {
	case session.Done:
		p.Steps[stepChecksum].Message = fmt.Sprintf("0x%04X", snap.Checksum)
	case session.Fail:
		if snap.Err != nil {
			p.Steps[current].Message = snap.Err.Error()
		}
	}

	p.Percent = p.percent()
}

func (p *Progress) firstIncomplete() int {
	for i, s := range p.Steps {
		if s.Status != StepComplete {
			return i
		}
	}
	return stepChecksum
}

// percent weights the handshake as the first fifth and the results as the rest
func (p *Progress) percent() float64 {
	switch p.Snap.State {
	case session.Done:
		return 1
	case session.ResultLine, session.End, session.Empty:
		if p.Snap.Expected == 0 {
			return 0.2
		}
		return 0.2 + 0.8*float64(p.Snap.Seen)/float64(p.Snap.Expected)
	case session.Fail:
		return p.Percent
	default:
		return 0.2 * float64(stepFor(p.Snap.State)) / float64(stepResults)
	}
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%", p.bar.ViewAs(p.Percent), p.Percent*100)))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.Steps))
	for i, step := range p.Steps {
		lines = append(lines, p.renderStepLine(i, step))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (p *Progress) renderStepLine(i int, step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", i+1, len(p.Steps))

	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(style.Render(step.Name))

	padding := 30 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
