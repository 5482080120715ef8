package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/glucometer/internal/batch"
	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/session"
)

func snapshot(state session.State) session.Snapshot {
	return session.Snapshot{
		ID:       "id-1",
		Dialect:  "abfr",
		State:    state,
		Device:   protocol.DeviceFreeStyleMini,
		Firmware: protocol.Firmware0_31P,
		Expected: 4,
		Seen:     2,
		Started:  time.Now(),
	}
}

func statuses(p *Progress) []StepStatus {
	out := make([]StepStatus, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Status
	}
	return out
}

func TestProgressApply(t *testing.T) {
	p := NewProgress("kitchen").SetWidth(80)
	assert.Equal(t, 0.0, p.Percent)

	p.Apply(snapshot(session.ResultLine))
	assert.Equal(t, []StepStatus{
		StepComplete, StepComplete, StepComplete, StepComplete, StepComplete, StepRunning, StepPending,
	}, statuses(p))
	assert.InDelta(t, 0.6, p.Percent, 0.001)
	assert.Equal(t, "2/4", p.Steps[stepResults].Message)
	assert.Equal(t, protocol.DeviceFreeStyleMini.String(), p.Steps[stepDevice].Message)

	done := snapshot(session.Done)
	done.Seen = 4
	p.Apply(done)
	for _, s := range statuses(p) {
		assert.Equal(t, StepComplete, s)
	}
	assert.Equal(t, 1.0, p.Percent)
}

func TestProgressFailureMarksCurrentStep(t *testing.T) {
	p := NewProgress("car")
	p.Apply(session.Snapshot{State: session.DeviceType})

	p.Apply(session.Snapshot{State: session.Fail, Err: protocol.ErrUnknownDevice})
	assert.Equal(t, StepComplete, p.Steps[stepCommand].Status)
	assert.Equal(t, StepFailed, p.Steps[stepDevice].Status)
	assert.Equal(t, StepPending, p.Steps[stepFirmware].Status)
	assert.Contains(t, p.Steps[stepDevice].Message, "unknown device")

	// a later snapshot keeps the same failed step
	p.Apply(session.Snapshot{State: session.Fail, Err: protocol.ErrUnknownDevice})
	assert.Equal(t, StepFailed, p.Steps[stepDevice].Status)
}

func TestSessionResult(t *testing.T) {
	done := snapshot(session.Done)
	done.Result = batch.CommitResult{Inserted: 3, Duplicates: 1}
	assert.Equal(t, ResultSuccess, SessionResult("kitchen", done).Type)

	done.Result.Failed = 1
	assert.Equal(t, ResultWarning, SessionResult("kitchen", done).Type)

	failed := snapshot(session.Fail)
	failed.Err = protocol.ErrTimeout
	r := SessionResult("kitchen", failed)
	assert.Equal(t, ResultFailure, r.Type)
	assert.NotEmpty(t, r.Troubleshooting)

	stalled := snapshot(session.End)
	r = SessionResult("kitchen", stalled)
	assert.Equal(t, ResultWarning, r.Type)
	assert.Equal(t, "no valid checksum trailer", r.Details["Reason"])

	out := r.SetWidth(80).Render()
	assert.Contains(t, out, "batch discarded")
}

func TestTrackerModel(t *testing.T) {
	m := NewTrackerModel([]string{"kitchen"})

	next, cmd := m.Update(snapshotMsg{name: "kitchen", snap: snapshot(session.ResultLine)})
	assert.Nil(t, cmd)
	m = next.(TrackerModel)

	next, _ = m.Update(snapshotMsg{name: "car", snap: snapshot(session.DeviceType)})
	m = next.(TrackerModel)
	assert.Equal(t, []string{"kitchen", "car"}, m.order)

	snap, ok := m.Snapshot("kitchen")
	require.True(t, ok)
	assert.Equal(t, session.ResultLine, snap.State)

	view := m.View()
	assert.Contains(t, view, "kitchen")
	assert.Contains(t, view, "Read results")
	assert.NotContains(t, view, "SUCCESS")

	boom := errors.New("boom")
	next, cmd = m.Update(finishMsg{err: boom})
	require.NotNil(t, cmd)
	m = next.(TrackerModel)
	assert.ErrorIs(t, m.Err(), boom)
	assert.Contains(t, m.View(), "read incomplete")
}

func TestTrackerModelInterrupt(t *testing.T) {
	m := NewTrackerModel(nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, next.(TrackerModel).Err(), ErrInterrupted)
}

func TestHeaderSortsParams(t *testing.T) {
	out := NewHeader("Meter read", "glucometer read", map[string]string{
		"Port":    "/dev/ttyUSB0",
		"Dialect": "abfr",
	}).SetWidth(80).Render()

	assert.Contains(t, out, "METER READ")
	assert.Less(t, strings.Index(out, "Dialect"), strings.Index(out, "Port"))
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Confirm(strings.NewReader("y\n"), &out, "Remove", nil))
	assert.True(t, Confirm(strings.NewReader("YES\n"), &out, "Remove", nil))
	assert.False(t, Confirm(strings.NewReader("n\n"), &out, "Remove", nil))
	assert.False(t, Confirm(strings.NewReader(""), &out, "Remove", nil))
}

func TestPrinterObserver(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)
	obs := p.Observer("kitchen")

	obs.SessionUpdate(session.Snapshot{State: session.DeviceType})
	obs.SessionUpdate(session.Snapshot{State: session.DeviceType})
	obs.SessionUpdate(session.Snapshot{State: session.ResultLine, Expected: 3, Seen: 1})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "ResultLine (1/3)")
}

func TestRenderReading(t *testing.T) {
	assert.Contains(t, RenderReading(65), "65 mg/dL")
	assert.Contains(t, RenderReading(120), "120 mg/dL")
}
