package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/muurk/glucometer/internal/session"
)

// ErrInterrupted is returned by Tracker.Run when the user pressed ctrl+c
var ErrInterrupted = errors.New("interrupted")

type snapshotMsg struct {
	name string
	snap session.Snapshot
}

type finishMsg struct {
	err error
}

// TrackerModel is the Bubble Tea model behind Tracker
type TrackerModel struct {
	order    []string
	progress map[string]*Progress
	width    int
	done     bool
	err      error
}

// NewTrackerModel creates a model with a pending row per device name
func NewTrackerModel(names []string) TrackerModel {
	m := TrackerModel{
		progress: make(map[string]*Progress, len(names)),
		width:    GetTerminalWidth(),
	}
	for _, n := range names {
		m.add(n)
	}
	return m
}

func (m *TrackerModel) add(name string) *Progress {
	p := NewProgress(name).SetWidth(m.width)
	m.order = append(m.order, name)
	m.progress[name] = p
	return p
}

// Init implements tea.Model
func (m TrackerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		for _, p := range m.progress {
			p.SetWidth(m.width)
		}
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case snapshotMsg:
		p, ok := m.progress[msg.name]
		if !ok {
			p = m.add(msg.name)
		}
		p.Apply(msg.snap)
	case finishMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m TrackerModel) View() string {
	var b strings.Builder
	for _, name := range m.order {
		b.WriteString(m.progress[name].Render())
		b.WriteString("\n\n")
	}
	if m.done {
		for _, name := range m.order {
			p := m.progress[name]
			b.WriteString(SessionResult(name, p.Snap).SetWidth(m.width).Render())
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Err returns the error the run finished with
func (m TrackerModel) Err() error {
	return m.err
}

// Snapshot returns the last snapshot seen for name
func (m TrackerModel) Snapshot(name string) (session.Snapshot, bool) {
	p, ok := m.progress[name]
	if !ok {
		return session.Snapshot{}, false
	}
	return p.Snap, true
}

// Tracker shows live progress for a set of concurrent reads
type Tracker struct {
	program *tea.Program
	once    sync.Once
}

// NewTracker creates a tracker writing to out
func NewTracker(out io.Writer, names []string) *Tracker {
	if out == nil {
		out = os.Stdout
	}
	return &Tracker{
		program: tea.NewProgram(NewTrackerModel(names), tea.WithOutput(out)),
	}
}

// Observer returns a session observer feeding the row for name.
// Updates block until Run has started.
func (t *Tracker) Observer(name string) session.Observer {
	return session.ObserverFunc(func(s session.Snapshot) {
		t.program.Send(snapshotMsg{name: name, snap: s})
	})
}

// Finish ends the display with the overall outcome of the reads
func (t *Tracker) Finish(err error) {
	t.once.Do(func() {
		t.program.Send(finishMsg{err: err})
	})
}

// Run shows the display until Finish is called or the user interrupts.
// Returns the error passed to Finish, or ErrInterrupted.
func (t *Tracker) Run() error {
	final, err := t.program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(TrackerModel); ok {
		return m.Err()
	}
	return nil
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// Printer writes UI components without Bubble Tea, for pipes and logs.
// Safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	p.Println("")
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// PrintSession prints the outcome of one read
func (p *Printer) PrintSession(name string, snap session.Snapshot) {
	p.PrintResult(SessionResult(name, snap))
}

// PrintReading prints one feed or store row
func (p *Printer) PrintReading(timestamp string, glucose int, device, extra string) {
	line := fmt.Sprintf("  %s  %s  %s", timestamp, RenderReading(glucose), StepNoteStyle.Render(device))
	if extra != "" {
		line += "  " + StepNoteStyle.Render(extra)
	}
	p.Println(line)
}

// Observer returns a session observer that prints one line per state change
func (p *Printer) Observer(name string) session.Observer {
	var mu sync.Mutex
	last := session.State(-1)
	return session.ObserverFunc(func(s session.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State == last {
			return
		}
		last = s.State
		msg := fmt.Sprintf("  %-12s %s", name, s.State)
		if s.Expected > 0 {
			msg += fmt.Sprintf(" (%d/%d)", s.Seen, s.Expected)
		}
		p.Println(msg)
	})
}
