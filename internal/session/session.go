package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/batch"
	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/store"
)

// Observer is notified after every line that was processed and after the
// command write. Called on the session's goroutine.
type Observer interface {
	SessionUpdate(Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Snapshot)

// SessionUpdate implements Observer
func (f ObserverFunc) SessionUpdate(s Snapshot) { f(s) }

// Snapshot is a point-in-time copy of session progress
type Snapshot struct {
	ID       string
	Dialect  string
	State    State
	Device   protocol.DeviceIdentity
	Firmware protocol.FirmwareRevision
	Expected int
	Seen     int
	Pending  int
	Dropped  int
	Checksum uint16
	Result   batch.CommitResult
	Err      error
	Started  time.Time
}

// Config holds the collaborators of a Session
type Config struct {
	Dialect  *dialect.Dialect
	Store    batch.Inserter
	Policy   Policy
	Observer Observer
}

// Session is the per-connection protocol state and buffered data
type Session struct {
	id       uuid.UUID
	dialect  *dialect.Dialect
	policy   Policy
	store    batch.Inserter
	observer Observer

	state    State
	checksum protocol.Checksum
	expected int
	seen     int
	dropped  int
	pending  *batch.Batch
	device   protocol.DeviceIdentity
	firmware protocol.FirmwareRevision
	result   batch.CommitResult
	err      error

	created  time.Time
	lastLine time.Time
}

// New creates a session waiting to send the memory command
func New(cfg Config) (*Session, error) {
	if cfg.Dialect == nil {
		return nil, errors.New("session: dialect is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	now := time.Now()
	return &Session{
		id:       uuid.New(),
		dialect:  cfg.Dialect,
		policy:   cfg.Policy,
		store:    cfg.Store,
		observer: cfg.Observer,
		state:    SendMemoryCommand,
		pending:  batch.New(0),
		created:  now,
		lastLine: now,
	}, nil
}

// ID returns the session identifier used in logs and the feed
func (s *Session) ID() string { return s.id.String() }

// State returns the current protocol state
func (s *Session) State() State { return s.state }

// Err returns the error that failed the session, or the last checksum
// mismatch for a session idling in End
func (s *Session) Err() error { return s.err }

// Result returns the outcome of the commit, zero until Done
func (s *Session) Result() batch.CommitResult { return s.result }

// LastActivity returns when the last line arrived
func (s *Session) LastActivity() time.Time { return s.lastLine }

// Snapshot returns a copy of the session progress
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID(),
		Dialect:  s.dialect.Name,
		State:    s.state,
		Device:   s.device,
		Firmware: s.firmware,
		Expected: s.expected,
		Seen:     s.seen,
		Pending:  s.pending.Len(),
		Dropped:  s.dropped,
		Checksum: s.checksum.Sum(),
		Result:   s.result,
		Err:      s.err,
		Started:  s.created,
	}
}

// HandleWriteReady writes the dialect's memory command on the first call in
// SendMemoryCommand and advances to DeviceType. Later calls are no-ops. A
// failed write leaves the state unchanged so the next readiness retries.
func (s *Session) HandleWriteReady(w io.Writer) error {
	if s.state != SendMemoryCommand {
		return nil
	}
	if _, err := io.WriteString(w, s.dialect.Command); err != nil {
		return fmt.Errorf("write %q command: %w", s.dialect.Command, err)
	}
	logging.LogLine(s.ID(), "tx", []byte(s.dialect.Command))
	s.setState(DeviceType)
	s.notify()
	return nil
}

// HandleLine processes one complete raw line as received, terminators
// included.
func (s *Session) HandleLine(ctx context.Context, raw []byte) {
	if s.state == Fail {
		return
	}
	s.lastLine = time.Now()
	logging.LogLine(s.ID(), "rx", raw)

	if s.state.checksummed() {
		s.checksum.Add(raw)
	}

	line := string(bytes.TrimRight(raw, "\r\n"))
	if line == "" {
		return
	}

	next, effect := Transition(s.state, s.context(), line)
	s.apply(ctx, effect, next)
	s.setState(next)
	s.notify()
}

// Expire fails a session that has not reached a terminal state
func (s *Session) Expire(idle time.Duration) {
	if s.state.Terminal() {
		return
	}
	s.pending.Discard()
	s.err = &protocol.ProtocolError{
		Type:    protocol.ErrTypeTimeout,
		Field:   s.state.String(),
		Message: fmt.Sprintf("no line for %s", idle),
	}
	logging.Warn("Session timed out",
		zap.String("session", s.ID()),
		zap.String("state", s.state.String()),
		zap.Duration("idle", idle),
	)
	s.setState(Fail)
	s.notify()
}

func (s *Session) context() TransitionContext {
	return TransitionContext{
		Dialect:  s.dialect,
		Policy:   s.policy,
		Expected: s.expected,
		Seen:     s.seen,
		Checksum: s.checksum.Sum(),
	}
}

func (s *Session) apply(ctx context.Context, e Effect, next State) {
	switch e.Kind {
	case EffectSetDevice:
		s.device = e.Device
	case EffectSetFirmware:
		s.firmware = e.Firmware
	case EffectSetCount:
		s.expected = e.Count
	case EffectAppendEntry:
		s.pending.Append(e.Entry)
	case EffectDropEntry:
		s.dropped++
		logging.Warn("Dropped malformed result line",
			zap.String("session", s.ID()),
			zap.Int("line", s.seen+1),
			zap.Error(e.Err),
		)
	case EffectCommit:
		ctx = store.WithSession(ctx, s.ID())
		s.result = s.pending.Commit(ctx, s.store, s.dialect.Name)
		s.err = nil
		logging.Info("Checksum verified, batch committed",
			zap.String("session", s.ID()),
			zap.String("dialect", s.dialect.Name),
			zap.Int("inserted", s.result.Inserted),
			zap.Int("duplicates", s.result.Duplicates),
			zap.Int("failed", s.result.Failed),
		)
	case EffectDiscard:
		n := s.pending.Discard()
		s.err = e.Err
		logging.Warn("Checksum mismatch, batch discarded",
			zap.String("session", s.ID()),
			zap.Int("discarded", n),
			zap.Error(e.Err),
		)
	case EffectFail:
		s.pending.Discard()
		s.err = e.Err
		logging.Error("Session failed",
			zap.String("session", s.ID()),
			zap.String("state", s.state.String()),
			zap.Error(e.Err),
		)
	case EffectNone:
		if e.Err != nil {
			logging.Debug("Ignoring malformed trailer",
				zap.String("session", s.ID()),
				zap.Error(e.Err),
			)
		}
	}

	if e.counts() {
		s.seen++
	}
}

func (s *Session) setState(next State) {
	if next == s.state {
		return
	}
	logging.LogTransition(s.ID(), s.state.String(), next.String())
	s.state = next
}

func (s *Session) notify() {
	if s.observer != nil {
		s.observer.SessionUpdate(s.Snapshot())
	}
}
