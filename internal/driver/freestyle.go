package driver

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/session"
)

// FreeStyle drives one meter through the memory-dump session
type FreeStyle struct {
	dialect *dialect.Dialect
	deps    Deps

	ctx     context.Context
	session *session.Session
	linkErr error
}

// FreeStyleFactory returns a factory bound to dialect d
func FreeStyleFactory(d *dialect.Dialect) Factory {
	return func(deps Deps) (Driver, error) {
		if deps.Store == nil {
			return nil, errors.New("driver: store is required")
		}
		return &FreeStyle{dialect: d, deps: deps}, nil
	}
}

// Start implements Driver
func (f *FreeStyle) Start(ctx context.Context) error {
	s, err := session.New(session.Config{
		Dialect:  f.dialect,
		Store:    f.deps.Store,
		Policy:   f.deps.Policy,
		Observer: f.deps.Observer,
	})
	if err != nil {
		return err
	}
	f.ctx = ctx
	f.session = s
	logging.Info("Session started",
		zap.String("session", s.ID()),
		zap.String("dialect", f.dialect.Name),
	)
	return nil
}

// Stop implements Driver
func (f *FreeStyle) Stop() error {
	if f.session == nil {
		return nil
	}
	snap := f.session.Snapshot()
	logging.Info("Session finished",
		zap.String("session", snap.ID),
		zap.String("state", snap.State.String()),
		zap.Int("expected", snap.Expected),
		zap.Int("seen", snap.Seen),
		zap.Int("inserted", snap.Result.Inserted),
		zap.Duration("elapsed", time.Since(snap.Started)),
	)
	return nil
}

// HandleInput implements Driver
func (f *FreeStyle) HandleInput(line []byte) error {
	if f.session == nil {
		return errors.New("driver: not started")
	}
	f.session.HandleLine(f.ctx, line)
	if f.session.State() == session.Fail {
		return f.session.Err()
	}
	return nil
}

// HandleOutput implements Driver
func (f *FreeStyle) HandleOutput(w io.Writer) error {
	if f.session == nil {
		return errors.New("driver: not started")
	}
	return f.session.HandleWriteReady(w)
}

// HandleError implements Driver
func (f *FreeStyle) HandleError(err error) {
	f.linkErr = err
	logging.Warn("Transport error",
		zap.String("dialect", f.dialect.Name),
		zap.Error(err),
	)
}

// Finished implements Finisher
func (f *FreeStyle) Finished() bool {
	return f.session != nil && f.session.State().Terminal()
}

// Expire implements Expirer
func (f *FreeStyle) Expire(idle time.Duration) {
	if f.session != nil {
		f.session.Expire(idle)
	}
}

// Snapshot returns the session progress; zero before Start
func (f *FreeStyle) Snapshot() session.Snapshot {
	if f.session == nil {
		return session.Snapshot{Dialect: f.dialect.Name}
	}
	return f.session.Snapshot()
}

// LinkError returns the last transport error, if any
func (f *FreeStyle) LinkError() error {
	return f.linkErr
}
