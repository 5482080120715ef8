package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Replay is a Transport that reads a recorded transcript. Writes are
// captured so tests can check what the driver sent.
type Replay struct {
	name   string
	closer io.Closer
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error

	mu      sync.Mutex
	written bytes.Buffer
}

// NewReplay replays r. name identifies the source in logs.
func NewReplay(ctx context.Context, name string, r io.Reader) *Replay {
	ctx, cancel := context.WithCancel(ctx)
	rp := &Replay{
		name:   name,
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		rp.closer = c
	}
	go func() {
		defer close(rp.done)
		pump(ctx, name, r, rp.events)
	}()
	return rp
}

// OpenReplay replays the transcript file at path
func OpenReplay(ctx context.Context, path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	return NewReplay(ctx, filepath.Base(path), f), nil
}

// Name implements Transport
func (r *Replay) Name() string { return r.name }

// Events implements Transport
func (r *Replay) Events() <-chan Event { return r.events }

// Write records p
func (r *Replay) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written.Write(p)
}

// Written returns everything written so far
func (r *Replay) Written() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written.String()
}

// Close implements Transport
func (r *Replay) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		if r.closer != nil {
			r.closeErr = r.closer.Close()
		}
		<-r.done
	})
	return r.closeErr
}
