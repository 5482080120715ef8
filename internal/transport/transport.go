// Package transport turns byte streams into protocol events.
//
// A Transport delivers, in order: one OutputReady event, then one Line event
// per complete received line (terminators included), then EOF or Error. A
// partial read is buffered until its terminator arrives, so drivers never see
// half a line. Two implementations exist: Serial for a real meter and Replay
// for a recorded transcript.
package transport

import (
	"context"
	"errors"
	"io"

	"github.com/muurk/glucometer/internal/logging"
)

// EventKind identifies a transport event
type EventKind int

const (
	// EventOutputReady means the link accepts writes
	EventOutputReady EventKind = iota
	// EventLine carries one complete raw line
	EventLine
	// EventError reports a read failure; no more events follow
	EventError
	// EventEOF reports the end of the stream; no more events follow
	EventEOF
)

func (k EventKind) String() string {
	switch k {
	case EventOutputReady:
		return "output-ready"
	case EventLine:
		return "line"
	case EventError:
		return "error"
	case EventEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Event is delivered on a transport's event channel
type Event struct {
	Kind EventKind
	Line []byte
	Err  error
}

// Transport is one connection to a meter
type Transport interface {
	io.Writer

	// Name identifies the connection in logs (port path or file name)
	Name() string

	// Events is closed after the final EOF or Error event
	Events() <-chan Event

	// Close stops reading and releases the underlying handle
	Close() error
}

const readChunk = 256

// pump reads r until EOF, an error or cancellation, splitting the stream
// into lines. It sends OutputReady first and closes events on return.
// A read returning (0, nil) is treated as a timeout and retried.
func pump(ctx context.Context, name string, r io.Reader, events chan<- Event) {
	defer close(events)

	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(Event{Kind: EventOutputReady}) {
		return
	}

	var splitter LineSplitter
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines, ferr := splitter.Feed(buf[:n])
			for _, line := range lines {
				if !send(Event{Kind: EventLine, Line: line}) {
					return
				}
			}
			if ferr != nil {
				logging.LogSerialEvent(name, "line_overrun")
				send(Event{Kind: EventError, Err: ferr})
				return
			}
		}

		switch {
		case err == nil:
			if ctx.Err() != nil {
				return
			}
			continue
		case errors.Is(err, io.EOF):
			if rest := splitter.Flush(); rest != nil {
				if !send(Event{Kind: EventLine, Line: rest}) {
					return
				}
			}
			send(Event{Kind: EventEOF})
			return
		case ctx.Err() != nil:
			// Read interrupted by Close
			return
		default:
			logging.LogSerialEvent(name, "read_error")
			send(Event{Kind: EventError, Err: err})
			return
		}
	}
}
