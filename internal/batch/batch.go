// Package batch buffers measurement entries until the transcript checksum
// validates, then commits them to a store in arrival order.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/store"
)

// Inserter is the part of store.Store a commit needs
type Inserter interface {
	InsertMeasurement(ctx context.Context, glucose int, timestamp, device string) error
}

// CommitResult summarizes one commit
type CommitResult struct {
	Inserted   int
	Duplicates int
	Failed     int
	Errors     []error
}

// Total returns the number of entries the commit attempted
func (r CommitResult) Total() int {
	return r.Inserted + r.Duplicates + r.Failed
}

func (r CommitResult) String() string {
	return fmt.Sprintf("%d inserted, %d duplicate, %d failed", r.Inserted, r.Duplicates, r.Failed)
}

// Batch is the ordered buffer of pending entries for one session.
// It is not safe for concurrent use.
type Batch struct {
	entries []protocol.MeasurementEntry
}

// New creates a batch with room for capacity entries
func New(capacity int) *Batch {
	if capacity < 0 {
		capacity = 0
	}
	return &Batch{entries: make([]protocol.MeasurementEntry, 0, capacity)}
}

// Append adds an entry at the end of the batch
func (b *Batch) Append(e protocol.MeasurementEntry) {
	b.entries = append(b.entries, e)
}

// Len returns the number of pending entries
func (b *Batch) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the pending entries in arrival order
func (b *Batch) Entries() []protocol.MeasurementEntry {
	out := make([]protocol.MeasurementEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Commit inserts every pending entry into s, in arrival order, labelled with
// device. Inserts are not retried. A duplicate counts as skipped; any other
// error counts as failed and is logged. The batch is empty afterwards, so a
// second Commit is a no-op.
//
// Cancellation of ctx does not interrupt a commit once started; its values
// (such as the session id) still reach the store.
func (b *Batch) Commit(ctx context.Context, s Inserter, device string) CommitResult {
	ctx = context.WithoutCancel(ctx)

	var result CommitResult
	for _, e := range b.entries {
		err := s.InsertMeasurement(ctx, e.Glucose, e.Timestamp.Format(), device)
		switch {
		case err == nil:
			result.Inserted++
		case errors.Is(err, store.ErrDuplicate):
			result.Duplicates++
		default:
			result.Failed++
			result.Errors = append(result.Errors, err)
			logging.Error("Failed to insert measurement",
				zap.Int("glucose", e.Glucose),
				zap.String("timestamp", e.Timestamp.Format()),
				zap.String("device", device),
				zap.Error(err),
			)
		}
	}
	b.entries = b.entries[:0]
	return result
}

// Discard drops every pending entry and returns how many were dropped
func (b *Batch) Discard() int {
	n := len(b.entries)
	b.entries = b.entries[:0]
	return n
}
