// Package store persists validated glucose measurements.
//
// The protocol engine only needs a single operation, InsertMeasurement, with
// duplicate-tuple suppression: inserting the same (glucose, timestamp, device)
// twice stores one row and reports ErrDuplicate for the second call. Meters
// return their whole memory on every dump, so duplicates are the normal case
// on a second read.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrDuplicate   = errors.New("store: duplicate measurement")
	ErrInvalidData = errors.New("store: invalid data")
)

// Measurement is one stored reading
type Measurement struct {
	Glucose   int    `json:"glucose"`
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s %3d mg/dL (%s)", m.Timestamp, m.Glucose, m.Device)
}

// Store receives measurements whose batch passed checksum validation
type Store interface {
	// InsertMeasurement stores one reading. Returns ErrDuplicate when the
	// exact tuple is already present.
	InsertMeasurement(ctx context.Context, glucose int, timestamp, device string) error

	// List returns stored measurements in insertion order
	List(ctx context.Context) ([]Measurement, error)

	// Close releases resources
	Close() error
}

type sessionKey struct{}

// WithSession tags ctx with the id of the session committing measurements
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session id set by WithSession
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func validate(glucose int, timestamp, device string) error {
	if timestamp == "" || device == "" {
		return fmt.Errorf("%w: empty timestamp or device", ErrInvalidData)
	}
	if glucose < 0 {
		return fmt.Errorf("%w: negative glucose %d", ErrInvalidData, glucose)
	}
	return nil
}

// Open creates a store for the given driver name ("memory" or "postgres")
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q (expected memory or postgres)", driver)
	}
}
