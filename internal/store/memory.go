package store

import (
	"context"
	"sync"
)

// MemoryStore keeps measurements in process memory
type MemoryStore struct {
	mu   sync.Mutex
	rows []Measurement
	seen map[Measurement]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[Measurement]struct{})}
}

// InsertMeasurement implements Store
func (s *MemoryStore) InsertMeasurement(ctx context.Context, glucose int, timestamp, device string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(glucose, timestamp, device); err != nil {
		return err
	}

	m := Measurement{Glucose: glucose, Timestamp: timestamp, Device: device}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[m]; dup {
		return ErrDuplicate
	}
	s.seen[m] = struct{}{}
	s.rows = append(s.rows, m)
	return nil
}

// List implements Store
func (s *MemoryStore) List(ctx context.Context) ([]Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Measurement, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// Len returns the number of stored rows
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
