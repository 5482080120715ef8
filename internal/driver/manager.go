package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/protocol"
	"github.com/muurk/glucometer/internal/transport"
)

// Conn pairs a transport with the driver handling its events
type Conn struct {
	ID        string
	Name      string
	Driver    Driver
	Transport transport.Transport

	// Err is set when the connection ended abnormally
	Err error
}

// Manager owns a dynamically sized set of connections
type Manager struct {
	idle time.Duration

	mu    sync.Mutex
	conns []*Conn
}

// NewManager creates a manager. A non-zero idle expires sessions that
// receive nothing for that long.
func NewManager(idle time.Duration) *Manager {
	return &Manager{idle: idle}
}

// Add registers a connection and returns it
func (m *Manager) Add(name string, d Driver, t transport.Transport) *Conn {
	c := &Conn{
		ID:        uuid.NewString(),
		Name:      name,
		Driver:    d,
		Transport: t,
	}
	m.mu.Lock()
	m.conns = append(m.conns, c)
	m.mu.Unlock()
	return c
}

// Remove drops a connection by id
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.conns {
		if c.ID == id {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live connections
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Conns returns a copy of the live connections
func (m *Manager) Conns() []*Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Conn, len(m.conns))
	copy(out, m.conns)
	return out
}

// Dispatch routes one transport event to the connection's driver. It
// reports whether the connection is finished.
func Dispatch(c *Conn, ev transport.Event) (bool, error) {
	switch ev.Kind {
	case transport.EventOutputReady:
		if err := c.Driver.HandleOutput(c.Transport); err != nil {
			return true, err
		}
	case transport.EventLine:
		if err := c.Driver.HandleInput(ev.Line); err != nil {
			return true, err
		}
	case transport.EventError:
		c.Driver.HandleError(ev.Err)
		return true, ev.Err
	case transport.EventEOF:
		return true, nil
	default:
		return false, fmt.Errorf("unknown transport event %v", ev.Kind)
	}

	if f, ok := c.Driver.(Finisher); ok && f.Finished() {
		return true, nil
	}
	return false, nil
}

// Run serves every connection present when it is called, one goroutine
// each, and returns when all have ended. Each connection is removed, its
// driver stopped and its transport closed on the way out. The returned error
// joins the per-connection failures.
func (m *Manager) Run(ctx context.Context) error {
	conns := m.Conns()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			c.Err = m.Serve(ctx, c)
		}(c)
	}
	wg.Wait()

	var errs []error
	for _, c := range conns {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Serve pumps one connection until it ends
func (m *Manager) Serve(ctx context.Context, c *Conn) (err error) {
	defer func() {
		if stopErr := c.Driver.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
		_ = c.Transport.Close()
		m.Remove(c.ID)
	}()

	if err := c.Driver.Start(ctx); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}

	var idle <-chan time.Time
	var timer *time.Timer
	if m.idle > 0 {
		timer = time.NewTimer(m.idle)
		defer timer.Stop()
		idle = timer.C
	}

	events := c.Transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-idle:
			logging.Warn("Connection idle",
				zap.String("conn", c.Name),
				zap.Duration("idle", m.idle),
			)
			if e, ok := c.Driver.(Expirer); ok {
				e.Expire(m.idle)
			}
			return fmt.Errorf("%w: no data for %s", protocol.ErrTimeout, m.idle)

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(m.idle)
			}
			done, err := Dispatch(c, ev)
			if done || err != nil {
				return err
			}
		}
	}
}
