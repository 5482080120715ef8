// Package driver connects transports to device dialects.
//
// A Driver implements the five capabilities a connection needs: Start, Stop,
// HandleInput, HandleOutput and HandleError. Drivers are built by factories
// registered by name in a Registry, so adding a dialect never touches the
// transport or the commit path. A Manager owns the live connections and
// pumps each transport's events into its driver.
package driver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/muurk/glucometer/internal/batch"
	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/session"
)

// Driver handles the events of one connection
type Driver interface {
	// Start prepares the driver; ctx bounds everything the driver does
	Start(ctx context.Context) error

	// Stop releases per-connection state
	Stop() error

	// HandleInput processes one complete raw line. A non-nil error means
	// the connection cannot make further progress.
	HandleInput(line []byte) error

	// HandleOutput is called when the link accepts writes
	HandleOutput(w io.Writer) error

	// HandleError is called when the transport fails
	HandleError(err error)
}

// Finisher is implemented by drivers that know when their exchange is over
type Finisher interface {
	Finished() bool
}

// Expirer is implemented by drivers that support an idle timeout
type Expirer interface {
	Expire(idle time.Duration)
}

// Deps are the collaborators shared by every driver instance
type Deps struct {
	Store    batch.Inserter
	Policy   session.Policy
	Observer session.Observer
}

// Factory creates a driver for one connection
type Factory func(Deps) (Driver, error)

// Registry maps driver names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Names must be unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("driver: invalid registration %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("driver: %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds a driver by name
func (r *Registry) New(name string, deps Deps) (Driver, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("driver: unknown dialect %q (known: %v)", name, r.Names())
	}
	return f(deps)
}

// Names returns registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry registers a FreeStyle driver for every dialect in c
func NewDefaultRegistry(c *dialect.Catalog) (*Registry, error) {
	r := NewRegistry()
	for _, d := range c.List() {
		if err := r.Register(d.Name, FreeStyleFactory(d)); err != nil {
			return nil, err
		}
	}
	return r, nil
}
