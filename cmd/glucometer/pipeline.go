package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/batch"
	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/discovery"
	"github.com/muurk/glucometer/internal/driver"
	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/server"
	"github.com/muurk/glucometer/internal/session"
	"github.com/muurk/glucometer/internal/store"
	"github.com/muurk/glucometer/internal/transport"
	"github.com/muurk/glucometer/internal/ui"
	"github.com/muurk/glucometer/internal/version"
)

// target is one meter to read
type target struct {
	name    string
	dialect *dialect.Dialect
	open    func(ctx context.Context) (transport.Transport, error)
	params  map[string]string

	driver *driver.FreeStyle
}

// pipelineOptions are the command-line overrides shared by read and replay
type pipelineOptions struct {
	storeDriver  string
	storeDSN     string
	feed         bool
	listen       string
	noAdvertise  bool
	strict       bool
	failMismatch bool
	idle         time.Duration
}

// pipeline owns the store, the optional feed and the driver registry
type pipeline struct {
	catalog  *dialect.Catalog
	drivers  *driver.Registry
	store    store.Store
	inserter batch.Inserter
	feed     *server.Server
	adv      *discovery.Advertiser
	policy   session.Policy
	idle     time.Duration
}

func newPipeline(ctx context.Context, reg *config.Registry, opts pipelineOptions) (*pipeline, error) {
	catalog, err := dialect.LoadCatalog()
	if err != nil {
		return nil, err
	}
	drivers, err := driver.NewDefaultRegistry(catalog)
	if err != nil {
		return nil, err
	}

	storeDriver, dsn := reg.Store.Driver, reg.Store.DSN
	if opts.storeDriver != "" {
		storeDriver = opts.storeDriver
	}
	if opts.storeDSN != "" {
		dsn = opts.storeDSN
	}
	st, err := store.Open(ctx, storeDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	p := &pipeline{
		catalog:  catalog,
		drivers:  drivers,
		store:    st,
		inserter: st,
		policy: session.Policy{
			StrictEntries:          reg.Protocol.StrictEntries || opts.strict,
			FailOnChecksumMismatch: reg.Protocol.FailOnChecksumMismatch || opts.failMismatch,
		},
		idle: reg.Protocol.IdleTimeout,
	}
	if opts.idle > 0 {
		p.idle = opts.idle
	}

	if opts.feed {
		if err := p.startFeed(reg.Feed, opts); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *pipeline) startFeed(cfg *config.FeedConfig, opts pipelineOptions) error {
	listen := cfg.Listen
	if opts.listen != "" {
		listen = opts.listen
	}

	srv, err := server.New(server.Config{
		Listen:         listen,
		AllowedOrigins: cfg.AllowedOrigins,
	}, p.store)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	p.feed = srv
	p.inserter = server.NewPublishingStore(p.store, srv.Hub())

	if cfg.Advertise && !opts.noAdvertise {
		instance := cfg.Name
		if instance == "" {
			instance, _ = os.Hostname()
		}
		txt := discovery.TXTRecords(server.DefaultPath, version.Version, p.catalog.Names())
		adv, err := discovery.Advertise(instance, srv.Port(), txt)
		if err != nil {
			// the feed still works by URL
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			p.adv = adv
		}
	}
	return nil
}

// Close stops the feed and closes the store
func (p *pipeline) Close() {
	p.adv.Shutdown()
	if p.feed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.feed.Shutdown(ctx); err != nil {
			logging.Warn("Feed shutdown", zap.Error(err))
		}
	}
	if err := p.store.Close(); err != nil {
		logging.Warn("Store close", zap.Error(err))
	}
}

// run reads every target concurrently. With interactive set, progress is
// drawn by a Bubble Tea tracker, otherwise one line per state change.
func (p *pipeline) run(ctx context.Context, targets []*target, out io.Writer, interactive bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printer := ui.NewPrinter(out)
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.name
	}

	var tracker *ui.Tracker
	if interactive {
		tracker = ui.NewTracker(out, names)
	}

	mgr := driver.NewManager(p.idle)
	for _, t := range targets {
		var obs session.Observer
		if tracker != nil {
			obs = tracker.Observer(t.name)
		} else {
			obs = printer.Observer(t.name)
		}

		d, err := p.drivers.New(t.dialect.Name, driver.Deps{Store: p.inserter, Policy: p.policy, Observer: obs})
		if err != nil {
			closeAll(mgr)
			return err
		}
		fs, ok := d.(*driver.FreeStyle)
		if !ok {
			closeAll(mgr)
			return fmt.Errorf("dialect %s: unexpected driver %T", t.dialect.Name, d)
		}
		t.driver = fs

		tr, err := t.open(ctx)
		if err != nil {
			closeAll(mgr)
			return fmt.Errorf("%s: %w", t.name, err)
		}
		mgr.Add(t.name, d, tr)
	}

	var runErr error
	if tracker != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			runErr = mgr.Run(ctx)
			tracker.Finish(runErr)
		}()
		if err := tracker.Run(); err != nil {
			cancel()
			<-done
			if errors.Is(err, ui.ErrInterrupted) {
				return err
			}
		}
		<-done
	} else {
		runErr = mgr.Run(ctx)
		printer.Newline()
		for _, t := range targets {
			printer.PrintSession(t.name, t.driver.Snapshot())
		}
	}

	var incomplete []string
	for _, t := range targets {
		if t.driver.Snapshot().State != session.Done {
			incomplete = append(incomplete, t.name)
		}
	}
	if len(incomplete) > 0 {
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("read incomplete: %s", strings.Join(incomplete, ", "))
	}
	return runErr
}

// closeAll closes the transports of connections that never ran
func closeAll(mgr *driver.Manager) {
	for _, c := range mgr.Conns() {
		_ = c.Transport.Close()
		mgr.Remove(c.ID)
	}
}

// policyParams renders the active policy for headers
func (p *pipeline) policyParams(params map[string]string) map[string]string {
	if params == nil {
		params = make(map[string]string)
	}
	params["Strict entries"] = fmt.Sprint(p.policy.StrictEntries)
	params["Fail on mismatch"] = fmt.Sprint(p.policy.FailOnChecksumMismatch)
	if p.feed != nil {
		params["Feed"] = fmt.Sprintf("ws://%s%s", p.feed.Addr(), server.DefaultPath)
	}
	return params
}
