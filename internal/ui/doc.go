// Package ui renders terminal output for the glucometer CLI.
//
// Components are built on Lip Gloss and, for live output, Bubble Tea:
//
//   - Header: command banner with the parameters of the run
//   - Progress: per-device progress bar and step list driven by session snapshots
//   - Result: success, warning and failure boxes
//   - Tracker: a Bubble Tea program showing every device read in parallel
//
// A read command creates a Tracker, hands each session the Observer returned
// by Tracker.Observer, and runs the tracker until all sessions finish:
//
//	tracker := ui.NewTracker(os.Stdout, []string{"kitchen", "car"})
//	cfg.Observer = tracker.Observer("kitchen")
//	go func() { err := mgr.Run(ctx); tracker.Finish(err) }()
//	_ = tracker.Run()
//
// Logging is controlled by GLUCOMETER_LOG_LEVEL. When it is unset, zap is
// silent and only this package writes to the terminal.
package ui
