package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/transport"
	"github.com/muurk/glucometer/internal/ui"
)

var (
	replayDialect string
	replayShow    bool
	replayOpts    pipelineOptions
)

var replayCmd = &cobra.Command{
	Use:   "replay <transcript>...",
	Short: "Run recorded meter transcripts through the protocol engine",
	Long: `Feed recorded serial transcripts through the same session engine used
for live reads. Each file is treated as one meter; the memory command the
session writes is discarded.

Useful for checking captures, testing a store, or seeding a feed.`,
	Example: `  # Check a capture
  glucometer replay dump.txt --show

  # Load captures into PostgreSQL
  glucometer replay *.txt --store postgres --dsn postgres://localhost/glucose`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayDialect, "dialect", "abfr", "Dialect of the transcripts")
	replayCmd.Flags().BoolVar(&replayShow, "show", false, "List the store contents afterwards")
	addPipelineFlags(replayCmd, &replayOpts)

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, reg, replayOpts)
	if err != nil {
		return err
	}
	defer p.Close()

	d, ok := p.catalog.Get(replayDialect)
	if !ok {
		return fmt.Errorf("unknown dialect %q", replayDialect)
	}

	targets := make([]*target, 0, len(args))
	for _, path := range args {
		path := path
		targets = append(targets, &target{
			name:    filepath.Base(path),
			dialect: d,
			open: func(ctx context.Context) (transport.Transport, error) {
				return transport.OpenReplay(ctx, path)
			},
		})
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Transcript replay", cmd.CommandPath(), p.policyParams(map[string]string{
		"Dialect": d.Name,
		"Files":   fmt.Sprint(len(args)),
	}))

	runErr := p.run(ctx, targets, os.Stdout, false)

	if replayShow {
		rows, err := p.store.List(ctx)
		if err != nil {
			return err
		}
		printer.Newline()
		for _, m := range rows {
			printer.PrintReading(m.Timestamp, m.Glucose, m.Device, "")
		}
	}
	return runErr
}
