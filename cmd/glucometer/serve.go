package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/ui"
)

var serveOpts pipelineOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored readings without reading a meter",
	Long: `Start the feed server on its own to browse stored history.

GET /measurements returns everything in the store. The /feed endpoint accepts
subscribers but only carries readings committed by this process, so use
'glucometer read --feed' for live readings.`,
	Example: `  glucometer serve --store postgres --dsn postgres://localhost/glucose --listen :8470`,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.storeDriver, "store", "", "Store driver override (memory, postgres)")
	serveCmd.Flags().StringVar(&serveOpts.storeDSN, "dsn", "", "PostgreSQL connection string override")
	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "", "Feed listen address override")
	serveCmd.Flags().BoolVar(&serveOpts.noAdvertise, "no-advertise", false, "Do not advertise the feed over mDNS")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	serveOpts.feed = true
	p, err := newPipeline(ctx, reg, serveOpts)
	if err != nil {
		return err
	}
	defer p.Close()

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Feed server", cmd.CommandPath(), map[string]string{
		"Feed":  fmt.Sprintf("ws://%s/feed", p.feed.Addr()),
		"Store": storeName(reg, serveOpts),
	})

	<-ctx.Done()
	return nil
}

func storeName(reg *config.Registry, opts pipelineOptions) string {
	if opts.storeDriver != "" {
		return opts.storeDriver
	}
	return reg.Store.Driver
}
