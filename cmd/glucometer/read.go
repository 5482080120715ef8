package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/session"
	"github.com/muurk/glucometer/internal/transport"
	"github.com/muurk/glucometer/internal/ui"
)

// defaultSerialIdle applies to serial reads when no idle timeout is configured
const defaultSerialIdle = 30 * time.Second

var (
	readPort    string
	readDialect string
	readBaud    int
	readPlain   bool
	readHold    bool
	readOpts    pipelineOptions
)

var readCmd = &cobra.Command{
	Use:   "read [device...]",
	Short: "Read one or more meters",
	Long: `Read the memory of one or more meters in parallel.

Devices are taken from the config file by name; with no names every
configured device is read. Use --port and --dialect to read a meter that is
not configured.

A dump is stored only after its checksum trailer verifies. Readings already
in the store are counted as duplicates and not written again.`,
	Example: `  # Read every configured meter
  glucometer read

  # Read one configured meter and publish the readings live
  glucometer read kitchen --feed

  # Read an unconfigured meter
  glucometer read --port /dev/ttyUSB0 --dialect abfr

  # Store in PostgreSQL
  glucometer read --store postgres --dsn postgres://localhost/glucose`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVar(&readPort, "port", "", "Serial port of an unconfigured meter")
	readCmd.Flags().StringVar(&readDialect, "dialect", "abfr", "Dialect used with --port")
	readCmd.Flags().IntVar(&readBaud, "baud", 0, "Baud rate override used with --port")
	readCmd.Flags().BoolVar(&readPlain, "plain", false, "Print state changes instead of the live display")
	readCmd.Flags().BoolVar(&readHold, "hold", false, "Keep the feed running after the reads until interrupted")
	addPipelineFlags(readCmd, &readOpts)

	rootCmd.AddCommand(readCmd)
}

// addPipelineFlags registers the store, feed and policy flags
func addPipelineFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.storeDriver, "store", "", "Store driver override (memory, postgres)")
	cmd.Flags().StringVar(&opts.storeDSN, "dsn", "", "PostgreSQL connection string override")
	cmd.Flags().BoolVar(&opts.feed, "feed", false, "Serve committed readings as a WebSocket feed")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Feed listen address override")
	cmd.Flags().BoolVar(&opts.noAdvertise, "no-advertise", false, "Do not advertise the feed over mDNS")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail the read on a malformed result line")
	cmd.Flags().BoolVar(&opts.failMismatch, "fail-on-mismatch", false, "Fail the read on a checksum mismatch")
	cmd.Flags().DurationVar(&opts.idle, "idle-timeout", 0, "Fail a read that receives nothing for this long")
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, reg, readOpts)
	if err != nil {
		return err
	}
	defer p.Close()
	if p.idle == 0 {
		p.idle = defaultSerialIdle
	}

	if err := reg.Validate(p.catalog.Names()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	targets, err := readTargets(reg, p.catalog, args)
	if err != nil {
		return err
	}

	interactive := !readPlain && ui.IsTerminal(os.Stdout)
	printer := ui.NewPrinter(os.Stdout)
	params := map[string]string{"Devices": fmt.Sprint(len(targets))}
	if len(targets) == 1 {
		for k, v := range targets[0].params {
			params[k] = v
		}
	}
	printer.PrintHeader("Meter read", cmd.CommandPath(), p.policyParams(params))

	runErr := p.run(ctx, targets, os.Stdout, interactive)

	if readPort == "" {
		saved := false
		for _, t := range targets {
			if snap := t.driver.Snapshot(); snap.State == session.Done {
				reg.RecordRead(t.name, snap.Result.Inserted)
				saved = true
			}
		}
		if saved {
			if err := reg.Save(); err != nil {
				logging.Warn("Failed to record read times", zap.Error(err))
			}
		}
	}

	if readHold && p.feed != nil && ctx.Err() == nil {
		printer.Println(ui.StepNoteStyle.Render("  Feed running, press ctrl+c to stop"))
		<-ctx.Done()
	}
	return runErr
}

// readTargets resolves the meters named on the command line
func readTargets(reg *config.Registry, catalog *dialect.Catalog, names []string) ([]*target, error) {
	if readPort != "" {
		if len(names) > 0 {
			return nil, fmt.Errorf("--port cannot be combined with device names")
		}
		d, ok := catalog.Get(readDialect)
		if !ok {
			return nil, fmt.Errorf("unknown dialect %q", readDialect)
		}
		return []*target{serialTarget(readPort, d, readPort, readBaud)}, nil
	}

	if len(names) == 0 {
		names = reg.DeviceNames()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no devices configured; add one with 'glucometer config add-device' or use --port")
	}

	targets := make([]*target, 0, len(names))
	for _, name := range names {
		dev := reg.GetDevice(name)
		if dev == nil {
			return nil, fmt.Errorf("unknown device %q", name)
		}
		d, ok := catalog.Get(dev.Dialect)
		if !ok {
			return nil, fmt.Errorf("device %q: unknown dialect %q", name, dev.Dialect)
		}
		targets = append(targets, serialTarget(name, d, dev.Port, dev.BaudRate))
	}
	return targets, nil
}

func serialTarget(name string, d *dialect.Dialect, port string, baud int) *target {
	if baud == 0 {
		baud = d.BaudRate
	}
	return &target{
		name:    name,
		dialect: d,
		params: map[string]string{
			"Port":    port,
			"Dialect": d.Name,
			"Baud":    strconv.Itoa(baud),
		},
		open: func(ctx context.Context) (transport.Transport, error) {
			return transport.OpenSerial(ctx, transport.SerialConfig{Port: port, BaudRate: baud})
		},
	}
}
