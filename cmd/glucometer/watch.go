package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/muurk/glucometer/internal/discovery"
	"github.com/muurk/glucometer/internal/server"
	"github.com/muurk/glucometer/internal/store"
	"github.com/muurk/glucometer/internal/ui"
)

var (
	watchInstance string
	watchTimeout  time.Duration
	watchHistory  bool
	watchCount    int
)

var watchCmd = &cobra.Command{
	Use:   "watch [feed-url]",
	Short: "Print readings from a live feed",
	Long: `Connect to a feed served by 'glucometer read --feed' and print readings
as they are committed. Without a URL the feed is discovered over mDNS.`,
	Example: `  # Discover the first feed on the network
  glucometer watch

  # Discover a feed by instance name
  glucometer watch --instance kitchen-pi

  # Connect directly and print stored history first
  glucometer watch ws://192.168.1.20:8470/feed --history`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchInstance, "instance", "", "mDNS instance name to wait for")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", discovery.DefaultScanTimeout, "Discovery timeout")
	watchCmd.Flags().BoolVar(&watchHistory, "history", false, "Print stored readings before live ones")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Exit after this many live readings (0 = run until interrupted)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List feeds advertised on the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := discovery.NewScanner()
		scanner.Timeout = watchTimeout

		fmt.Printf("Scanning for feeds (timeout: %s)...\n\n", scanner.Timeout)
		feeds, err := scanner.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(feeds) == 0 {
			fmt.Println("No feeds found.")
			fmt.Println("\nTroubleshooting:")
			fmt.Println("  - Start a feed with 'glucometer read --feed' or 'glucometer serve'")
			fmt.Println("  - Multicast DNS may be blocked between network segments")
			fmt.Println("  - Try increasing --timeout")
			return nil
		}

		fmt.Printf("Found %d feed(s):\n\n", len(feeds))
		for i, f := range feeds {
			fmt.Printf("%d. %s\n", i+1, f.Instance)
			fmt.Printf("   URL:      %s\n", f.URL())
			if v := f.GetMetadata("version"); v != "" {
				fmt.Printf("   Version:  %s\n", v)
			}
			if d := f.Dialects(); len(d) > 0 {
				fmt.Printf("   Dialects: %v\n", d)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&watchTimeout, "timeout", discovery.DefaultScanTimeout, "Discovery timeout")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feedURL := ""
	if len(args) == 1 {
		feedURL = args[0]
	} else {
		scanner := discovery.NewScanner()
		scanner.Timeout = watchTimeout
		feed, err := scanner.WaitForFeed(ctx, watchInstance)
		if err != nil {
			return err
		}
		feedURL = feed.URL()
	}

	printer := ui.NewPrinter(os.Stdout)

	if watchHistory {
		rows, err := fetchHistory(ctx, feedURL)
		if err != nil {
			return err
		}
		for _, m := range rows {
			printer.PrintReading(m.Timestamp, m.Glucose, m.Device, "")
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", feedURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	printer.Println(ui.StepNoteStyle.Render("  Watching " + feedURL))
	seen := 0
	for {
		var ev server.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("feed read failed: %w", err)
		}
		printer.PrintReading(ev.Timestamp, ev.Glucose, ev.Device, shortID(ev.Session))

		seen++
		if watchCount > 0 && seen >= watchCount {
			return nil
		}
	}
}

// fetchHistory loads /measurements from the host serving feedURL
func fetchHistory(ctx context.Context, feedURL string) ([]store.Measurement, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/measurements"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch history: %s", resp.Status)
	}

	var rows []store.Measurement
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return rows, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
