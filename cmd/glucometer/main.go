// Glucometer reads Abbott FreeStyle blood glucose meters over a serial link.
//
// It sends the memory dump command, validates the dump against its checksum
// trailer, and stores the readings in memory or PostgreSQL. Committed
// readings can be streamed to other machines as a WebSocket feed that is
// advertised over mDNS.
//
// Usage:
//
//	glucometer [command] [flags]
//
// See 'glucometer --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "glucometer",
	Short: "FreeStyle glucose meter reader",
	Long: `Read Abbott FreeStyle glucose meters over a serial cable.

Each read sends the memory dump command, checks the device and firmware,
collects every stored result and verifies the dump checksum before anything
is written to the store. Readings already stored are skipped, so reading
the same meter twice is safe.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $"+config.PathEnvVar+" or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset unless $"+logging.LogLevelEnvVar+" is set")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("glucometer %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
