package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/glucometer/internal/config"
	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/ui"
)

var (
	addPort    string
	addDialect string
	addBaud    int
	removeYes  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with an example device",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		fmt.Printf("Created %s\n", path)
		fmt.Println("Edit the example device or use 'glucometer config add-device'.")
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(reg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Print(string(out))

		catalog, err := dialect.LoadCatalog()
		if err != nil {
			return err
		}
		if err := reg.Validate(catalog.Names()); err != nil {
			fmt.Fprintf(os.Stderr, "\nWarning: %v\n", err)
		}
		return nil
	},
}

var configAddDeviceCmd = &cobra.Command{
	Use:     "add-device <name>",
	Short:   "Add or update a meter",
	Example: `  glucometer config add-device kitchen --port /dev/ttyUSB0 --dialect abfr`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := dialect.LoadCatalog()
		if err != nil {
			return err
		}
		if _, ok := catalog.Get(addDialect); !ok {
			return fmt.Errorf("unknown dialect %q (known: %v)", addDialect, catalog.Names())
		}

		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		reg.SetDevice(args[0], addPort, addDialect, addBaud)
		if err := reg.Validate(catalog.Names()); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Printf("Device %q saved\n", args[0])
		return nil
	},
}

var configRemoveDeviceCmd = &cobra.Command{
	Use:   "remove-device <name>",
	Short: "Remove a meter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if reg.GetDevice(args[0]) == nil {
			return fmt.Errorf("unknown device %q", args[0])
		}

		if !removeYes && !ui.Confirm(os.Stdin, os.Stdout, "Remove device "+args[0], []string{
			"The device entry and its last read time will be deleted",
			"Stored readings are kept",
		}) {
			return nil
		}

		reg.RemoveDevice(args[0])
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Printf("Device %q removed\n", args[0])
		return nil
	},
}

func init() {
	configAddDeviceCmd.Flags().StringVar(&addPort, "port", "", "Serial port (required)")
	configAddDeviceCmd.Flags().StringVar(&addDialect, "dialect", "abfr", "Protocol dialect")
	configAddDeviceCmd.Flags().IntVar(&addBaud, "baud", 0, "Baud rate override (0 = dialect default)")
	_ = configAddDeviceCmd.MarkFlagRequired("port")

	configRemoveDeviceCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")

	configCmd.AddCommand(configInitCmd, configPathCmd, configShowCmd, configAddDeviceCmd, configRemoveDeviceCmd)
	rootCmd.AddCommand(configCmd)
}
