package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/glucometer/internal/dialect"
	"github.com/muurk/glucometer/internal/transport"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List supported protocol dialects and meters",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := dialect.LoadCatalog()
		if err != nil {
			return err
		}

		for _, d := range catalog.List() {
			fmt.Printf("%s\n", d.Name)
			if d.Description != "" {
				fmt.Printf("   %s\n", d.Description)
			}
			fmt.Printf("   Command:     %q\n", d.Command)
			fmt.Printf("   Baud rate:   %d\n", d.BaudRate)
			fmt.Printf("   Max entries: %d\n", d.MaxEntries)
			fmt.Printf("   Devices:\n")
			for _, e := range d.Devices.Entries() {
				fmt.Printf("     %-16s %s\n", e.Key, e.Value)
			}
			fmt.Printf("   Firmware:\n")
			for _, e := range d.Firmware.Entries() {
				fmt.Printf("     %-16q %s\n", e.Key, e.Value)
			}
			fmt.Println()
		}
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(portsCmd)
}
