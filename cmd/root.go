package cmd

import (
	"fmt"
	"os"

	"github.com/commlink-dev/commlink/cmd/perf"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "commlink",
		Short: "point-to-point message transport",
		Long: fmt.Sprintf(`commlink (v%s)

A point-to-point message-passing transport over TCP for distributed
workers: per-peer FIFO delivery, sharded worker pools and length-prefixed
framing.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of commlink",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("commlink v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
