// Package cmd implements the command-line interface for commlink.
//
// The package is organized into subpackages:
//
//   - perf: loopback benchmark exercising the full sender/receiver path
//   - util: shared utilities for flag processing and configuration
//     (internal use)
//
// See commlink -help for a list of all commands.
package cmd
