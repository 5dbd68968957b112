// Package cmd provides the docintel command-line interface.
package cmd

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docintel/core"
)

// Global flags shared by every command
var (
	outputJSON bool
	noColor    bool
	quiet      bool
)

// ErrLookupFailed marks authorization and lookup failures that exit with
// code 1 rather than the handled-error code 0.
var ErrLookupFailed = errors.New("lookup failed")

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docintel",
		Short: "Threat-intelligence document ingestion pipeline",
		Long: `docintel extracts observables from registered documents, polls external
feeds for new submissions, maintains the known-benign whitelist and keeps
aggregate search metadata fresh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(NewFeedsCmd())
	rootCmd.AddCommand(NewWhitelistCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newObservablesCmd())

	return rootCmd
}

// Execute runs the CLI. Handled errors exit 0 with a message; authorization
// and lookup failures exit 1.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, ErrLookupFailed) || errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrNoAutomationAccount) {
			os.Exit(1)
		}
		os.Exit(0)
	}
}
