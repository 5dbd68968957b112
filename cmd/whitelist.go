package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"docintel/core"
)

// NewWhitelistCmd creates the whitelist command with all subcommands
func NewWhitelistCmd() *cobra.Command {
	whitelistCmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the known-benign observable whitelist",
		Long:  "Import warning lists, add individual entries and check observables against the whitelist.",
	}

	whitelistCmd.AddCommand(newWhitelistImportCmd())
	whitelistCmd.AddCommand(newWhitelistAddCmd())
	whitelistCmd.AddCommand(newWhitelistCheckCmd())
	whitelistCmd.AddCommand(newWhitelistStatsCmd())

	return whitelistCmd
}

// importResult is the per-URL outcome reported by 'whitelist import'
type importResult struct {
	URL      string `json:"url"`
	ListName string `json:"list_name"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

func newWhitelistImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <url>...",
		Short: "Import one or more warning lists by URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summaries := make([]importResult, 0, len(args))
			for _, listURL := range args {
				var s *spinner.Spinner
				if !outputJSON && !quiet {
					s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
					s.Suffix = fmt.Sprintf(" Importing %s", listURL)
					s.Start()
				}

				summary, err := app.Importer.ImportURL(ctx, listURL)

				if s != nil {
					s.Stop()
				}
				if err != nil {
					return fmt.Errorf("import %s: %w", listURL, err)
				}

				summaries = append(summaries, importResult{
					URL:      listURL,
					ListName: summary.ListName,
					Imported: summary.Imported,
					Skipped:  summary.Skipped,
					Failed:   summary.Failed,
				})

				if !outputJSON {
					printSuccess("%s: imported %d, skipped %d, failed %d",
						summary.ListName, summary.Imported, summary.Skipped, summary.Failed)
				}
			}

			if outputJSON {
				return outputAsJSON(summaries)
			}
			return nil
		},
	}
}

func newWhitelistAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <type> <value>",
		Short: "Whitelist a single observable",
		Long:  "Whitelist a single observable value. Supported types: ipv4, ipv6, fqdn, url.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			obsType := core.ObservableType(args[0])
			if !obsType.IsValid() || obsType == core.ObservableTypeFile {
				return fmt.Errorf("unsupported observable type %q", args[0])
			}

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Whitelist.AddWhitelistedObservable(ctx, obsType, args[1]); err != nil {
				return fmt.Errorf("whitelist %s %s: %w", obsType, args[1], err)
			}
			printSuccess("Whitelisted %s %s", obsType, args[1])
			return nil
		},
	}
}

func newWhitelistCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <type> <value>",
		Short: "Check whether an observable is whitelisted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			obsType := core.ObservableType(args[0])
			if !obsType.IsValid() {
				return fmt.Errorf("unsupported observable type %q", args[0])
			}

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			whitelisted, err := app.Whitelist.IsWhitelisted(ctx, obsType, args[1])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrLookupFailed, err)
			}

			if outputJSON {
				return outputAsJSON(map[string]interface{}{
					"type":        obsType,
					"value":       args[1],
					"whitelisted": whitelisted,
				})
			}
			if whitelisted {
				warningColor.Printf("%s %s is whitelisted\n", obsType, args[1])
			} else {
				printInfo("%s %s is not whitelisted", obsType, args[1])
			}
			return nil
		},
	}
}

func newWhitelistStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show observable counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			counts, err := app.Observables.CountByStatus(ctx)
			if err != nil {
				return fmt.Errorf("count observables: %w", err)
			}

			if outputJSON {
				return outputAsJSON(counts)
			}

			headerColor.Println("Observables by status")
			for _, status := range []core.ObservableStatus{
				core.ObservableStatusNew,
				core.ObservableStatusWhitelisted,
				core.ObservableStatusRejected,
				core.ObservableStatusFlagged,
			} {
				fmt.Printf("  %-12s %d\n", status, counts[status])
			}
			return nil
		},
	}
}
