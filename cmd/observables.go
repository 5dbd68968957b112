package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docintel/core"
)

// newObservablesCmd creates the observables command with all subcommands
func newObservablesCmd() *cobra.Command {
	obsCmd := &cobra.Command{
		Use:   "observables",
		Short: "Review extracted observables",
		Long:  "List extracted observables and move them through the review lifecycle.",
	}

	obsCmd.AddCommand(newObservablesListCmd())
	obsCmd.AddCommand(newObservablesReviewCmd("accept", core.ObservableStatusNew, "Return a flagged or rejected observable to the active set"))
	obsCmd.AddCommand(newObservablesReviewCmd("flag", core.ObservableStatusFlagged, "Flag an observable for closer review"))
	obsCmd.AddCommand(newObservablesReviewCmd("reject", core.ObservableStatusRejected, "Reject an observable as noise"))

	return obsCmd
}

func newObservablesListCmd() *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List observables, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var statuses []core.ObservableStatus
			if statusFilter != "" {
				status := core.ObservableStatus(statusFilter)
				if !status.IsValid() {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}

			all, err := app.Observables.ListObservables(ctx, statuses, limit, 0)
			if err != nil {
				return fmt.Errorf("list observables: %w", err)
			}

			if outputJSON {
				return outputAsJSON(all)
			}

			headerColor.Printf("%-38s %-6s %-12s %s\n", "ID", "TYPE", "STATUS", "VALUE")
			for _, obs := range all {
				fmt.Printf("%-38s %-6s %-12s %s\n", obs.ID, obs.Type, obs.Status, obs.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (new, whitelisted, rejected, flagged)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of observables to list")

	return cmd
}

func newObservablesReviewCmd(verb string, target core.ObservableStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <observable-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			obs, err := app.Observables.GetObservable(ctx, args[0])
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: observable %s", ErrLookupFailed, args[0])
			}
			if err != nil {
				return err
			}

			if err := obs.TransitionTo(target, app.ExecCtx.AccountID); err != nil {
				return err
			}
			if err := app.Observables.UpdateObservable(ctx, obs); err != nil {
				return fmt.Errorf("persist observable %s: %w", obs.ID, err)
			}
			printSuccess("Observable %s is now %s", obs.ID, obs.Status)
			return nil
		},
	}
}
