package cmd

import (
	"context"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newIndexCmd creates the 'index' command
func newIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the search index",
	}

	indexCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Re-index all sources and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Refreshing index"
				s.Start()
			}

			app.Indexer.Pass(ctx)

			if s != nil {
				s.Stop()
			}
			printSuccess("Index refresh complete")
			return nil
		},
	})

	return indexCmd
}
