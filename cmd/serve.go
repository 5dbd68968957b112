package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"docintel/bootstrap"
)

// newServeCmd creates the 'serve' command running the full pipeline
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion pipeline",
		Long: `Start the feed runner, continuous indexer and operational HTTP endpoint,
and run until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app, err := bootstrap.NewApp(ctx)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
}
