package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docintel/core"
)

// newExtractCmd creates the 'extract' command
func newExtractCmd() *cobra.Command {
	var enrichBatch bool

	cmd := &cobra.Command{
		Use:   "extract <document-id>",
		Short: "Extract observables from a registered document",
		Long: `Run observable extraction over every file of a document, apply the
whitelist, optionally run the enrichment chain, and persist the results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := app.Catalog.GetDocument(ctx, args[0])
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return fmt.Errorf("%w: document %s", ErrLookupFailed, args[0])
				}
				return err
			}
			files, err := app.Catalog.GetDocumentFiles(ctx, doc.ID)
			if err != nil {
				return err
			}

			result, err := app.Engine.ExtractDocument(ctx, app.ExecCtx, doc, files)
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}

			if enrichBatch {
				if err := app.Chain.Process(ctx, result.New); err != nil {
					return fmt.Errorf("enrichment failed: %w", err)
				}
			}

			persisted := 0
			for _, obs := range result.Observables {
				err := app.Observables.CreateObservable(ctx, obs)
				if errors.Is(err, core.ErrDuplicate) {
					continue
				}
				if err != nil {
					return fmt.Errorf("persist observable %s: %w", obs.Key(), err)
				}
				persisted++
			}

			if outputJSON {
				return outputAsJSON(result)
			}

			headerColor.Printf("Document %s\n", doc.ID)
			printInfo("Files read: %d, skipped: %d", result.FilesRead, result.FilesSkipped)
			printInfo("Observables: %d total, %d new, %d persisted",
				len(result.Observables), len(result.New), persisted)
			for _, obs := range result.New {
				fmt.Printf("  %-6s %s\n", obs.Type, obs.Value)
			}
			if len(result.TagLabels) > 0 {
				printInfo("Tags: %v", result.TagLabels)
			}
			printSuccess("Extraction complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&enrichBatch, "enrich", true, "Run the enrichment chain over new observables")

	return cmd
}
