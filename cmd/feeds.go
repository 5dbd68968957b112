package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docintel/core"
)

// maxImportFileSize bounds feed definition files read from disk
const maxImportFileSize = 10 * 1024 * 1024 // 10MB

// feedDefinition is the YAML import/export shape of a feed
type feedDefinition struct {
	ID              string            `yaml:"id,omitempty"`
	Name            string            `yaml:"name"`
	Kind            string            `yaml:"kind"`
	Description     string            `yaml:"description,omitempty"`
	CollectionDelay time.Duration     `yaml:"collection_delay"`
	Limit           int               `yaml:"limit,omitempty"`
	Settings        map[string]string `yaml:"settings,omitempty"`
}

// NewFeedsCmd creates the feeds command with all subcommands
func NewFeedsCmd() *cobra.Command {
	feedsCmd := &cobra.Command{
		Use:   "feeds",
		Short: "Manage document feeds",
		Long:  "Manage polled external feeds: list, enable, disable, trigger collection, import and export definitions.",
	}

	feedsCmd.AddCommand(newFeedsListCmd())
	feedsCmd.AddCommand(newFeedsShowCmd())
	feedsCmd.AddCommand(newFeedsEnableCmd())
	feedsCmd.AddCommand(newFeedsDisableCmd())
	feedsCmd.AddCommand(newFeedsCollectCmd())
	feedsCmd.AddCommand(newFeedsImportCmd())
	feedsCmd.AddCommand(newFeedsExportCmd())

	return feedsCmd
}

func newFeedsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			all, err := app.Feeds.GetAllFeeds(ctx)
			if err != nil {
				return fmt.Errorf("list feeds: %w", err)
			}

			if outputJSON {
				return outputAsJSON(all)
			}

			headerColor.Printf("%-38s %-20s %-10s %-10s %s\n", "ID", "NAME", "KIND", "STATUS", "LAST COLLECTION")
			for _, feed := range all {
				last := "never"
				if feed.LastCollection != nil {
					last = feed.LastCollection.UTC().Format(time.RFC3339)
				}
				fmt.Printf("%-38s %-20s %-10s %-10s %s\n", feed.ID, feed.Name, feed.Kind, feed.Status, last)
			}
			return nil
		},
	}
}

func newFeedsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <feed-id>",
		Short: "Show detailed feed configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			feed, err := app.Feeds.GetFeed(ctx, args[0])
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: feed %s", ErrLookupFailed, args[0])
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return outputAsJSON(feed)
			}

			headerColor.Printf("Feed %s\n", feed.ID)
			fmt.Printf("  Name:             %s\n", feed.Name)
			fmt.Printf("  Kind:             %s\n", feed.Kind)
			fmt.Printf("  Status:           %s\n", feed.Status)
			fmt.Printf("  Collection delay: %s\n", feed.CollectionDelay)
			fmt.Printf("  Limit:            %d\n", feed.Limit)
			if feed.LastCollection != nil {
				fmt.Printf("  Last collection:  %s\n", feed.LastCollection.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newFeedsEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <feed-id>",
		Short: "Enable a feed for scheduling",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setFeedStatus(args[0], core.FeedStatusEnabled) },
	}
}

func newFeedsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <feed-id>",
		Short: "Disable a feed",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setFeedStatus(args[0], core.FeedStatusDisabled) },
	}
}

func setFeedStatus(feedID string, status core.FeedStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	app, cleanup, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.Feeds.UpdateFeedStatus(ctx, feedID, status); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: feed %s", ErrLookupFailed, feedID)
		}
		return err
	}
	printSuccess("Feed %s is now %s", feedID, status)
	return nil
}

func newFeedsCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass over all due feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			app.Runner.Tick(ctx)
			printSuccess("Collection pass complete")
			return nil
		},
	}
}

func newFeedsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import feed definitions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("read definitions: %w", err)
			}
			if info.Size() > maxImportFileSize {
				return fmt.Errorf("definitions file exceeds %d bytes", maxImportFileSize)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read definitions: %w", err)
			}

			var defs []feedDefinition
			if err := yaml.Unmarshal(data, &defs); err != nil {
				return fmt.Errorf("parse definitions: %w", err)
			}

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			imported := 0
			for _, def := range defs {
				if def.Name == "" || def.Kind == "" {
					warningColor.Printf("Skipping definition without name or kind\n")
					continue
				}
				feed := &core.Feed{
					ID:              def.ID,
					Name:            def.Name,
					Kind:            def.Kind,
					Description:     def.Description,
					Status:          core.FeedStatusEnabled,
					CollectionDelay: def.CollectionDelay,
					Limit:           def.Limit,
					Settings:        def.Settings,
				}
				if feed.ID == "" {
					feed.ID = uuid.New().String()
				}
				if err := app.Feeds.CreateFeed(ctx, feed); err != nil {
					return fmt.Errorf("create feed %s: %w", def.Name, err)
				}
				imported++
			}
			printSuccess("Imported %d feeds", imported)
			return nil
		},
	}
}

func newFeedsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export feed definitions as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			all, err := app.Feeds.GetAllFeeds(ctx)
			if err != nil {
				return fmt.Errorf("list feeds: %w", err)
			}

			defs := make([]feedDefinition, 0, len(all))
			for _, feed := range all {
				defs = append(defs, feedDefinition{
					ID:              feed.ID,
					Name:            feed.Name,
					Kind:            feed.Kind,
					Description:     feed.Description,
					CollectionDelay: feed.CollectionDelay,
					Limit:           feed.Limit,
					Settings:        feed.Settings,
				})
			}
			return yaml.NewEncoder(os.Stdout).Encode(defs)
		},
	}
}
