package index

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docintel/core"
	"docintel/metrics"
)

// DefaultPassInterval is the sleep between indexing passes. Aggregate
// metadata is eventually consistent; staleness self-heals on the next pass.
const DefaultPassInterval = 24 * time.Hour

// ContinuousIndexer periodically refreshes aggregate index metadata for all
// sources and tags. A failed individual update is logged and the pass moves
// on; there is no retry before the next pass.
type ContinuousIndexer struct {
	sources  core.SourceStorage
	tags     core.TagStorage
	client   core.IndexClient
	interval time.Duration
	logger   *zap.SugaredLogger
}

// NewContinuousIndexer creates an indexer. interval <= 0 selects
// DefaultPassInterval.
func NewContinuousIndexer(
	sources core.SourceStorage,
	tags core.TagStorage,
	client core.IndexClient,
	interval time.Duration,
	logger *zap.SugaredLogger,
) *ContinuousIndexer {
	if interval <= 0 {
		interval = DefaultPassInterval
	}
	return &ContinuousIndexer{
		sources:  sources,
		tags:     tags,
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Run executes passes until the context is cancelled. Cancellation is
// checked between passes; a pass in flight runs to completion.
func (i *ContinuousIndexer) Run(ctx context.Context) error {
	i.logger.Infow("Continuous indexer started", "interval", i.interval)

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		i.Pass(ctx)

		select {
		case <-ctx.Done():
			i.logger.Infow("Continuous indexer stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Pass walks all sources and tags once, updating each index entry. Exported
// so the CLI can force a refresh on demand.
func (i *ContinuousIndexer) Pass(ctx context.Context) {
	start := time.Now()
	updated, failed := 0, 0

	sources, err := i.sources.GetAllSources(ctx)
	if err != nil {
		i.logger.Errorw("Failed to load sources for indexing", "error", err)
	} else {
		for _, source := range sources {
			if err := i.client.UpdateSource(ctx, source); err != nil {
				metrics.IndexerUpdates.WithLabelValues("source", "error").Inc()
				i.logger.Warnw("Failed to index source", "source", source.ID, "error", err)
				failed++
				continue
			}
			metrics.IndexerUpdates.WithLabelValues("source", "success").Inc()
			updated++
		}
	}

	tags, err := i.tags.GetAllTags(ctx)
	if err != nil {
		i.logger.Errorw("Failed to load tags for indexing", "error", err)
	} else {
		for _, tag := range tags {
			if err := i.client.UpdateTag(ctx, tag); err != nil {
				metrics.IndexerUpdates.WithLabelValues("tag", "error").Inc()
				i.logger.Warnw("Failed to index tag", "tag", tag.ID, "error", err)
				failed++
				continue
			}
			metrics.IndexerUpdates.WithLabelValues("tag", "success").Inc()
			updated++
		}
	}

	i.logger.Infow("Indexing pass completed",
		"updated", updated, "failed", failed, "duration", time.Since(start))
}
