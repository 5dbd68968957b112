package feeds

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docintel/core"
	"docintel/metrics"
)

// =============================================================================
// Feed Importer Runner
// =============================================================================

// DefaultTickInterval is how often the runner re-evaluates feed schedules
const DefaultTickInterval = time.Minute

// Runner polls enabled feeds on a fixed tick. Each tick evaluates every
// enabled feed independently: a feed whose collection delay has elapsed gets
// one collection pass, and a failure in one feed never aborts the others.
type Runner struct {
	feeds       core.FeedStorage
	submissions core.SubmissionStorage
	registry    *Registry
	publisher   core.Publisher
	execCtx     *core.ExecutionContext
	interval    time.Duration
	logger      *zap.SugaredLogger
}

// NewRunner creates a feed runner. interval <= 0 selects DefaultTickInterval.
func NewRunner(
	feeds core.FeedStorage,
	submissions core.SubmissionStorage,
	registry *Registry,
	publisher core.Publisher,
	execCtx *core.ExecutionContext,
	interval time.Duration,
	logger *zap.SugaredLogger,
) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{
		feeds:       feeds,
		submissions: submissions,
		registry:    registry,
		publisher:   publisher,
		execCtx:     execCtx,
		interval:    interval,
		logger:      logger,
	}
}

// Run executes ticks until the context is cancelled. Cancellation is checked
// between ticks; a tick in flight runs to completion.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Infow("Feed runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)

		select {
		case <-ctx.Done():
			r.logger.Infow("Feed runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick evaluates every enabled feed once. Exported so the CLI can trigger a
// single collection pass on demand.
func (r *Runner) Tick(ctx context.Context) {
	tickStart := time.Now().UTC()

	enabled, err := r.feeds.GetEnabledFeeds(ctx)
	if err != nil {
		r.logger.Errorw("Failed to load enabled feeds", "error", err)
		return
	}

	for _, feed := range enabled {
		if !feed.CollectionDue(tickStart) {
			continue
		}
		if err := r.collectFeed(ctx, feed, tickStart); err != nil {
			// Per-feed failure boundary: log and move on to the next feed.
			metrics.FeedCollections.WithLabelValues(feed.Name, "error").Inc()
			r.logger.Errorw("Feed collection failed", "feed", feed.ID, "name", feed.Name, "error", err)
			continue
		}
		metrics.FeedCollections.WithLabelValues(feed.Name, "success").Inc()
	}
}

// collectFeed runs one collection pass for a due feed. LastCollection is
// advanced to the tick's start time only after the whole pass succeeds, so a
// failed pass is retried on the next tick.
func (r *Runner) collectFeed(ctx context.Context, feed *core.Feed, tickStart time.Time) error {
	importer, err := r.registry.Build(feed, r.logger)
	if err != nil {
		// Construction failure is a configuration problem; park the feed in
		// error status so it stops being scheduled until an operator fixes it.
		if statusErr := r.feeds.UpdateFeedStatus(ctx, feed.ID, core.FeedStatusError); statusErr != nil {
			r.logger.Errorw("Failed to mark feed as errored", "feed", feed.ID, "error", statusErr)
		}
		return fmt.Errorf("construct importer: %w", err)
	}

	items, err := importer.Collect(ctx, feed)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	created := 0
	for _, item := range items {
		submitted, err := r.submitItem(ctx, feed, item)
		if err != nil {
			return fmt.Errorf("submit %s: %w", item.URL, err)
		}
		if submitted {
			created++
		} else {
			metrics.SubmissionsSkipped.WithLabelValues(feed.Name).Inc()
		}
	}

	if err := r.feeds.UpdateLastCollection(ctx, feed.ID, tickStart); err != nil {
		return fmt.Errorf("advance last collection: %w", err)
	}

	r.logger.Infow("Feed collected",
		"feed", feed.ID,
		"name", feed.Name,
		"items", len(items),
		"submitted", created,
		"skipped", len(items)-created)

	return nil
}

// submitItem persists and publishes one feed item unless its URL was already
// submitted. Returns whether a new submission was created.
func (r *Runner) submitItem(ctx context.Context, feed *core.Feed, item Item) (bool, error) {
	exists, err := r.submissions.ExistsByURL(ctx, item.URL)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	sub := core.NewSubmittedDocument(item.URL, r.execCtx.AccountID)
	sub.Title = item.Title
	sub.Priority = item.Priority
	feed.StampSubmission(sub)

	if err := r.submissions.CreateSubmission(ctx, sub); err != nil {
		return false, fmt.Errorf("persist submission: %w", err)
	}

	event := core.SubmissionEvent{
		SubmissionID: sub.ID,
		FeedID:       feed.ID,
		URL:          sub.URL,
		OccurredAt:   time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		// The submission stays persisted; downstream picks it up when the
		// daily reconciliation walks unprocessed submissions.
		r.logger.Errorw("Failed to publish submission event",
			"feed", feed.ID, "submission", sub.ID, "error", err)
	} else {
		metrics.SubmissionsPublished.WithLabelValues(feed.Name).Inc()
	}

	return true, nil
}
