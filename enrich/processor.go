// Package enrich applies post-extraction tagging to resolved observables.
package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"docintel/core"
	"docintel/metrics"
)

// =============================================================================
// Post-Processor Chain
// =============================================================================

// PostProcessor is one enrichment step over a batch of resolved observables.
// Processors append tags; they never mutate values, types or status.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, observables []*core.Observable) error
}

// Chain runs post-processors sequentially in registration order over the same
// batch. Sequential execution is what keeps cross-processor tag appends safe.
type Chain struct {
	processors []PostProcessor
	logger     *zap.SugaredLogger
}

// NewChain creates a post-processor chain
func NewChain(logger *zap.SugaredLogger, processors ...PostProcessor) *Chain {
	return &Chain{processors: processors, logger: logger}
}

// Process runs every processor over the batch. A processor failure aborts the
// chain; earlier processors' tags stay applied.
func (c *Chain) Process(ctx context.Context, observables []*core.Observable) error {
	if len(observables) == 0 {
		return nil
	}

	for _, p := range c.processors {
		if err := p.Process(ctx, observables); err != nil {
			metrics.PostProcessorRuns.WithLabelValues(p.Name(), "error").Inc()
			return fmt.Errorf("post-processor %s: %w", p.Name(), err)
		}
		metrics.PostProcessorRuns.WithLabelValues(p.Name(), "success").Inc()
		c.logger.Debugw("Post-processor completed", "processor", p.Name(), "batch", len(observables))
	}

	return nil
}
