package enrich

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"docintel/core"
)

// IPRangeProcessor tags IPv4 observables falling inside configured CIDR
// reference ranges with the range's tag set. Ranges are loaded once per
// invocation; the set is small enough that linear containment tests suffice.
type IPRangeProcessor struct {
	ranges core.IPRangeStorage
	logger *zap.SugaredLogger
}

// NewIPRangeProcessor creates the IP-range tagging processor
func NewIPRangeProcessor(ranges core.IPRangeStorage, logger *zap.SugaredLogger) *IPRangeProcessor {
	return &IPRangeProcessor{ranges: ranges, logger: logger}
}

func (p *IPRangeProcessor) Name() string { return "iprange" }

// Process appends each matching range's tags to every contained IPv4
// observable. Tag appends are idempotent, so re-running the processor over
// the same batch leaves the tag sets unchanged.
func (p *IPRangeProcessor) Process(ctx context.Context, observables []*core.Observable) error {
	ranges, err := p.ranges.GetAllRanges(ctx)
	if err != nil {
		return fmt.Errorf("load ip ranges: %w", err)
	}
	if len(ranges) == 0 {
		return nil
	}

	networks := make([]*net.IPNet, 0, len(ranges))
	tagSets := make([][]string, 0, len(ranges))
	for _, r := range ranges {
		network, err := r.Network()
		if err != nil {
			p.logger.Warnw("Skipping malformed ip range", "range", r.ID, "error", err)
			continue
		}
		networks = append(networks, network)
		tagSets = append(tagSets, r.Tags)
	}

	for _, obs := range observables {
		if obs.Type != core.ObservableTypeIPv4 {
			continue
		}
		ip := net.ParseIP(obs.Value)
		if ip == nil {
			continue
		}
		for i, network := range networks {
			if network.Contains(ip) {
				obs.AddTags(tagSets[i])
			}
		}
	}

	return nil
}
