package enrich

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"docintel/core"
	"docintel/metrics"
)

// DefaultTagPrefixes selects which FQDN tags propagate to URLs that embed
// the domain: the internal classification namespace and external feed labels.
var DefaultTagPrefixes = []string{"classification:", "feed:"}

// fqdnCacheSize bounds the per-processor lookup cache. Batches from a single
// document rarely reference more than a few hundred distinct hosts.
const fqdnCacheSize = 4096

// FQDNURLProcessor propagates tags from known FQDN nodes onto URL
// observables that embed the domain. A host with no matching node is a
// normal negative outcome, cached like any other lookup.
type FQDNURLProcessor struct {
	graph    core.GraphClient
	prefixes []string
	cache    *lru.Cache[string, []string]
	logger   *zap.SugaredLogger
}

// NewFQDNURLProcessor creates the tagged-FQDN-in-URL processor. Passing no
// prefixes selects DefaultTagPrefixes.
func NewFQDNURLProcessor(graph core.GraphClient, prefixes []string, logger *zap.SugaredLogger) (*FQDNURLProcessor, error) {
	if len(prefixes) == 0 {
		prefixes = DefaultTagPrefixes
	}
	cache, err := lru.New[string, []string](fqdnCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create fqdn lookup cache: %w", err)
	}
	return &FQDNURLProcessor{
		graph:    graph,
		prefixes: prefixes,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (p *FQDNURLProcessor) Name() string { return "fqdnurl" }

func (p *FQDNURLProcessor) Process(ctx context.Context, observables []*core.Observable) error {
	for _, obs := range observables {
		if obs.Type != core.ObservableTypeURL {
			continue
		}

		parsed, err := url.Parse(obs.Value)
		if err != nil {
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		if host == "" || isNumericHost(host) {
			continue
		}

		tags, err := p.lookupTags(ctx, host)
		if err != nil {
			return fmt.Errorf("resolve fqdn %s: %w", host, err)
		}
		obs.AddTags(tags)
	}
	return nil
}

// lookupTags resolves the prefix-filtered tag set of a host, caching both
// positive and negative results.
func (p *FQDNURLProcessor) lookupTags(ctx context.Context, host string) ([]string, error) {
	if tags, ok := p.cache.Get(host); ok {
		metrics.CacheHits.WithLabelValues("fqdn").Inc()
		return tags, nil
	}
	metrics.CacheMisses.WithLabelValues("fqdn").Inc()

	node, err := p.graph.FindNode(ctx, core.ObservableTypeFQDN, host)
	if err != nil {
		return nil, err
	}

	var tags []string
	if node != nil {
		for _, tag := range node.Tags {
			for _, prefix := range p.prefixes {
				if strings.HasPrefix(tag, prefix) {
					tags = append(tags, tag)
					break
				}
			}
		}
	}

	p.cache.Add(host, tags)
	return tags, nil
}

// isNumericHost reports whether a host is made of digits and dots only, the
// heuristic for an address literal rather than a domain.
func isNumericHost(host string) bool {
	for _, r := range host {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
