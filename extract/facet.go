package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"docintel/core"
)

// =============================================================================
// Facet-Driven Extractor
// =============================================================================

// facetRegexTimeout bounds user-supplied patterns against catastrophic
// backtracking.
const facetRegexTimeout = 2 * time.Second

// FacetExtractor emits candidate tag labels for one facet. Two paths feed
// it: an optional operator-supplied custom regex whose matches become
// candidate labels, and auto-extraction, where each tag under the facet is
// emitted when its label or any of its keywords occurs in the text.
//
// A malformed or timed-out custom regex is logged and skipped; extraction
// degrades to auto-extract only.
type FacetExtractor struct {
	facet  *core.Facet
	custom *regexp2.Regexp
	auto   []autoTag
	logger *zap.SugaredLogger
}

type autoTag struct {
	label   string
	pattern *regexp.Regexp
}

// NewFacetExtractor builds an extractor from the facet configuration and its
// known tags. Construction never fails: bad configuration is logged and the
// offending path disabled.
func NewFacetExtractor(facet *core.Facet, tags []*core.Tag, logger *zap.SugaredLogger) *FacetExtractor {
	fe := &FacetExtractor{facet: facet, logger: logger}

	if facet.ExtractionRegex != "" {
		re, err := regexp2.Compile(facet.ExtractionRegex, regexp2.IgnoreCase)
		if err != nil {
			logger.Warnw("Invalid custom extraction regex, facet degrades to auto-extract",
				"facet", facet.Title,
				"pattern", facet.ExtractionRegex,
				"error", err)
		} else {
			re.MatchTimeout = facetRegexTimeout
			fe.custom = re
		}
	}

	if facet.AutoExtract {
		for _, tag := range tags {
			pattern, err := keywordAlternation(tag.ExtractionKeywords())
			if err != nil {
				logger.Warnw("Failed to build keyword pattern for tag",
					"facet", facet.Title,
					"tag", tag.Label,
					"error", err)
				continue
			}
			fe.auto = append(fe.auto, autoTag{label: tag.Label, pattern: pattern})
		}
	}

	return fe
}

// Name implements FeatureExtractor
func (fe *FacetExtractor) Name() string { return fe.facet.Prefix }

// Extract implements FeatureExtractor
func (fe *FacetExtractor) Extract(text string) []string {
	var results []string

	if fe.custom != nil {
		results = append(results, fe.customMatches(text)...)
	}

	for _, at := range fe.auto {
		if at.pattern.MatchString(text) {
			results = append(results, at.label)
		}
	}

	return uniqueStrings(results)
}

// customMatches runs the operator-supplied pattern. Runtime failures
// (timeouts) are logged, never propagated.
func (fe *FacetExtractor) customMatches(text string) []string {
	var matches []string
	m, err := fe.custom.FindStringMatch(text)
	for m != nil && err == nil {
		value := m.String()
		if len(m.Groups()) > 1 {
			value = m.Groups()[1].String()
		}
		if value = strings.TrimSpace(value); value != "" {
			matches = append(matches, value)
		}
		m, err = fe.custom.FindNextMatch(m)
	}
	if err != nil {
		fe.logger.Warnw("Custom extraction regex failed at match time",
			"facet", fe.facet.Title,
			"error", err)
	}
	return matches
}

// keywordAlternation combines a tag's keyword set into a single
// case-insensitive, word-bounded alternation.
func keywordAlternation(keywords []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("no usable keywords")
	}
	return regexp.Compile(`(?i)(?:^|\W)(?:` + strings.Join(quoted, "|") + `)(?:\W|$)`)
}
