// Package extract mines document text for indicators of compromise and
// candidate tags.
package extract

import (
	"regexp"
	"strings"
)

// =============================================================================
// Feature Extractors
// =============================================================================

// FeatureExtractor produces candidate label strings from raw text. Extractors
// are pure functions over their input; duplicate suppression is left to the
// caller's set semantics.
type FeatureExtractor interface {
	// Name identifies the extractor and prefixes emitted tag labels
	Name() string
	Extract(text string) []string
}

var (
	cvePattern    = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,8}`)
	attackPattern = regexp.MustCompile(`(?i)\bT[0-9]{4}(?:\.[0-9]{3})?\b`)
	actorPattern  = regexp.MustCompile(`(?i)(?:^|[^\w-])((?:apt|ta|unc|dev)[- ]*[0-9]+)(?:[^\w-]|$)`)
	tlpPattern    = regexp.MustCompile(`(?i)tlp[:/_\s-]+(red|green|white|amber(?:-strict)?)`)
)

// CVEExtractor emits CVE identifiers, uppercased
type CVEExtractor struct{}

// Name implements FeatureExtractor
func (CVEExtractor) Name() string { return "vulnerability" }

// Extract implements FeatureExtractor
func (CVEExtractor) Extract(text string) []string {
	matches := cvePattern.FindAllString(text, -1)
	results := make([]string, 0, len(matches))
	for _, m := range matches {
		results = append(results, strings.ToUpper(m))
	}
	return results
}

// AttackTechniqueExtractor emits ATT&CK technique identifiers (T1234 or
// T1234.001), uppercased.
type AttackTechniqueExtractor struct{}

// Name implements FeatureExtractor
func (AttackTechniqueExtractor) Name() string { return "attack" }

// Extract implements FeatureExtractor
func (AttackTechniqueExtractor) Extract(text string) []string {
	matches := attackPattern.FindAllString(text, -1)
	results := make([]string, 0, len(matches))
	for _, m := range matches {
		results = append(results, strings.ToUpper(m))
	}
	return results
}

// ActorExtractor emits tracked-actor designators such as APT28, TA505,
// UNC1151 or DEV-0537, bounded by non-word characters.
type ActorExtractor struct{}

// Name implements FeatureExtractor
func (ActorExtractor) Name() string { return "actor" }

// Extract implements FeatureExtractor. The scan resumes after each captured
// designator rather than after the full match, so the separator consumed as
// a trailing boundary still serves as the next mention's leading boundary.
func (ActorExtractor) Extract(text string) []string {
	var results []string
	for offset := 0; offset < len(text); {
		loc := actorPattern.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			break
		}
		designator := text[offset+loc[2] : offset+loc[3]]
		results = append(results, strings.ToUpper(strings.TrimSpace(designator)))
		offset += loc[3]
	}
	return results
}

// TLPExtractor emits the traffic-light-protocol marking of the document,
// lowercased: one of red, green, white, amber, amber-strict.
type TLPExtractor struct{}

// Name implements FeatureExtractor
func (TLPExtractor) Name() string { return "tlp" }

// Extract implements FeatureExtractor
func (TLPExtractor) Extract(text string) []string {
	matches := tlpPattern.FindAllStringSubmatch(text, -1)
	results := make([]string, 0, len(matches))
	for _, m := range matches {
		results = append(results, strings.ToLower(m[1]))
	}
	return results
}

// DefaultFeatureExtractors returns the fixed extractor set applied to every
// document.
func DefaultFeatureExtractors() []FeatureExtractor {
	return []FeatureExtractor{
		CVEExtractor{},
		AttackTechniqueExtractor{},
		ActorExtractor{},
		TLPExtractor{},
	}
}

// uniqueStrings deduplicates while preserving first-seen order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
