package extract

import (
	"regexp"
	"strings"

	"docintel/core"
)

// =============================================================================
// Typed Entity Recognizer
// =============================================================================

// Candidate is a typed indicator found in raw text, before observable
// construction and whitelist checks.
type Candidate struct {
	Type   core.ObservableType
	Value  string
	Hashes []core.Hash
}

var (
	ipv4Candidate = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	// Uncompressed or compressed IPv6 with at least two groups; validated
	// by net.ParseIP afterwards, the pattern only narrows the scan.
	ipv6Candidate = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){2,7}[0-9a-fA-F:]{1,37}\b`)
	urlCandidate  = regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s"'<>\)\]]+`)
	fqdnCandidate = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}\b`)
	hashCandidate = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b|\b[a-fA-F0-9]{40}\b|\b[a-fA-F0-9]{64}\b|\b[a-fA-F0-9]{128}\b`)
)

// defangReplacer undoes the common indicator defusing conventions used in
// published reports so the underlying value can be typed.
var defangReplacer = strings.NewReplacer(
	"[.]", ".",
	"(.)", ".",
	"[:]", ":",
	"hxxp://", "http://",
	"hxxps://", "https://",
	"hXXp://", "http://",
	"hXXps://", "https://",
)

// RecognizeEntities scans text for typed indicator candidates. URLs are
// recognized first; FQDNs and IPs embedded in a recognized URL are not
// emitted separately (the URL post-processors relate them later).
func RecognizeEntities(text string) []Candidate {
	text = defangReplacer.Replace(text)

	var candidates []Candidate
	inURL := make(map[string]struct{})

	for _, m := range urlCandidate.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;")
		if err := core.ValidateObservableValue(core.ObservableTypeURL, m); err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Type: core.ObservableTypeURL, Value: m})
		for _, host := range fqdnCandidate.FindAllString(m, -1) {
			inURL[strings.ToLower(host)] = struct{}{}
		}
		for _, ip := range ipv4Candidate.FindAllString(m, -1) {
			inURL[ip] = struct{}{}
		}
	}

	for _, m := range ipv4Candidate.FindAllString(text, -1) {
		if _, ok := inURL[m]; ok {
			continue
		}
		if err := core.ValidateObservableValue(core.ObservableTypeIPv4, m); err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Type: core.ObservableTypeIPv4, Value: m})
	}

	for _, m := range ipv6Candidate.FindAllString(text, -1) {
		if err := core.ValidateObservableValue(core.ObservableTypeIPv6, m); err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Type: core.ObservableTypeIPv6, Value: m})
	}

	for _, m := range fqdnCandidate.FindAllString(text, -1) {
		if _, ok := inURL[strings.ToLower(m)]; ok {
			continue
		}
		if err := core.ValidateObservableValue(core.ObservableTypeFQDN, m); err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Type: core.ObservableTypeFQDN, Value: m})
	}

	for _, m := range hashCandidate.FindAllString(text, -1) {
		hashType := core.HashTypeForDigest(m)
		if hashType == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Type:   core.ObservableTypeFile,
			Hashes: []core.Hash{{Type: hashType, Value: strings.ToLower(m)}},
		})
	}

	return candidates
}
