package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"docintel/core"
)

func testFacetTags() []*core.Tag {
	return []*core.Tag{
		{ID: "tag-1", Label: "Emotet", Keywords: "geodo, heodo"},
		{ID: "tag-2", Label: "Qakbot", Keywords: "qbot"},
	}
}

func TestFacetExtractorAutoExtract(t *testing.T) {
	facet := &core.Facet{ID: "f-1", Title: "Malware", Prefix: "malware", AutoExtract: true}
	fe := NewFacetExtractor(facet, testFacetTags(), zaptest.NewLogger(t).Sugar())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"label match", "The Emotet loader resurfaced.", []string{"Emotet"}},
		{"keyword match maps to label", "also known as geodo in older reports", []string{"Emotet"}},
		{"case insensitive", "QBOT infrastructure overlaps", []string{"Qakbot"}},
		{"multiple tags", "Emotet drops Qakbot", []string{"Emotet", "Qakbot"}},
		{"substring does not match", "submergeodont is unrelated", nil},
		{"no match", "clean text", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fe.Extract(tt.text))
		})
	}
}

func TestFacetExtractorCustomRegex(t *testing.T) {
	facet := &core.Facet{
		ID:              "f-2",
		Title:           "Campaign",
		Prefix:          "campaign",
		ExtractionRegex: `operation\s+([a-z]+)`,
	}
	fe := NewFacetExtractor(facet, nil, zaptest.NewLogger(t).Sugar())

	got := fe.Extract("Operation shadowfall and OPERATION nightowl were linked.")
	assert.Equal(t, []string{"shadowfall", "nightowl"}, got)
}

func TestFacetExtractorInvalidCustomRegexDegrades(t *testing.T) {
	facet := &core.Facet{
		ID:              "f-3",
		Title:           "Broken",
		Prefix:          "broken",
		AutoExtract:     true,
		ExtractionRegex: `(unclosed[`,
	}

	// Construction must not panic or fail; auto-extract still works.
	fe := NewFacetExtractor(facet, testFacetTags(), zaptest.NewLogger(t).Sugar())

	assert.Equal(t, []string{"Emotet"}, fe.Extract("Emotet again"))
	assert.Empty(t, fe.Extract("clean text"))
}

func TestFacetExtractorDeduplicates(t *testing.T) {
	facet := &core.Facet{
		ID:              "f-4",
		Title:           "Campaign",
		Prefix:          "campaign",
		AutoExtract:     true,
		ExtractionRegex: `(Emotet)`,
	}
	fe := NewFacetExtractor(facet, testFacetTags(), zaptest.NewLogger(t).Sugar())

	// Custom regex and auto-extract both produce Emotet; set semantics win.
	assert.Equal(t, []string{"Emotet"}, fe.Extract("Emotet Emotet"))
}
