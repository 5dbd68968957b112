// Package index maintains search-index metadata for aggregate entities.
package index

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"docintel/core"
)

// sourceEntry is the indexed shape of a source
type sourceEntry struct {
	Kind             string `json:"kind"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	DocumentCount    int64  `json:"document_count"`
	LastDocumentDate string `json:"last_document_date,omitempty"`
}

// tagEntry is the indexed shape of a tag
type tagEntry struct {
	Kind             string `json:"kind"`
	FacetID          string `json:"facet_id"`
	Label            string `json:"label"`
	DocumentCount    int64  `json:"document_count"`
	LastDocumentDate string `json:"last_document_date,omitempty"`
}

// BleveClient implements core.IndexClient over a local bleve index. Updates
// are upserts keyed by a kind-prefixed entity ID, so re-indexing the same
// entity replaces its entry.
type BleveClient struct {
	index  bleve.Index
	logger *zap.SugaredLogger
}

// OpenBleve opens or creates the index at path
func OpenBleve(path string, logger *zap.SugaredLogger) (*BleveClient, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("open search index: %w", err)
		}
		mapping := bleve.NewIndexMapping()
		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create search index: %w", err)
		}
		logger.Infow("Search index created", "path", path)
	}
	return &BleveClient{index: idx, logger: logger}, nil
}

// OpenBleveInMemory creates a transient index, used in tests
func OpenBleveInMemory(logger *zap.SugaredLogger) (*BleveClient, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create in-memory search index: %w", err)
	}
	return &BleveClient{index: idx, logger: logger}, nil
}

// UpdateSource upserts the index entry for a source
func (c *BleveClient) UpdateSource(ctx context.Context, source *core.Source) error {
	entry := sourceEntry{
		Kind:          "source",
		Name:          source.Name,
		Description:   source.Description,
		DocumentCount: source.DocumentCount,
	}
	if source.LastDocumentDate != nil {
		entry.LastDocumentDate = source.LastDocumentDate.UTC().Format("2006-01-02")
	}
	if err := c.index.Index("source:"+source.ID, entry); err != nil {
		return fmt.Errorf("index source %s: %w", source.ID, err)
	}
	return nil
}

// UpdateTag upserts the index entry for a tag
func (c *BleveClient) UpdateTag(ctx context.Context, tag *core.Tag) error {
	entry := tagEntry{
		Kind:          "tag",
		FacetID:       tag.FacetID,
		Label:         tag.Label,
		DocumentCount: tag.DocumentCount,
	}
	if tag.LastDocumentDate != nil {
		entry.LastDocumentDate = tag.LastDocumentDate.UTC().Format("2006-01-02")
	}
	if err := c.index.Index("tag:"+tag.ID, entry); err != nil {
		return fmt.Errorf("index tag %s: %w", tag.ID, err)
	}
	return nil
}

// DocCount returns the number of indexed entries
func (c *BleveClient) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the underlying index
func (c *BleveClient) Close() error {
	return c.index.Close()
}
