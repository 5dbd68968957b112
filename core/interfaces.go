package core

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound is returned by storage lookups for missing entities
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicate is returned when a unique identity already exists
	ErrDuplicate = errors.New("entity already exists")
	// ErrNoTextContent signals that a file yields no extractable text.
	// Callers treat it as a normal skip, not a failure.
	ErrNoTextContent = errors.New("no text content")
)

// =============================================================================
// External Collaborators
// =============================================================================

// TextExtractor obtains plain text from a stored document file. Returns
// ErrNoTextContent when the file cannot be read or holds nothing extractable.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc *Document, file *DocumentFile) (string, error)
}

// GraphClient is the query surface of the knowledge store holding resolved
// observable nodes. FindNode returns (nil, nil) when no node matches: an
// absent node is a normal negative result, not an error.
type GraphClient interface {
	NodesByType(ctx context.Context, obsType ObservableType) ([]*Observable, error)
	FindNode(ctx context.Context, obsType ObservableType, value string) (*Observable, error)
	ResolveNode(ctx context.Context, id string) (*Observable, error)
}

// Publisher delivers submission events to the downstream document pipeline.
// Delivery is fire-and-forget from the runner's point of view: a publish
// failure is logged against the feed but the submission stays persisted.
type Publisher interface {
	Publish(ctx context.Context, event SubmissionEvent) error
	Close() error
}

// IndexClient maintains the search index entries for aggregate entities.
// The continuous indexer calls Update* once per entity per pass.
type IndexClient interface {
	UpdateSource(ctx context.Context, source *Source) error
	UpdateTag(ctx context.Context, tag *Tag) error
	Close() error
}

// =============================================================================
// Storage Interfaces
// =============================================================================

// ObservableStorage persists observables and whitelist entries. Whitelist
// entries are regular observables whose status is fixed to whitelisted.
type ObservableStorage interface {
	CreateObservable(ctx context.Context, obs *Observable) error
	GetObservable(ctx context.Context, id string) (*Observable, error)
	// FindByKey resolves an observable by its deduplication identity,
	// returning (nil, nil) when absent.
	FindByKey(ctx context.Context, key string) (*Observable, error)
	UpdateObservable(ctx context.Context, obs *Observable) error
	ListObservables(ctx context.Context, statuses []ObservableStatus, limit, offset int) ([]*Observable, error)
	ListByStatus(ctx context.Context, status ObservableStatus) ([]*Observable, error)
	CountByStatus(ctx context.Context) (map[ObservableStatus]int64, error)
}

// FeedStorage persists feed configuration and collection state
type FeedStorage interface {
	CreateFeed(ctx context.Context, feed *Feed) error
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetAllFeeds(ctx context.Context) ([]*Feed, error)
	GetEnabledFeeds(ctx context.Context) ([]*Feed, error)
	UpdateFeed(ctx context.Context, feed *Feed) error
	UpdateFeedStatus(ctx context.Context, id string, status FeedStatus) error
	UpdateLastCollection(ctx context.Context, id string, collectedAt time.Time) error
}

// SubmissionStorage persists submitted documents keyed by source URL
type SubmissionStorage interface {
	CreateSubmission(ctx context.Context, sub *SubmittedDocument) error
	GetSubmission(ctx context.Context, id string) (*SubmittedDocument, error)
	ExistsByURL(ctx context.Context, sourceURL string) (bool, error)
	ListSubmissions(ctx context.Context, feedID string, limit, offset int) ([]*SubmittedDocument, error)
}

// DocumentStorage reads registered documents and their files
type DocumentStorage interface {
	GetDocument(ctx context.Context, id string) (*Document, error)
	GetDocumentFiles(ctx context.Context, documentID string) ([]*DocumentFile, error)
}

// SourceStorage reads sources with aggregate document metadata
type SourceStorage interface {
	GetAllSources(ctx context.Context) ([]*Source, error)
}

// TagStorage reads facets and tags
type TagStorage interface {
	GetAllTags(ctx context.Context) ([]*Tag, error)
	GetTagsByFacet(ctx context.Context, facetID string) ([]*Tag, error)
	GetAllFacets(ctx context.Context) ([]*Facet, error)
}

// IPRangeStorage reads configured CIDR reference records
type IPRangeStorage interface {
	GetAllRanges(ctx context.Context) ([]*IPRange, error)
}
