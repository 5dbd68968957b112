package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Documents and Files
// =============================================================================

// Document is a threat-intelligence report registered in the platform.
// Documents are created by the downstream ingestion pipeline; this core only
// reads them during extraction and indexing.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceID  string    `json:"source_id,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentFile is one stored file belonging to a document. Artifact files
// (samples, attachments) contribute their own hashes as file observables in
// addition to whatever their text yields.
type DocumentFile struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type,omitempty"`
	IsArtifact bool      `json:"is_artifact"`
	SHA256     string    `json:"sha256,omitempty"`
	MD5        string    `json:"md5,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArtifactHashes returns the file's own digests as a hash set, empty when
// none are recorded.
func (f *DocumentFile) ArtifactHashes() []Hash {
	var hashes []Hash
	if f.MD5 != "" {
		hashes = append(hashes, Hash{Type: HashTypeMD5, Value: f.MD5})
	}
	if f.SHA256 != "" {
		hashes = append(hashes, Hash{Type: HashTypeSHA256, Value: f.SHA256})
	}
	return hashes
}

// =============================================================================
// Submitted Documents
// =============================================================================

// SubmittedDocument is a URL queued for download and registration by the
// downstream pipeline. The source URL is the deduplication key: a URL is
// submitted at most once, later feed hits are discarded.
type SubmittedDocument struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	FeedID         string    `json:"feed_id,omitempty"`
	Title          string    `json:"title,omitempty"`
	SubmitterID    string    `json:"submitter_id"`
	SubmissionDate time.Time `json:"submission_date"`
	Priority       int       `json:"priority"`

	// Marking overrides copied from feed configuration when the feed is
	// set to override.
	OverrideClassification bool   `json:"override_classification"`
	Classification         string `json:"classification,omitempty"`
	OverrideReleasability  bool   `json:"override_releasability"`
	ReleasableTo           string `json:"releasable_to,omitempty"`
	OverrideEyesOnly       bool   `json:"override_eyes_only"`
	EyesOnly               string `json:"eyes_only,omitempty"`
}

// NewSubmittedDocument creates a submission record with a generated ID
func NewSubmittedDocument(sourceURL, submitterID string) *SubmittedDocument {
	return &SubmittedDocument{
		ID:             uuid.New().String(),
		URL:            sourceURL,
		SubmitterID:    submitterID,
		SubmissionDate: time.Now().UTC(),
	}
}

// SubmissionEvent is published once per newly persisted submission and
// consumed by the document-creation pipeline.
type SubmissionEvent struct {
	SubmissionID string    `json:"submission_id"`
	FeedID       string    `json:"feed_id,omitempty"`
	URL          string    `json:"url"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// =============================================================================
// Sources, Tags and Facets
// =============================================================================

// Source identifies the origin of registered documents. DocumentCount and
// LastDocumentDate are aggregate index metadata refreshed by the continuous
// indexer, not maintained synchronously on every write.
type Source struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	DocumentCount    int64      `json:"document_count"`
	LastDocumentDate *time.Time `json:"last_document_date,omitempty"`
}

// Facet is a named category of tags with optional auto-extraction settings.
// When AutoExtract is set, every tag under the facet contributes its label
// and keywords to extraction; ExtractionRegex optionally adds a custom
// pattern whose matches become candidate labels.
type Facet struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Prefix          string `json:"prefix"`
	AutoExtract     bool   `json:"auto_extract"`
	ExtractionRegex string `json:"extraction_regex,omitempty"`
}

// Tag is an enrichment label under a facet. Keywords is a comma-separated
// list of synonyms matched during facet auto-extraction.
type Tag struct {
	ID               string     `json:"id"`
	FacetID          string     `json:"facet_id"`
	Label            string     `json:"label"`
	Keywords         string     `json:"keywords,omitempty"`
	DocumentCount    int64      `json:"document_count"`
	LastDocumentDate *time.Time `json:"last_document_date,omitempty"`
}

// ExtractionKeywords returns the label plus all non-empty keywords
func (t *Tag) ExtractionKeywords() []string {
	keywords := []string{t.Label}
	if t.Keywords == "" {
		return keywords
	}
	for _, kw := range strings.Split(t.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
