package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docintel/core"
)

// SQLiteCatalogStorage implements the read-side catalog interfaces:
// documents and files, sources, facets and tags. Aggregate metadata for
// sources and tags is computed from the documents table when read, so the
// continuous indexer always sees fresh counts without write-path bookkeeping.
type SQLiteCatalogStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteCatalogStorage creates catalog storage and ensures tables
func NewSQLiteCatalogStorage(sqlite *SQLite, logger *zap.SugaredLogger) (*SQLiteCatalogStorage, error) {
	s := &SQLiteCatalogStorage{sqlite: sqlite, logger: logger}
	if err := s.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure catalog tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteCatalogStorage) ensureTables() error {
	tables := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_id TEXT,
		source_url TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (source_id) REFERENCES sources(id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);

	CREATE TABLE IF NOT EXISTS document_files (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		mime_type TEXT,
		is_artifact INTEGER NOT NULL DEFAULT 0,
		sha256 TEXT,
		md5 TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_document_files_document ON document_files(document_id);

	CREATE TABLE IF NOT EXISTS facets (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		prefix TEXT NOT NULL,
		auto_extract INTEGER NOT NULL DEFAULT 0,
		extraction_regex TEXT
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		facet_id TEXT NOT NULL,
		label TEXT NOT NULL,
		keywords TEXT,
		FOREIGN KEY (facet_id) REFERENCES facets(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_tags_facet ON tags(facet_id);

	CREATE TABLE IF NOT EXISTS document_tags (
		document_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		PRIMARY KEY (document_id, tag_id),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);
	`
	if _, err := s.sqlite.WriteDB.Exec(tables); err != nil {
		return fmt.Errorf("create catalog tables: %w", err)
	}
	return nil
}

// GetDocument loads a document by ID
func (s *SQLiteCatalogStorage) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var doc core.Document
	var sourceID, sourceURL sql.NullString
	var createdAt string

	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		"SELECT id, title, source_id, source_url, created_at FROM documents WHERE id = ?", id).
		Scan(&doc.ID, &doc.Title, &sourceID, &sourceURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	doc.SourceID = sourceID.String
	doc.SourceURL = sourceURL.String
	if doc.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &doc, nil
}

// GetDocumentFiles loads all files of a document
func (s *SQLiteCatalogStorage) GetDocumentFiles(ctx context.Context, documentID string) ([]*core.DocumentFile, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT id, document_id, filename, mime_type, is_artifact, sha256, md5, created_at
		FROM document_files WHERE document_id = ? ORDER BY filename`, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document files: %w", err)
	}
	defer rows.Close()

	var out []*core.DocumentFile
	for rows.Next() {
		var file core.DocumentFile
		var mimeType, sha256, md5 sql.NullString
		var isArtifact int
		var createdAt string

		err := rows.Scan(&file.ID, &file.DocumentID, &file.Filename,
			&mimeType, &isArtifact, &sha256, &md5, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan document file: %w", err)
		}

		file.MimeType = mimeType.String
		file.IsArtifact = isArtifact != 0
		file.SHA256 = sha256.String
		file.MD5 = md5.String
		if file.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, &file)
	}
	return out, rows.Err()
}

// GetAllSources returns every source with freshly computed aggregates
func (s *SQLiteCatalogStorage) GetAllSources(ctx context.Context) ([]*core.Source, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT s.id, s.name, s.description,
		       COUNT(d.id), MAX(d.created_at)
		FROM sources s
		LEFT JOIN documents d ON d.source_id = s.id
		GROUP BY s.id, s.name, s.description
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}
	defer rows.Close()

	var out []*core.Source
	for rows.Next() {
		var source core.Source
		var description, lastDate sql.NullString

		if err := rows.Scan(&source.ID, &source.Name, &description,
			&source.DocumentCount, &lastDate); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		source.Description = description.String
		if lastDate.Valid {
			parsed, err := time.Parse(timeFormat, lastDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse last document date: %w", err)
			}
			source.LastDocumentDate = &parsed
		}
		out = append(out, &source)
	}
	return out, rows.Err()
}

// GetAllTags returns every tag with freshly computed aggregates
func (s *SQLiteCatalogStorage) GetAllTags(ctx context.Context) ([]*core.Tag, error) {
	return s.queryTags(ctx, tagAggregateQuery+" GROUP BY t.id ORDER BY t.label")
}

// GetTagsByFacet returns the tags under one facet
func (s *SQLiteCatalogStorage) GetTagsByFacet(ctx context.Context, facetID string) ([]*core.Tag, error) {
	return s.queryTags(ctx,
		tagAggregateQuery+" WHERE t.facet_id = ? GROUP BY t.id ORDER BY t.label", facetID)
}

// GetAllFacets returns every configured facet
func (s *SQLiteCatalogStorage) GetAllFacets(ctx context.Context) ([]*core.Facet, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		"SELECT id, title, prefix, auto_extract, extraction_regex FROM facets ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("get facets: %w", err)
	}
	defer rows.Close()

	var out []*core.Facet
	for rows.Next() {
		var facet core.Facet
		var extractionRegex sql.NullString
		var autoExtract int

		if err := rows.Scan(&facet.ID, &facet.Title, &facet.Prefix,
			&autoExtract, &extractionRegex); err != nil {
			return nil, fmt.Errorf("scan facet: %w", err)
		}
		facet.AutoExtract = autoExtract != 0
		facet.ExtractionRegex = extractionRegex.String
		out = append(out, &facet)
	}
	return out, rows.Err()
}

const tagAggregateQuery = `
	SELECT t.id, t.facet_id, t.label, t.keywords,
	       COUNT(dt.document_id), MAX(d.created_at)
	FROM tags t
	LEFT JOIN document_tags dt ON dt.tag_id = t.id
	LEFT JOIN documents d ON d.id = dt.document_id`

func (s *SQLiteCatalogStorage) queryTags(ctx context.Context, query string, args ...interface{}) ([]*core.Tag, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []*core.Tag
	for rows.Next() {
		var tag core.Tag
		var keywords, lastDate sql.NullString

		if err := rows.Scan(&tag.ID, &tag.FacetID, &tag.Label, &keywords,
			&tag.DocumentCount, &lastDate); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tag.Keywords = keywords.String
		if lastDate.Valid {
			parsed, err := time.Parse(timeFormat, lastDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse last document date: %w", err)
			}
			tag.LastDocumentDate = &parsed
		}
		out = append(out, &tag)
	}
	return out, rows.Err()
}
