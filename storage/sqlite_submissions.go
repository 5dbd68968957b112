package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docintel/core"
)

// SQLiteSubmissionStorage implements core.SubmissionStorage. The URL column
// is unique: a source URL is submitted at most once, ever.
type SQLiteSubmissionStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteSubmissionStorage creates submission storage and ensures tables
func NewSQLiteSubmissionStorage(sqlite *SQLite, logger *zap.SugaredLogger) (*SQLiteSubmissionStorage, error) {
	s := &SQLiteSubmissionStorage{sqlite: sqlite, logger: logger}
	if err := s.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure submission tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteSubmissionStorage) ensureTables() error {
	table := `
	CREATE TABLE IF NOT EXISTS submitted_documents (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		feed_id TEXT,
		title TEXT,
		submitter_id TEXT NOT NULL,
		submission_date TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		override_classification INTEGER NOT NULL DEFAULT 0,
		classification TEXT,
		override_releasability INTEGER NOT NULL DEFAULT 0,
		releasable_to TEXT,
		override_eyes_only INTEGER NOT NULL DEFAULT 0,
		eyes_only TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_feed ON submitted_documents(feed_id);
	`
	if _, err := s.sqlite.WriteDB.Exec(table); err != nil {
		return fmt.Errorf("create submitted_documents table: %w", err)
	}
	return nil
}

// CreateSubmission persists a new submission. An already submitted URL
// returns core.ErrDuplicate.
func (s *SQLiteSubmissionStorage) CreateSubmission(ctx context.Context, sub *core.SubmittedDocument) error {
	_, err := s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO submitted_documents
			(id, url, feed_id, title, submitter_id, submission_date, priority,
			 override_classification, classification,
			 override_releasability, releasable_to,
			 override_eyes_only, eyes_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.URL, sub.FeedID, sub.Title, sub.SubmitterID,
		sub.SubmissionDate.UTC().Format(timeFormat), sub.Priority,
		boolToInt(sub.OverrideClassification), sub.Classification,
		boolToInt(sub.OverrideReleasability), sub.ReleasableTo,
		boolToInt(sub.OverrideEyesOnly), sub.EyesOnly)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrDuplicate
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission loads a submission by ID
func (s *SQLiteSubmissionStorage) GetSubmission(ctx context.Context, id string) (*core.SubmittedDocument, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx,
		submissionColumns+" FROM submitted_documents WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return sub, err
}

// ExistsByURL reports whether a source URL was already submitted
func (s *SQLiteSubmissionStorage) ExistsByURL(ctx context.Context, sourceURL string) (bool, error) {
	var count int
	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM submitted_documents WHERE url = ?", sourceURL).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check submission url: %w", err)
	}
	return count > 0, nil
}

// ListSubmissions pages through submissions, optionally scoped to a feed
func (s *SQLiteSubmissionStorage) ListSubmissions(ctx context.Context, feedID string, limit, offset int) ([]*core.SubmittedDocument, error) {
	query := submissionColumns + " FROM submitted_documents"
	args := []interface{}{}
	if feedID != "" {
		query += " WHERE feed_id = ?"
		args = append(args, feedID)
	}
	query += " ORDER BY submission_date DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*core.SubmittedDocument
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

const submissionColumns = `SELECT id, url, feed_id, title, submitter_id,
	submission_date, priority,
	override_classification, classification,
	override_releasability, releasable_to,
	override_eyes_only, eyes_only`

func scanSubmission(row rowScanner) (*core.SubmittedDocument, error) {
	var sub core.SubmittedDocument
	var feedID, title, classification, releasableTo, eyesOnly sql.NullString
	var submissionDate string
	var overrideClassification, overrideReleasability, overrideEyesOnly int

	err := row.Scan(&sub.ID, &sub.URL, &feedID, &title, &sub.SubmitterID,
		&submissionDate, &sub.Priority,
		&overrideClassification, &classification,
		&overrideReleasability, &releasableTo,
		&overrideEyesOnly, &eyesOnly)
	if err != nil {
		return nil, err
	}

	sub.FeedID = feedID.String
	sub.Title = title.String
	sub.OverrideClassification = overrideClassification != 0
	sub.Classification = classification.String
	sub.OverrideReleasability = overrideReleasability != 0
	sub.ReleasableTo = releasableTo.String
	sub.OverrideEyesOnly = overrideEyesOnly != 0
	sub.EyesOnly = eyesOnly.String

	if sub.SubmissionDate, err = time.Parse(timeFormat, submissionDate); err != nil {
		return nil, fmt.Errorf("parse submission_date: %w", err)
	}
	return &sub, nil
}
