package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docintel/core"
)

// SQLiteFeedStorage implements core.FeedStorage
type SQLiteFeedStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteFeedStorage creates feed storage and ensures tables
func NewSQLiteFeedStorage(sqlite *SQLite, logger *zap.SugaredLogger) (*SQLiteFeedStorage, error) {
	s := &SQLiteFeedStorage{sqlite: sqlite, logger: logger}
	if err := s.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure feed tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteFeedStorage) ensureTables() error {
	table := `
	CREATE TABLE IF NOT EXISTS feeds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'enabled',
		description TEXT,
		last_collection TEXT,
		collection_delay_seconds INTEGER NOT NULL DEFAULT 3600,
		item_limit INTEGER NOT NULL DEFAULT 0,
		settings TEXT,
		override_classification INTEGER NOT NULL DEFAULT 0,
		classification TEXT,
		override_releasability INTEGER NOT NULL DEFAULT 0,
		releasable_to TEXT,
		override_eyes_only INTEGER NOT NULL DEFAULT 0,
		eyes_only TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feeds_status ON feeds(status);
	`
	if _, err := s.sqlite.WriteDB.Exec(table); err != nil {
		return fmt.Errorf("create feeds table: %w", err)
	}
	return nil
}

// CreateFeed persists a new feed configuration
func (s *SQLiteFeedStorage) CreateFeed(ctx context.Context, feed *core.Feed) error {
	if !feed.Status.IsValid() {
		return fmt.Errorf("invalid feed status: %s", feed.Status)
	}

	settings, err := json.Marshal(feed.Settings)
	if err != nil {
		return fmt.Errorf("encode feed settings: %w", err)
	}

	var lastCollection sql.NullString
	if feed.LastCollection != nil {
		lastCollection = sql.NullString{String: feed.LastCollection.UTC().Format(timeFormat), Valid: true}
	}

	now := time.Now().UTC()
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = now
	}
	feed.UpdatedAt = now

	_, err = s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO feeds
			(id, name, kind, status, description, last_collection,
			 collection_delay_seconds, item_limit, settings,
			 override_classification, classification,
			 override_releasability, releasable_to,
			 override_eyes_only, eyes_only,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		feed.ID, feed.Name, feed.Kind, string(feed.Status), feed.Description, lastCollection,
		int64(feed.CollectionDelay.Seconds()), feed.Limit, string(settings),
		boolToInt(feed.OverrideClassification), feed.Classification,
		boolToInt(feed.OverrideReleasability), feed.ReleasableTo,
		boolToInt(feed.OverrideEyesOnly), feed.EyesOnly,
		feed.CreatedAt.Format(timeFormat), feed.UpdatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	return nil
}

// GetFeed loads a feed by ID
func (s *SQLiteFeedStorage) GetFeed(ctx context.Context, id string) (*core.Feed, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx, feedColumns+" FROM feeds WHERE id = ?", id)
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return feed, err
}

// GetAllFeeds returns every configured feed
func (s *SQLiteFeedStorage) GetAllFeeds(ctx context.Context) ([]*core.Feed, error) {
	return s.queryFeeds(ctx, feedColumns+" FROM feeds ORDER BY name")
}

// GetEnabledFeeds returns feeds eligible for scheduling
func (s *SQLiteFeedStorage) GetEnabledFeeds(ctx context.Context) ([]*core.Feed, error) {
	return s.queryFeeds(ctx,
		feedColumns+" FROM feeds WHERE status = ? ORDER BY name", string(core.FeedStatusEnabled))
}

// UpdateFeed persists full feed configuration changes
func (s *SQLiteFeedStorage) UpdateFeed(ctx context.Context, feed *core.Feed) error {
	settings, err := json.Marshal(feed.Settings)
	if err != nil {
		return fmt.Errorf("encode feed settings: %w", err)
	}

	var lastCollection sql.NullString
	if feed.LastCollection != nil {
		lastCollection = sql.NullString{String: feed.LastCollection.UTC().Format(timeFormat), Valid: true}
	}
	feed.UpdatedAt = time.Now().UTC()

	result, err := s.sqlite.WriteDB.ExecContext(ctx, `
		UPDATE feeds
		SET name = ?, kind = ?, status = ?, description = ?, last_collection = ?,
		    collection_delay_seconds = ?, item_limit = ?, settings = ?,
		    override_classification = ?, classification = ?,
		    override_releasability = ?, releasable_to = ?,
		    override_eyes_only = ?, eyes_only = ?,
		    updated_at = ?
		WHERE id = ?`,
		feed.Name, feed.Kind, string(feed.Status), feed.Description, lastCollection,
		int64(feed.CollectionDelay.Seconds()), feed.Limit, string(settings),
		boolToInt(feed.OverrideClassification), feed.Classification,
		boolToInt(feed.OverrideReleasability), feed.ReleasableTo,
		boolToInt(feed.OverrideEyesOnly), feed.EyesOnly,
		feed.UpdatedAt.Format(timeFormat), feed.ID)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	return requireAffected(result)
}

// UpdateFeedStatus changes a feed's operational status
func (s *SQLiteFeedStorage) UpdateFeedStatus(ctx context.Context, id string, status core.FeedStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid feed status: %s", status)
	}
	result, err := s.sqlite.WriteDB.ExecContext(ctx,
		"UPDATE feeds SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("update feed status: %w", err)
	}
	return requireAffected(result)
}

// UpdateLastCollection advances a feed's collection timestamp
func (s *SQLiteFeedStorage) UpdateLastCollection(ctx context.Context, id string, collectedAt time.Time) error {
	result, err := s.sqlite.WriteDB.ExecContext(ctx,
		"UPDATE feeds SET last_collection = ?, updated_at = ? WHERE id = ?",
		collectedAt.UTC().Format(timeFormat), time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("update last collection: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteFeedStorage) queryFeeds(ctx context.Context, query string, args ...interface{}) ([]*core.Feed, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var out []*core.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, feed)
	}
	return out, rows.Err()
}

const feedColumns = `SELECT id, name, kind, status, description, last_collection,
	collection_delay_seconds, item_limit, settings,
	override_classification, classification,
	override_releasability, releasable_to,
	override_eyes_only, eyes_only,
	created_at, updated_at`

func scanFeed(row rowScanner) (*core.Feed, error) {
	var feed core.Feed
	var status, createdAt, updatedAt string
	var description, lastCollection, settings, classification, releasableTo, eyesOnly sql.NullString
	var delaySeconds int64
	var overrideClassification, overrideReleasability, overrideEyesOnly int

	err := row.Scan(&feed.ID, &feed.Name, &feed.Kind, &status, &description, &lastCollection,
		&delaySeconds, &feed.Limit, &settings,
		&overrideClassification, &classification,
		&overrideReleasability, &releasableTo,
		&overrideEyesOnly, &eyesOnly,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	feed.Status = core.FeedStatus(status)
	feed.Description = description.String
	feed.CollectionDelay = time.Duration(delaySeconds) * time.Second
	feed.OverrideClassification = overrideClassification != 0
	feed.Classification = classification.String
	feed.OverrideReleasability = overrideReleasability != 0
	feed.ReleasableTo = releasableTo.String
	feed.OverrideEyesOnly = overrideEyesOnly != 0
	feed.EyesOnly = eyesOnly.String

	if lastCollection.Valid {
		parsed, err := time.Parse(timeFormat, lastCollection.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_collection: %w", err)
		}
		feed.LastCollection = &parsed
	}
	if settings.Valid && settings.String != "" && settings.String != "null" {
		if err := json.Unmarshal([]byte(settings.String), &feed.Settings); err != nil {
			return nil, fmt.Errorf("decode feed settings: %w", err)
		}
	}
	if feed.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if feed.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &feed, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}
