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

// SQLiteObservableStorage implements core.ObservableStorage. The identity
// key column carries a unique index so deduplication happens at the database
// boundary, not just in application memory.
type SQLiteObservableStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteObservableStorage creates observable storage and ensures tables
func NewSQLiteObservableStorage(sqlite *SQLite, logger *zap.SugaredLogger) (*SQLiteObservableStorage, error) {
	s := &SQLiteObservableStorage{sqlite: sqlite, logger: logger}
	if err := s.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure observable tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteObservableStorage) ensureTables() error {
	table := `
	CREATE TABLE IF NOT EXISTS observables (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT,
		status TEXT NOT NULL,
		identity_key TEXT NOT NULL UNIQUE,
		hashes TEXT,
		tags TEXT,
		registered_by TEXT NOT NULL,
		last_modified_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_observables_status ON observables(status);
	CREATE INDEX IF NOT EXISTS idx_observables_type ON observables(type);
	`
	if _, err := s.sqlite.WriteDB.Exec(table); err != nil {
		return fmt.Errorf("create observables table: %w", err)
	}
	return nil
}

// CreateObservable persists a new observable. A duplicate identity key
// returns core.ErrDuplicate.
func (s *SQLiteObservableStorage) CreateObservable(ctx context.Context, obs *core.Observable) error {
	hashes, err := json.Marshal(obs.Hashes)
	if err != nil {
		return fmt.Errorf("encode hashes: %w", err)
	}
	tags, err := json.Marshal(obs.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	var count int
	err = s.sqlite.ReadDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observables WHERE identity_key = ?", obs.Key()).Scan(&count)
	if err != nil {
		return fmt.Errorf("check duplicate observable: %w", err)
	}
	if count > 0 {
		return core.ErrDuplicate
	}

	_, err = s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO observables
			(id, type, value, status, identity_key, hashes, tags,
			 registered_by, last_modified_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, string(obs.Type), obs.Value, string(obs.Status), obs.Key(),
		string(hashes), string(tags),
		obs.RegisteredByID, obs.LastModifiedByID,
		obs.CreatedAt.UTC().Format(timeFormat), obs.UpdatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert observable: %w", err)
	}
	return nil
}

// GetObservable loads an observable by ID
func (s *SQLiteObservableStorage) GetObservable(ctx context.Context, id string) (*core.Observable, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx,
		observableColumns+" FROM observables WHERE id = ?", id)
	obs, err := scanObservable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	return obs, err
}

// FindByKey resolves an observable by identity key, (nil, nil) when absent
func (s *SQLiteObservableStorage) FindByKey(ctx context.Context, key string) (*core.Observable, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx,
		observableColumns+" FROM observables WHERE identity_key = ?", key)
	obs, err := scanObservable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return obs, err
}

// UpdateObservable persists status, tags and attribution changes
func (s *SQLiteObservableStorage) UpdateObservable(ctx context.Context, obs *core.Observable) error {
	tags, err := json.Marshal(obs.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	result, err := s.sqlite.WriteDB.ExecContext(ctx, `
		UPDATE observables
		SET status = ?, tags = ?, last_modified_by = ?, updated_at = ?
		WHERE id = ?`,
		string(obs.Status), string(tags), obs.LastModifiedByID,
		time.Now().UTC().Format(timeFormat), obs.ID)
	if err != nil {
		return fmt.Errorf("update observable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update observable: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListObservables pages through observables, optionally filtered by status
func (s *SQLiteObservableStorage) ListObservables(ctx context.Context, statuses []core.ObservableStatus, limit, offset int) ([]*core.Observable, error) {
	query := observableColumns + " FROM observables"
	args := make([]interface{}, 0, len(statuses)+2)

	if len(statuses) > 0 {
		query += " WHERE status IN ("
		for i, status := range statuses {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args = append(args, string(status))
		}
		query += ")"
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list observables: %w", err)
	}
	defer rows.Close()
	return scanObservables(rows)
}

// ListByStatus returns every observable in a status, unbounded. Used to warm
// the whitelist filter at startup.
func (s *SQLiteObservableStorage) ListByStatus(ctx context.Context, status core.ObservableStatus) ([]*core.Observable, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		observableColumns+" FROM observables WHERE status = ?", string(status))
	if err != nil {
		return nil, fmt.Errorf("list observables by status: %w", err)
	}
	defer rows.Close()
	return scanObservables(rows)
}

// CountByStatus returns observable counts grouped by status
func (s *SQLiteObservableStorage) CountByStatus(ctx context.Context) (map[core.ObservableStatus]int64, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM observables GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count observables: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.ObservableStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan observable count: %w", err)
		}
		counts[core.ObservableStatus(status)] = count
	}
	return counts, rows.Err()
}

const observableColumns = `SELECT id, type, value, status, hashes, tags,
	registered_by, last_modified_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanObservable(row rowScanner) (*core.Observable, error) {
	var obs core.Observable
	var obsType, status, hashes, tags, createdAt, updatedAt string
	var value sql.NullString

	err := row.Scan(&obs.ID, &obsType, &value, &status, &hashes, &tags,
		&obs.RegisteredByID, &obs.LastModifiedByID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	obs.Type = core.ObservableType(obsType)
	obs.Value = value.String
	obs.Status = core.ObservableStatus(status)

	if hashes != "" {
		if err := json.Unmarshal([]byte(hashes), &obs.Hashes); err != nil {
			return nil, fmt.Errorf("decode hashes: %w", err)
		}
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &obs.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if obs.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if obs.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &obs, nil
}

func scanObservables(rows *sql.Rows) ([]*core.Observable, error) {
	var out []*core.Observable
	for rows.Next() {
		obs, err := scanObservable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}
