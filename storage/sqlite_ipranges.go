package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docintel/core"
)

// SQLiteIPRangeStorage implements core.IPRangeStorage
type SQLiteIPRangeStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteIPRangeStorage creates ip-range storage and ensures tables
func NewSQLiteIPRangeStorage(sqlite *SQLite, logger *zap.SugaredLogger) (*SQLiteIPRangeStorage, error) {
	s := &SQLiteIPRangeStorage{sqlite: sqlite, logger: logger}
	if err := s.ensureTables(); err != nil {
		return nil, fmt.Errorf("ensure ip range tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteIPRangeStorage) ensureTables() error {
	table := `
	CREATE TABLE IF NOT EXISTS ip_ranges (
		id TEXT PRIMARY KEY,
		cidr TEXT NOT NULL UNIQUE,
		tags TEXT,
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.sqlite.WriteDB.Exec(table); err != nil {
		return fmt.Errorf("create ip_ranges table: %w", err)
	}
	return nil
}

// CreateRange persists a CIDR reference record. The range is parsed first so
// malformed configuration is rejected at write time.
func (s *SQLiteIPRangeStorage) CreateRange(ctx context.Context, r *core.IPRange) error {
	if _, err := r.Network(); err != nil {
		return err
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("encode range tags: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err = s.sqlite.WriteDB.ExecContext(ctx,
		"INSERT INTO ip_ranges (id, cidr, tags, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.CIDR, string(tags), r.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert ip range: %w", err)
	}
	return nil
}

// GetAllRanges returns every configured CIDR reference record
func (s *SQLiteIPRangeStorage) GetAllRanges(ctx context.Context) ([]*core.IPRange, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		"SELECT id, cidr, tags, created_at FROM ip_ranges ORDER BY cidr")
	if err != nil {
		return nil, fmt.Errorf("get ip ranges: %w", err)
	}
	defer rows.Close()

	var out []*core.IPRange
	for rows.Next() {
		var r core.IPRange
		var tags, createdAt string

		if err := rows.Scan(&r.ID, &r.CIDR, &tags, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ip range: %w", err)
		}
		if tags != "" {
			if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
				return nil, fmt.Errorf("decode range tags: %w", err)
			}
		}
		if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
