// Package store implements the embedded analytical database (spec.md §4.6):
// a single-writer SQLite-backed store holding assets, signals, scan
// sessions, and survey/segment metadata, with partition-aware queries and a
// bounded-range frequency lookup.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the embedded database connection. The underlying SQLite
// connection is single-writer (spec.md §5); callers issuing concurrent
// writes must serialize through one *Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema. path may be ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer contract (spec.md §5)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for components that need direct access
// (e.g. the medallion transform's set-based statements).
func (s *Store) DB() *sql.DB {
	return s.db
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}

// Stats holds the per-table counts and distributions of get_statistics.
type Stats struct {
	AssetCount            int
	SignalCount            int
	SurveyCount            int
	ProtocolDistribution   map[string]int
	PostureDistribution    map[string]int
}

// GetStatistics returns per-table counts and per-protocol / per-posture
// distributions across assets (spec.md §4.6).
func (s *Store) GetStatistics(ctx context.Context) (Stats, error) {
	var stats Stats
	stats.ProtocolDistribution = make(map[string]int)
	stats.PostureDistribution = make(map[string]int)

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&stats.AssetCount); err != nil {
		return Stats{}, fmt.Errorf("counting assets: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signals").Scan(&stats.SignalCount); err != nil {
		return Stats{}, fmt.Errorf("counting signals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spectrum_surveys").Scan(&stats.SurveyCount); err != nil {
		return Stats{}, fmt.Errorf("counting surveys: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT COALESCE(rf_protocol, 'unknown'), COUNT(*) FROM assets GROUP BY rf_protocol")
	if err != nil {
		return Stats{}, fmt.Errorf("querying protocol distribution: %w", err)
	}
	defer closeRows(rows)
	for rows.Next() {
		var proto string
		var count int
		if err := rows.Scan(&proto, &count); err != nil {
			return Stats{}, err
		}
		stats.ProtocolDistribution[proto] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows2, err := s.db.QueryContext(ctx, "SELECT COALESCE(security_posture, 'unknown'), COUNT(*) FROM assets GROUP BY security_posture")
	if err != nil {
		return Stats{}, fmt.Errorf("querying posture distribution: %w", err)
	}
	defer closeRows(rows2)
	for rows2.Next() {
		var posture string
		var count int
		if err := rows2.Scan(&posture, &count); err != nil {
			return Stats{}, err
		}
		stats.PostureDistribution[posture] = count
	}
	return stats, rows2.Err()
}
