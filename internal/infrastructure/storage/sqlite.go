package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/index_ratio_monitor/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS crossings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pair_id TEXT NOT NULL,
			threshold REAL NOT NULL,
			direction TEXT NOT NULL,
			ratio REAL NOT NULL,
			crossed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crossings_pair ON crossings(pair_id, crossed_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CrossingRepository Implementation

func (s *SQLiteStore) SaveCrossing(ctx context.Context, c *domain.Crossing) error {
	query := `INSERT INTO crossings (pair_id, threshold, direction, ratio, crossed_at)
			  VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		c.PairID, c.Threshold, string(c.Direction), c.Ratio, c.At)
	return err
}

func (s *SQLiteStore) ListCrossings(ctx context.Context, limit int) ([]*domain.Crossing, error) {
	query := `SELECT pair_id, threshold, direction, ratio, crossed_at FROM crossings ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crossings []*domain.Crossing
	for rows.Next() {
		var c domain.Crossing
		var direction string
		if err := rows.Scan(&c.PairID, &c.Threshold, &direction, &c.Ratio, &c.At); err != nil {
			return nil, err
		}
		c.Direction = domain.Direction(direction)
		crossings = append(crossings, &c)
	}
	return crossings, rows.Err()
}
