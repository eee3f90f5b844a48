package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/majito0703/measure-data-logger/internal/models"
)

const cacheLoaderName = "local-cache"

// Cache is the secondary loading strategy: a local sqlite table holding the
// raw rows of the most recent successful sheet download. It lets a run survive
// an unreachable sheet with real (if slightly stale) data instead of synthetic
// values.
type Cache struct {
	path   string
	window int
}

// NewCache creates a cache strategy backed by the sqlite file at path.
func NewCache(path string, window int) *Cache {
	return &Cache{path: path, window: window}
}

// Name implements Strategy.
func (c *Cache) Name() string {
	return cacheLoaderName
}

// Load reads the trailing window of cached rows.
func (c *Cache) Load(ctx context.Context) (*models.RawTable, error) {
	if _, err := os.Stat(c.path); err != nil {
		return nil, fmt.Errorf("no cache at %s: %w", c.path, err)
	}

	db, err := c.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var headerJSON string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'header'`).Scan(&headerJSON); err != nil {
		return nil, fmt.Errorf("cache has no header: %w", err)
	}
	var header []string
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		return nil, fmt.Errorf("cache header is corrupt: %w", err)
	}

	// Trailing window in original order: select the newest rows, then reverse.
	rows, err := db.QueryContext(ctx,
		`SELECT row_json FROM readings ORDER BY id DESC LIMIT ?`, c.window)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rows: %w", err)
	}
	defer rows.Close()

	var reversed [][]string
	for rows.Next() {
		var rowJSON string
		if err := rows.Scan(&rowJSON); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(rowJSON), &cells); err != nil {
			return nil, fmt.Errorf("cached row is corrupt: %w", err)
		}
		reversed = append(reversed, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data := make([][]string, len(reversed))
	for i, row := range reversed {
		data[len(reversed)-1-i] = row
	}

	return &models.RawTable{Header: header, Rows: data, Source: c.Name()}, nil
}

// Refresh replaces the cache contents with the given table.
func (c *Cache) Refresh(table *models.RawTable) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	headerJSON, err := json.Marshal(table.Header)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('header', ?)`, string(headerJSON)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM readings`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO readings (row_json) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range table.Rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(string(rowJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (c *Cache) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS readings (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			row_json TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return db, nil
}
