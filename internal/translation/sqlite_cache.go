package translation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache keeps translations across runs in a SQLite database
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLiteCache opens or creates the cache database at path
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		backend TEXT NOT NULL,
		target TEXT NOT NULL,
		source TEXT NOT NULL,
		translation TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (backend, target, source)
	);`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache tables: %w", err)
	}
	return nil
}

// Get retrieves a translation from the cache
func (c *SQLiteCache) Get(ctx context.Context, backend, target, text string) (string, bool, error) {
	var translation string
	err := c.db.QueryRowContext(ctx,
		`SELECT translation FROM translations WHERE backend = ? AND target = ? AND source = ?`,
		backend, target, text).Scan(&translation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}
	return translation, true, nil
}

// Put stores a translation, replacing an older one for the same key
func (c *SQLiteCache) Put(ctx context.Context, backend, target, text, translation string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translations (backend, target, source, translation) VALUES (?, ?, ?, ?)`,
		backend, target, text, translation)
	if err != nil {
		return fmt.Errorf("failed to store translation: %w", err)
	}
	return nil
}

// Len returns the number of cached translations
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Close closes the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
