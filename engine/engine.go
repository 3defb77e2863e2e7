package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// OpenFile opens a file-backed SQLite database, creating the parent directory
// when needed. The connection is configured for a single writer with a busy
// timeout so that concurrent readers wait instead of failing with SQLITE_BUSY.
func OpenFile(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("engine: empty database path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("engine: create directory %s: %w", dir, err)
		}
	}
	db, err := Open(path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("engine: open %s: %w", path, err)
	}
	return db, nil
}
