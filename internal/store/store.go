// Package store persists extraction runs and their indicators in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thsensai/sensai/internal/ioc"
)

// DefaultDBPath is where runs are stored unless overridden.
const DefaultDBPath = "~/.sensai/sensai.db"

// Run is one completed extraction over a source.
type Run struct {
	ID           int64
	Source       string
	Model        string
	ChunkSize    int
	ChunkOverlap int
	IOCCount     int
	CreatedAt    time.Time
}

// Store wraps the SQLite database holding run history.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path. "~" expands to
// the user's home directory; ":memory:" opens an in-memory database.
func NewStore(path string) (*Store, error) {
	path = expandPath(path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	model TEXT NOT NULL,
	chunk_size INTEGER NOT NULL,
	chunk_overlap INTEGER NOT NULL,
	ioc_count INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS iocs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	value TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_iocs_run ON iocs(run_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// SaveRun records a completed extraction and its merged indicators in one
// transaction, returning the new run id.
func (s *Store) SaveRun(source, model string, chunkSize, chunkOverlap int, set *ioc.Set) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (source, model, chunk_size, chunk_overlap, ioc_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		source, model, chunkSize, chunkOverlap, set.Len(), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, item := range set.IOCs {
		if _, err := tx.Exec(
			`INSERT INTO iocs (run_id, type, value, context) VALUES (?, ?, ?, ?)`,
			runID, item.Type, item.Value, item.Context,
		); err != nil {
			return 0, fmt.Errorf("inserting IOC: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, source, model, chunk_size, chunk_overlap, ioc_count, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Model, &r.ChunkSize, &r.ChunkOverlap, &r.IOCCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id.
func (s *Store) GetRun(id int64) (*Run, error) {
	var r Run
	err := s.db.QueryRow(
		`SELECT id, source, model, chunk_size, chunk_overlap, ioc_count, created_at
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Source, &r.Model, &r.ChunkSize, &r.ChunkOverlap, &r.IOCCount, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}
	return &r, nil
}

// RunIOCs returns the stored indicators of a run in insertion order. The
// stored set is already merged; rows come back as saved.
func (s *Store) RunIOCs(runID int64) (*ioc.Set, error) {
	rows, err := s.db.Query(
		`SELECT type, value, context FROM iocs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading IOCs for run %d: %w", runID, err)
	}
	defer rows.Close()

	set := ioc.NewSet()
	for rows.Next() {
		var item ioc.IOC
		if err := rows.Scan(&item.Type, &item.Value, &item.Context); err != nil {
			return nil, fmt.Errorf("scanning IOC: %w", err)
		}
		set.Extend(item)
	}
	return set, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
