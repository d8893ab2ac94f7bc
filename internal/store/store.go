package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer: auth sessions, per-device
// key-value settings, the file-text cache and quiz results.
type Store struct {
	db *sql.DB
}

// pragmas are applied by the modernc driver to every new connection.
const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Pragma returns the value of a connection pragma such as journal_mode.
func (s *Store) Pragma(name string) (string, error) {
	var v string
	err := s.db.QueryRow("PRAGMA " + name).Scan(&v)
	return v, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		token_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (scope, key)
	);

	CREATE TABLE IF NOT EXISTS file_texts (
		file_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		size INTEGER NOT NULL,
		last_used_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_file_texts_last_used ON file_texts(last_used_at);

	CREATE TABLE IF NOT EXISTS quiz_results (
		attempt_id TEXT PRIMARY KEY,
		device TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL,
		course_name TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		incorrect INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		tier TEXT NOT NULL,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		finished_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
