// Package journal archives committed turns and canonical state snapshots in
// SQLite. The archive is what makes the runtime's optimism safe: any
// committed turn can be re-read later, together with the snapshot it started
// from and the provider kind that produced it, and handed to the challenge
// verifier.
package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

const dbName = "dungeond.db"

// ErrNotFound is returned when a session, turn, or snapshot does not exist.
var ErrNotFound = errors.New("not found")

//go:embed sql/*.sql
var migrationsFS embed.FS

// Store wraps the journal database.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

// Open creates the data directory if needed, opens the database and applies
// migrations.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(dataDir, dbName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db, Now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) migrate() error {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, name := range names {
		ddl, err := migrationsFS.ReadFile("sql/" + name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(ddl)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
