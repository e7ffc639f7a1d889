package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ErrLocked is returned when another process holds the store lock past the timeout.
var ErrLocked = errors.New("store is locked by another process")

// Store persists round history and agent state in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	peer_id TEXT NOT NULL UNIQUE,
	created_at INTEGER
);

CREATE TABLE IF NOT EXISTS rounds (
	agent_id TEXT NOT NULL,
	round INTEGER NOT NULL,
	completed_at INTEGER,
	PRIMARY KEY (agent_id, round),
	FOREIGN KEY(agent_id) REFERENCES agents(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transfers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	round INTEGER NOT NULL,
	kind TEXT NOT NULL,
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	FOREIGN KEY(agent_id, round) REFERENCES rounds(agent_id, round) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_transfers_round ON transfers(agent_id, round);

CREATE TABLE IF NOT EXISTS agent_state (
	agent_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at INTEGER,
	FOREIGN KEY(agent_id) REFERENCES agents(id) ON DELETE CASCADE
);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; agents in the same process share the handle
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) withTx(fn func(*sql.Tx) error) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Lock takes an exclusive advisory lock next to the database file, retrying
// until timeout. The caller must Unlock the returned lock.
func Lock(ctx context.Context, dbPath string, timeout time.Duration) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(dbPath + ".lock")

	if timeout <= 0 {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
		}
		if !ok {
			return nil, ErrLocked
		}
		return fl, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl, nil
}
