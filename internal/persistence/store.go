package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS tabs (
	tab_key          INTEGER PRIMARY KEY,
	backing_resource TEXT NOT NULL,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the durable key -> backing-resource mapping behind tab
// restoration. One row per key; each entry is upserted and removed
// independently, so no cross-key transactions are needed.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// New opens (or creates) the store at path and ensures the schema exists.
func New(path string, logger *logging.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	// WAL keeps concurrent readers off the writer's back; the busy timeout
	// covers the restart-while-previous-process-exits window.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	logger.Info("persistence store ready", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// LoadAll reads the persisted key -> backing-resource mapping. A store with
// no rows (first run) yields an empty map, not an error.
func (s *Store) LoadAll(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tab_key, backing_resource FROM tabs`)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted tabs: %w", err)
	}
	defer rows.Close()

	entries := make(map[int]string)
	for rows.Next() {
		var key int
		var resource string
		if err := rows.Scan(&key, &resource); err != nil {
			return nil, fmt.Errorf("failed to scan tab row: %w", err)
		}
		entries[key] = resource
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tab rows: %w", err)
	}

	return entries, nil
}

// Put upserts the backing resource for key.
func (s *Store) Put(ctx context.Context, key int, backingResource string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tabs (tab_key, backing_resource) VALUES (?, ?)
		ON CONFLICT(tab_key) DO UPDATE SET
			backing_resource = excluded.backing_resource,
			updated_at = CURRENT_TIMESTAMP`,
		key, backingResource,
	)
	if err != nil {
		return fmt.Errorf("failed to persist tab %d: %w", key, err)
	}
	return nil
}

// Remove deletes the entry for key. Absent keys are not an error.
func (s *Store) Remove(ctx context.Context, key int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tabs WHERE tab_key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove persisted tab %d: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
