package state

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver

	"github.com/hnipps/huntarr/internal/filesystem"
	"github.com/hnipps/huntarr/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	movie_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_category ON processed(category, seq);

CREATE TABLE IF NOT EXISTS state_meta (
	category TEXT PRIMARY KEY,
	touched_at INTEGER NOT NULL
);
`

// SQLiteStore keeps processed IDs in a single SQLite database
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLiteStore opens (or creates) huntarr.db in the state directory
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	if err := filesystem.NewFileSystem().EnsureDir(opts.Dir); err != nil {
		return nil, err
	}

	dsn := filepath.Join(opts.Dir, "huntarr.db") + "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer, one loop
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	now := opts.Clock.Now().UnixNano()
	for _, category := range models.Categories {
		if _, err := db.Exec(`INSERT OR IGNORE INTO state_meta (category, touched_at) VALUES (?, ?)`, string(category), now); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize %s metadata: %w", category, err)
		}
	}

	return &SQLiteStore{db: db, opts: opts}, nil
}

// Load returns the processed IDs of a category in insertion order
func (s *SQLiteStore) Load(category models.Category) (*IDSet, error) {
	ids, err := s.ids(category)
	if err != nil {
		return NewIDSet(), err
	}
	return NewIDSet(ids...), nil
}

// Mark inserts id and bumps the category's touched time in one transaction
func (s *SQLiteStore) Mark(category models.Category, id int) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO processed (category, movie_id) VALUES (?, ?)`, string(category), id); err != nil {
		return fmt.Errorf("failed to mark movie %d as processed: %w", id, err)
	}
	if err := touch(tx, category, s.opts.Clock.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

// MaybeReset deletes the category's rows once its touched time is old enough
func (s *SQLiteStore) MaybeReset(category models.Category, now time.Time) (bool, error) {
	if s.opts.ResetInterval <= 0 {
		return false, nil
	}

	touched, err := s.LastTouched(category)
	if err != nil {
		return false, err
	}
	if !resetDue(now, touched, s.opts.ResetInterval) {
		return false, nil
	}

	if err := s.Reset(category); err != nil {
		return false, err
	}
	return true, nil
}

// Reset deletes every row of the category
func (s *SQLiteStore) Reset(category models.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM processed WHERE category = ?`, string(category)); err != nil {
		return fmt.Errorf("failed to reset processed %s IDs: %w", category, err)
	}
	if err := touch(tx, category, s.opts.Clock.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

// Truncate deletes all but the newest entries when the set is too large
func (s *SQLiteStore) Truncate(category models.Category) (bool, error) {
	ids, err := s.ids(category)
	if err != nil {
		return false, err
	}

	if _, truncated := truncateIDs(ids, logSize(ids), s.opts.TruncateBytes, s.opts.MaxEntries); !truncated {
		return false, nil
	}

	_, err = s.db.Exec(`
		DELETE FROM processed
		WHERE category = ? AND seq NOT IN (
			SELECT seq FROM processed WHERE category = ? ORDER BY seq DESC LIMIT ?
		)`, string(category), string(category), s.opts.MaxEntries)
	if err != nil {
		return false, fmt.Errorf("failed to truncate processed %s IDs: %w", category, err)
	}
	return true, nil
}

// LastTouched returns the category's last write or reset time
func (s *SQLiteStore) LastTouched(category models.Category) (time.Time, error) {
	if err := checkCategory(category); err != nil {
		return time.Time{}, err
	}

	var nanos int64
	err := s.db.QueryRow(`SELECT touched_at FROM state_meta WHERE category = ?`, string(category)).Scan(&nanos)
	if err == sql.ErrNoRows {
		return s.opts.Clock.Now(), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read %s metadata: %w", category, err)
	}
	return time.Unix(0, nanos), nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ids(category models.Category) ([]int, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT movie_id FROM processed WHERE category = ? ORDER BY seq`, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query processed %s IDs: %w", category, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan processed %s ID: %w", category, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func touch(tx *sql.Tx, category models.Category, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO state_meta (category, touched_at) VALUES (?, ?)
		ON CONFLICT(category) DO UPDATE SET touched_at = excluded.touched_at`,
		string(category), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to update %s metadata: %w", category, err)
	}
	return nil
}
