// Package distcache persists raw pair distances in SQLite so repeated runs
// over the same sites skip geodesic and shortest-path work.
package distcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Store is a SQLite-backed distance.Cache. Keys are the namespace plus both
// coordinates rounded to five decimals (about one meter).
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Entry is one cached measurement.
type Entry struct {
	Namespace string
	Origin    design.Location
	Dest      design.Location
	Meters    float64
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open distance cache: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}
	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logrus.Debugf("distcache: opened %s", path)
	return s, nil
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == nil {
		if version != schemaVersion {
			return fmt.Errorf("unsupported cache schema version %d (want %d)", version, schemaVersion)
		}
		return nil
	}
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS distance_cache (
		namespace  TEXT NOT NULL,
		origin_lat REAL NOT NULL,
		origin_lon REAL NOT NULL,
		dest_lat   REAL NOT NULL,
		dest_lon   REAL NOT NULL,
		meters     REAL NOT NULL,
		PRIMARY KEY (namespace, origin_lat, origin_lon, dest_lat, dest_lon)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func round(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Get looks up a measurement.
func (s *Store) Get(ctx context.Context, namespace string, a, b design.Location) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT meters FROM distance_cache
	          WHERE namespace = ? AND origin_lat = ? AND origin_lon = ? AND dest_lat = ? AND dest_lon = ?`
	var meters float64
	err := s.db.QueryRowContext(ctx, query, namespace, round(a.Lat), round(a.Lon), round(b.Lat), round(b.Lon)).Scan(&meters)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get distance cache entry: %w", err)
	}
	return meters, true, nil
}

// Put stores the measurements of one namespace in a single transaction,
// replacing previous values.
func (s *Store) Put(ctx context.Context, namespace string, ms []distance.Measurement) error {
	entries := make([]Entry, len(ms))
	for i, m := range ms {
		entries[i] = Entry{Namespace: namespace, Origin: m.Origin, Dest: m.Dest, Meters: m.Meters}
	}
	return s.SetBatch(ctx, entries)
}

// SetBatch stores several measurements in one transaction.
func (s *Store) SetBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO distance_cache
	          (namespace, origin_lat, origin_lon, dest_lat, dest_lon, meters)
	          VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if math.IsNaN(e.Meters) || math.IsInf(e.Meters, 0) || e.Meters < 0 {
			return fmt.Errorf("invalid distance %f for %s->%s", e.Meters, e.Origin, e.Dest)
		}
		_, err := stmt.ExecContext(ctx, e.Namespace,
			round(e.Origin.Lat), round(e.Origin.Lon), round(e.Dest.Lat), round(e.Dest.Lon), e.Meters)
		if err != nil {
			return fmt.Errorf("failed to insert cache entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Len counts the entries of a namespace, or of all namespaces when empty.
func (s *Store) Len(ctx context.Context, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	var err error
	if namespace == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM distance_cache").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM distance_cache WHERE namespace = ?", namespace).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM distance_cache"); err != nil {
		return fmt.Errorf("failed to clear distance cache: %w", err)
	}
	return nil
}
