package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-intel/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// sortableTime is a fixed-width UTC layout so stored timestamps order lexically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-intel/data/intel.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-intel", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "intel.db")

	// Open database with WAL mode; pragmas in the DSN apply to every pooled connection
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// WatermarkStore returns a WatermarkStore interface backed by this store.
func (s *Store) WatermarkStore() driven.WatermarkStore {
	return &watermarkStore{store: s}
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Watermark Store ====================

// watermarkStore implements driven.WatermarkStore.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// Save stores or updates sync state in a single upsert.
func (s *watermarkStore) Save(ctx context.Context, state domain.SyncState) error {
	if state.Provider == "" {
		return fmt.Errorf("%w: empty provider", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO watermarks (provider, watermark, last_sync, record_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			watermark = excluded.watermark,
			last_sync = excluded.last_sync,
			record_count = excluded.record_count
	`, state.Provider, state.Watermark.String(), nullTime(state.LastSync), state.RecordCount)

	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}

// Get retrieves sync state for a provider.
func (s *watermarkStore) Get(ctx context.Context, provider string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT provider, watermark, last_sync, record_count
		FROM watermarks WHERE provider = ?
	`, provider)

	var state domain.SyncState
	var watermark string
	var lastSync sql.NullString
	if err := row.Scan(&state.Provider, &watermark, &lastSync, &state.RecordCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning watermark: %w", err)
	}

	state.Watermark = domain.Watermark(watermark)
	state.LastSync = parseTime(lastSync)

	return &state, nil
}

// Delete removes sync state for a provider.
func (s *watermarkStore) Delete(ctx context.Context, provider string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM watermarks WHERE provider = ?", provider)
	if err != nil {
		return fmt.Errorf("deleting watermark: %w", err)
	}
	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Put upserts records in one transaction. A repeated provider/key
// replaces the stored record and bumps its seen count.
func (s *recordStore) Put(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (provider, key, key_type, risk_score, body, first_seen, last_seen, seen_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(provider, key) DO UPDATE SET
			key_type = excluded.key_type,
			risk_score = excluded.risk_score,
			body = excluded.body,
			last_seen = excluded.last_seen,
			seen_count = records.seen_count + 1
	`)
	if err != nil {
		return fmt.Errorf("preparing record upsert: %w", err)
	}
	defer stmt.Close()

	now := s.store.now().UTC().Format(sortableTime)
	for i := range records {
		r := &records[i]
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling record %s/%s: %w", r.Provider, r.Key, err)
		}
		var score any
		if v, ok := r.Score(); ok {
			score = v
		}
		if _, err := stmt.ExecContext(ctx, r.Provider, domain.NormalizeKey(r.Key),
			nullString(string(r.KeyType)), score, string(body), now, now); err != nil {
			return fmt.Errorf("saving record %s/%s: %w", r.Provider, r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

// Get returns the stored record for a provider and key.
func (s *recordStore) Get(ctx context.Context, provider, key string) (*domain.Record, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT body FROM records WHERE provider = ? AND key = ?",
		provider, domain.NormalizeKey(key))

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return decodeRecord(body)
}

// List returns stored records for a provider, most recently seen first.
func (s *recordStore) List(ctx context.Context, provider string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT body FROM records
		WHERE provider = ?
		ORDER BY last_seen DESC, key
		LIMIT ?
	`, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records for a provider.
func (s *recordStore) Count(ctx context.Context, provider string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE provider = ?", provider).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// SeenCount returns how many times a provider/key was delivered.
func (s *recordStore) SeenCount(ctx context.Context, provider, key string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT seen_count FROM records WHERE provider = ? AND key = ?",
		provider, domain.NormalizeKey(key)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading seen count: %w", err)
	}
	return n, nil
}

func decodeRecord(body string) (*domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling record: %w", err)
	}
	if rec.Data == nil {
		rec.Data = make(map[string]any)
	}
	return &rec, nil
}
