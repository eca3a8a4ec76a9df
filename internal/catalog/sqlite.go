package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"

	"github.com/mattn/go-sqlite3"

	"zipdex/internal/catalog/migrations"
	"zipdex/internal/model"
)

// driverName is a mattn/go-sqlite3 driver variant with a REGEXP function
// backed by Go's regexp package, so query filters can use regular
// expressions directly in SQL.
const driverName = "sqlite3_regexp"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", func(pattern, s string) (bool, error) {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return false, err
				}
				return re.MatchString(s), nil
			}, true)
		},
	})
}

// Store is a SQLite-backed catalog of archives and their entries.
// A Store is either the final catalog or a per-job isolated instance;
// both use the same schema.
type Store struct {
	db       *sql.DB
	path     string
	isolated bool
}

// Open opens (creating if necessary) the catalog at path and brings its
// schema to the latest version. path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := openConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenIsolated allocates a fresh store backed by a new temporary file in
// dir. The store shares nothing with any other instance; Dispose removes
// its backing file.
func OpenIsolated(dir string) (*Store, error) {
	f, err := os.CreateTemp(dir, "zipdex-job-*.db")
	if err != nil {
		return nil, fmt.Errorf("creating isolated store file: %w", err)
	}
	path := f.Name()
	f.Close()

	// SQLite wants to create the file itself.
	os.Remove(path)

	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	s.isolated = true
	return s, nil
}

// openConnection opens and configures a SQLite connection with the
// PRAGMAs the catalog depends on.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward
	// compatibility). Entry cleanup on archive removal depends on this.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// InsertArchive records an archive. Re-inserting an archive with an
// existing (path, volume) key updates the mutable fields and keeps the
// original identifier.
func (s *Store) InsertArchive(ctx context.Context, rec *model.ArchiveRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archives (id, path, volume, size, hash, modified_at, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path, volume) DO UPDATE SET
			size = excluded.size,
			hash = excluded.hash,
			modified_at = excluded.modified_at,
			scanned_at = excluded.scanned_at`,
		rec.ID, rec.Path, rec.Volume, rec.Size, rec.Hash, rec.ModifiedAt, rec.ScannedAt)
	if err != nil {
		return fmt.Errorf("inserting archive %s: %w", rec.Path, err)
	}
	return nil
}

// InsertEntries records a batch of entries in a single transaction.
// Re-inserting an entry with an existing (archive id, path) key updates
// rather than duplicates.
func (s *Store) InsertEntries(ctx context.Context, recs []model.EntryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (archive_id, path, size, hash, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (archive_id, path) DO UPDATE SET
			size = excluded.size,
			hash = excluded.hash,
			category = excluded.category`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		rec := &recs[i]
		if _, err := stmt.ExecContext(ctx, rec.ArchiveID, rec.Path, rec.Size, rec.Hash, rec.Category); err != nil {
			return fmt.Errorf("inserting entry %s: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entry batch: %w", err)
	}
	return nil
}

// UpdateEntryHash stores a computed content hash for one entry.
func (s *Store) UpdateEntryHash(ctx context.Context, archiveID, entryPath, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE entries SET hash = ? WHERE archive_id = ? AND path = ?`,
		hash, archiveID, entryPath)
	if err != nil {
		return fmt.Errorf("updating entry hash: %w", err)
	}
	return nil
}

// DeleteArchive removes an archive and, transitively, all its entries.
func (s *Store) DeleteArchive(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM archives WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting archive: %w", err)
	}
	return nil
}

// Path returns the store's backing file path (":memory:" for in-memory stores).
func (s *Store) Path() string {
	return s.path
}

// CheckMigrations verifies the catalog schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the store's connection without touching the backing file.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dispose releases the store's resources. For isolated stores the backing
// file is deleted, leaving no trace.
func (s *Store) Dispose() error {
	err := s.Close()
	if s.isolated && s.path != "" && s.path != ":memory:" {
		os.Remove(s.path)
		os.Remove(s.path + "-journal")
		os.Remove(s.path + "-wal")
		os.Remove(s.path + "-shm")
	}
	return err
}
