package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"zipdex/internal/model"
)

// ErrMergeConflict indicates a merge hit a duplicate key that violates a
// catalog invariant (e.g. two archives with the same (path, volume) but
// different identifiers). The offending source store is rolled back in
// full; previously merged sources are unaffected.
var ErrMergeConflict = errors.New("merge conflict")

// MergeFrom copies every archive and entry record from other into s.
// Archive identifiers are globally unique UUIDs minted at probe time, so
// records move over without re-keying. The whole source is applied in a
// single transaction: either all of its records land, or none do.
// Records whose natural key already exists in s are skipped, which makes
// re-merging the same source a no-op.
func (s *Store) MergeFrom(ctx context.Context, other *Store) (*model.MergeSummary, error) {
	start := time.Now()

	if other.path == "" || other.path == ":memory:" {
		return nil, fmt.Errorf("cannot merge from a store without a backing file")
	}

	// ATTACH is per-connection and cannot run inside a transaction, so pin
	// one connection for the whole merge.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS src`, other.path); err != nil {
		return nil, fmt.Errorf("attaching source store: %w", err)
	}
	defer conn.ExecContext(context.Background(), `DETACH DATABASE src`)

	var srcArchives, srcEntries int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM src.archives`).Scan(&srcArchives); err != nil {
		return nil, fmt.Errorf("counting source archives: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM src.entries`).Scan(&srcEntries); err != nil {
		return nil, fmt.Errorf("counting source entries: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting merge transaction: %w", err)
	}
	defer tx.Rollback()

	// Archives before their dependent entries (referential integrity).
	res, err := tx.ExecContext(ctx, `
		INSERT INTO main.archives (id, path, volume, size, hash, modified_at, scanned_at)
		SELECT id, path, volume, size, hash, modified_at, scanned_at FROM src.archives
		WHERE true
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return nil, wrapMergeErr("merging archives", err)
	}
	mergedArchives, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("counting merged archives: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO main.entries (archive_id, path, size, hash, category)
		SELECT archive_id, path, size, hash, category FROM src.entries
		WHERE true
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return nil, wrapMergeErr("merging entries", err)
	}
	mergedEntries, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("counting merged entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}

	return &model.MergeSummary{
		Archives:        int(mergedArchives),
		Entries:         int(mergedEntries),
		SkippedArchives: srcArchives - int(mergedArchives),
		SkippedEntries:  srcEntries - int(mergedEntries),
		Elapsed:         time.Since(start),
	}, nil
}

// wrapMergeErr maps SQLite constraint failures onto ErrMergeConflict so
// callers can distinguish invariant violations from I/O trouble.
func wrapMergeErr(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w: %v", op, ErrMergeConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
