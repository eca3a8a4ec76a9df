package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"zipdex/internal/model"
)

// Filter selects (archive, entry) pairs. All set conditions are combined
// with AND semantics. The zero Filter matches everything.
type Filter struct {
	Substring  string           // Case-insensitive substring of the entry path
	Regexp     string           // Regular expression matched against the entry path
	MinSize    int64            // Minimum entry size in bytes; 0 means no bound
	MaxSize    int64            // Maximum entry size in bytes; 0 means no bound
	Categories []model.Category // Entry must be in one of these categories; empty means any
	ArchiveID  string           // Restrict to a single archive
}

// Match is one (archive, entry) pair produced by a query.
type Match struct {
	Archive model.ArchiveRecord
	Entry   model.EntryRecord
}

// Query returns all pairs matching the filter, ordered by archive path,
// then archive identifier, then entry path, so results are deterministic.
func (s *Store) Query(ctx context.Context, f Filter) ([]Match, error) {
	query := `
		SELECT a.id, a.path, a.volume, a.size, a.hash, a.modified_at, a.scanned_at,
		       e.path, e.size, e.hash, e.category
		FROM archives a
		JOIN entries e ON e.archive_id = a.id
		WHERE 1=1`
	var args []any

	if f.Substring != "" {
		query += " AND e.path LIKE ? ESCAPE '\\' COLLATE NOCASE"
		args = append(args, "%"+escapeLike(f.Substring)+"%")
	}
	if f.Regexp != "" {
		query += " AND e.path REGEXP ?"
		args = append(args, f.Regexp)
	}
	if f.MinSize > 0 {
		query += " AND e.size >= ?"
		args = append(args, f.MinSize)
	}
	if f.MaxSize > 0 {
		query += " AND e.size <= ?"
		args = append(args, f.MaxSize)
	}
	if len(f.Categories) > 0 {
		query += " AND e.category IN (?" + strings.Repeat(",?", len(f.Categories)-1) + ")"
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}
	if f.ArchiveID != "" {
		query += " AND a.id = ?"
		args = append(args, f.ArchiveID)
	}

	query += " ORDER BY a.path, a.id, e.path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		err := rows.Scan(
			&m.Archive.ID, &m.Archive.Path, &m.Archive.Volume, &m.Archive.Size,
			&m.Archive.Hash, &m.Archive.ModifiedAt, &m.Archive.ScannedAt,
			&m.Entry.Path, &m.Entry.Size, &m.Entry.Hash, &m.Entry.Category,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Entry.ArchiveID = m.Archive.ID
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return matches, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ArchiveByID returns one archive record, or nil if no such archive exists.
func (s *Store) ArchiveByID(ctx context.Context, id string) (*model.ArchiveRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, volume, size, hash, modified_at, scanned_at
		FROM archives WHERE id = ?`, id)

	var rec model.ArchiveRecord
	err := row.Scan(&rec.ID, &rec.Path, &rec.Volume, &rec.Size, &rec.Hash, &rec.ModifiedAt, &rec.ScannedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding archive by id: %w", err)
	}
	return &rec, nil
}

// ArchiveInfo is an archive with its entry count, for listings.
type ArchiveInfo struct {
	model.ArchiveRecord
	EntryCount int
}

// ListArchives returns archives ordered by path with their entry counts.
// limit <= 0 means no limit.
func (s *Store) ListArchives(ctx context.Context, limit int) ([]ArchiveInfo, error) {
	query := `
		SELECT a.id, a.path, a.volume, a.size, a.hash, a.modified_at, a.scanned_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.archive_id = a.id)
		FROM archives a
		ORDER BY a.path, a.id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	defer rows.Close()

	var infos []ArchiveInfo
	for rows.Next() {
		var info ArchiveInfo
		err := rows.Scan(&info.ID, &info.Path, &info.Volume, &info.Size,
			&info.Hash, &info.ModifiedAt, &info.ScannedAt, &info.EntryCount)
		if err != nil {
			return nil, fmt.Errorf("scanning archive: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading archives: %w", err)
	}
	return infos, nil
}

// Stats summarizes the catalog contents.
func (s *Store) Stats(ctx context.Context) (*model.CatalogStats, error) {
	var stats model.CatalogStats

	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(DISTINCT volume) FROM archives),
		       (SELECT COUNT(*) FROM archives),
		       (SELECT COUNT(*) FROM entries),
		       (SELECT COALESCE(SUM(size), 0) FROM entries)`)
	if err := row.Scan(&stats.Volumes, &stats.Archives, &stats.Entries, &stats.TotalBytes); err != nil {
		return nil, fmt.Errorf("computing catalog stats: %w", err)
	}
	return &stats, nil
}

// DuplicateGroup is a set of entries sharing one content hash.
type DuplicateGroup struct {
	Hash    string
	Entries []Match
}

// FindDuplicates groups entries by content hash. Only entries with a
// computed hash participate; deduplication is an explicit query-time
// operation, never something the scanner does implicitly.
func (s *Store) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.path, a.volume, a.size, a.hash, a.modified_at, a.scanned_at,
		       e.path, e.size, e.hash, e.category
		FROM entries e
		JOIN archives a ON a.id = e.archive_id
		WHERE e.hash != ''
		  AND e.hash IN (SELECT hash FROM entries WHERE hash != '' GROUP BY hash HAVING COUNT(*) > 1)
		ORDER BY e.hash, a.path, e.path`)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var m Match
		err := rows.Scan(
			&m.Archive.ID, &m.Archive.Path, &m.Archive.Volume, &m.Archive.Size,
			&m.Archive.Hash, &m.Archive.ModifiedAt, &m.Archive.ScannedAt,
			&m.Entry.Path, &m.Entry.Size, &m.Entry.Hash, &m.Entry.Category,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning duplicate: %w", err)
		}
		m.Entry.ArchiveID = m.Archive.ID

		if len(groups) == 0 || groups[len(groups)-1].Hash != m.Entry.Hash {
			groups = append(groups, DuplicateGroup{Hash: m.Entry.Hash})
		}
		g := &groups[len(groups)-1]
		g.Entries = append(g.Entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading duplicates: %w", err)
	}
	return groups, nil
}
