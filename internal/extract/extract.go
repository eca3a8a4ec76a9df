// Package extract resolves catalog selections and streams the selected
// entries back out of their source archives.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zipdex/internal/catalog"
	"zipdex/internal/progress"
)

// Error taxonomy for resolution and extraction.
var (
	// ErrAmbiguousSelection means a pattern matched more than one entry
	// and no interactive chooser was available to narrow it down.
	ErrAmbiguousSelection = errors.New("ambiguous selection")

	// ErrConfirmationRequired means an "all" extraction was attempted
	// without the explicit confirmation flag.
	ErrConfirmationRequired = errors.New("confirmation required for extracting everything")

	// ErrDestinationUnwritable means the destination directory cannot be
	// created or written to.
	ErrDestinationUnwritable = errors.New("destination unwritable")
)

// SelectorKind identifies how an extraction request picks entries.
type SelectorKind int

const (
	// SelectPattern matches entry paths by substring or regular expression.
	SelectPattern SelectorKind = iota

	// SelectArchive selects every entry of one archive by its identifier.
	SelectArchive

	// SelectAll selects every entry in the catalog.
	SelectAll
)

// Request describes what to extract.
type Request struct {
	Kind            SelectorKind
	Value           string // Pattern text or archive identifier; unused for SelectAll
	Regexp          bool   // Value is a regular expression (SelectPattern only)
	SecondaryFilter string // Optional name narrowing for SelectArchive and SelectAll
	ConfirmAll      bool   // Required for SelectAll to actually extract
}

// Result is the per-pair outcome of an extraction.
type Result struct {
	EntryPath    string
	OutputPath   string // Empty when the pair failed
	Err          error  // nil on success
	BytesWritten int64
	Duration     time.Duration
}

// Chooser narrows an ambiguous match set, typically by prompting the
// user. Implementations may return any non-empty subset.
type Chooser interface {
	Choose(matches []catalog.Match) ([]catalog.Match, error)
}

// Extractor resolves selections against a catalog and streams entries to
// disk. The catalog is treated as read-only throughout.
type Extractor struct {
	store    *catalog.Store
	reporter *progress.Throttle
	logger   progress.Logger
	chooser  Chooser // nil means non-interactive
}

// New creates an Extractor. chooser may be nil, in which case ambiguous
// pattern selections fail instead of prompting.
func New(store *catalog.Store, reporter progress.Reporter, logger progress.Logger, chooser Chooser) *Extractor {
	return &Extractor{
		store:    store,
		reporter: progress.NewThrottle(reporter, 0),
		logger:   logger,
		chooser:  chooser,
	}
}

// Resolve maps a request to the (archive, entry) pairs it selects.
// Pattern selections matching more than one entry are narrowed by the
// chooser when one is configured; otherwise they fail with
// ErrAmbiguousSelection. Resolution never touches the filesystem.
func (e *Extractor) Resolve(ctx context.Context, req Request) ([]catalog.Match, error) {
	switch req.Kind {
	case SelectPattern:
		return e.resolvePattern(ctx, req)
	case SelectArchive:
		return e.resolveArchive(ctx, req)
	case SelectAll:
		return e.store.Query(ctx, catalog.Filter{Substring: req.SecondaryFilter})
	default:
		return nil, fmt.Errorf("unknown selector kind: %d", req.Kind)
	}
}

func (e *Extractor) resolvePattern(ctx context.Context, req Request) ([]catalog.Match, error) {
	f := catalog.Filter{}
	if req.Regexp {
		f.Regexp = req.Value
	} else {
		f.Substring = req.Value
	}

	matches, err := e.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(matches) <= 1 {
		return matches, nil
	}

	if e.chooser == nil {
		return nil, fmt.Errorf("%w: pattern %q matched %d entries", ErrAmbiguousSelection, req.Value, len(matches))
	}

	chosen, err := e.chooser.Choose(matches)
	if err != nil {
		return nil, fmt.Errorf("choosing among matches: %w", err)
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: no selection made among %d matches", ErrAmbiguousSelection, len(matches))
	}
	return chosen, nil
}

func (e *Extractor) resolveArchive(ctx context.Context, req Request) ([]catalog.Match, error) {
	rec, err := e.store.ArchiveByID(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no archive with identifier %s", req.Value)
	}
	return e.store.Query(ctx, catalog.Filter{
		ArchiveID: rec.ID,
		Substring: req.SecondaryFilter,
	})
}

// Extract streams every pair to destDir. SelectAll requests must carry
// ConfirmAll; without it no filesystem write happens at all. Individual
// pair failures are recorded in their Result and never abort the batch.
func (e *Extractor) Extract(ctx context.Context, req Request, pairs []catalog.Match, destDir string) ([]Result, error) {
	if req.Kind == SelectAll && !req.ConfirmAll {
		return nil, ErrConfirmationRequired
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	if err := ensureDestination(destDir); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(pairs))
	for _, m := range pairs {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("extraction cancelled: %w", err)
		}

		res := e.extractOne(ctx, m, destDir)
		if res.Err != nil {
			e.logger.Error("extraction failed",
				"archive", m.Archive.Path, "entry", m.Entry.Path, "error", res.Err)
		} else {
			e.logger.Info("entry extracted",
				"entry", m.Entry.Path, "output", res.OutputPath, "bytes", res.BytesWritten)
		}
		results = append(results, res)
	}
	return results, nil
}
