package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zipdex/internal/catalog"
	"zipdex/internal/extract"
	"zipdex/internal/model"
	"zipdex/internal/progress"
	"zipdex/internal/testutil"
)

// seedExtractFixture creates a real archive on disk and catalogs it.
func seedExtractFixture(t *testing.T, store *catalog.Store, id, vol string, entries map[string][]byte) string {
	t.Helper()
	ctx := context.Background()

	path := testutil.WriteZip(t, filepath.Join(t.TempDir(), "archive.zip"), entries)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat archive: %v", err)
	}

	rec := &model.ArchiveRecord{
		ID:         id,
		Path:       path,
		Volume:     vol,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		ScannedAt:  time.Now(),
	}
	if err := store.InsertArchive(ctx, rec); err != nil {
		t.Fatalf("seeding archive: %v", err)
	}

	var recs []model.EntryRecord
	for name, content := range entries {
		recs = append(recs, model.EntryRecord{
			ArchiveID: id,
			Path:      name,
			Size:      int64(len(content)),
			Category:  model.CategoryVideo,
		})
	}
	if err := store.InsertEntries(ctx, recs); err != nil {
		t.Fatalf("seeding entries: %v", err)
	}
	return path
}

func newExtractor(store *catalog.Store, chooser extract.Chooser) *extract.Extractor {
	return extract.New(store, progress.NopReporter{}, progress.NewNopLogger(), chooser)
}

// pickFirst is a Chooser that always takes the first match.
type pickFirst struct{}

func (pickFirst) Choose(matches []catalog.Match) ([]catalog.Match, error) {
	return matches[:1], nil
}

func TestExtractSingleMatch(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{
		"takeout/IMG_001.jpg": []byte("jpeg bytes"),
		"takeout/other.jpg":   []byte("more bytes"),
	})
	ex := newExtractor(store, nil)
	ctx := context.Background()

	req := extract.Request{Kind: extract.SelectPattern, Value: "IMG_001"}
	pairs, err := ex.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}

	dest := t.TempDir()
	results, err := ex.Extract(ctx, req, pairs, dest)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}

	out := filepath.Join(dest, "IMG_001.jpg")
	if results[0].OutputPath != out {
		t.Errorf("expected output %s, got %s", out, results[0].OutputPath)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(content) != "jpeg bytes" {
		t.Errorf("unexpected content %q", content)
	}
	if results[0].BytesWritten != int64(len("jpeg bytes")) {
		t.Errorf("BytesWritten = %d", results[0].BytesWritten)
	}
}

func TestResolveAmbiguousWithoutChooser(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{
		"a/IMG_001.jpg": []byte("x"),
		"b/IMG_002.jpg": []byte("y"),
	})
	ex := newExtractor(store, nil)

	_, err := ex.Resolve(context.Background(), extract.Request{Kind: extract.SelectPattern, Value: "IMG"})
	if !errors.Is(err, extract.ErrAmbiguousSelection) {
		t.Errorf("expected ErrAmbiguousSelection, got %v", err)
	}
}

func TestResolveAmbiguousWithChooser(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{
		"a/IMG_001.jpg": []byte("x"),
		"b/IMG_002.jpg": []byte("y"),
	})
	ex := newExtractor(store, pickFirst{})

	pairs, err := ex.Resolve(context.Background(), extract.Request{Kind: extract.SelectPattern, Value: "IMG"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Errorf("expected the chooser to narrow to 1, got %d", len(pairs))
	}
}

func TestResolveByArchive(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{
		"one.mp4": []byte("x"),
		"two.mp4": []byte("y"),
	})
	seedExtractFixture(t, store, "id-2", "usb", map[string][]byte{
		"three.mp4": []byte("z"),
	})
	ex := newExtractor(store, nil)
	ctx := context.Background()

	pairs, err := ex.Resolve(ctx, extract.Request{Kind: extract.SelectArchive, Value: "id-1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Errorf("expected 2 pairs, got %d", len(pairs))
	}

	_, err = ex.Resolve(ctx, extract.Request{Kind: extract.SelectArchive, Value: "id-99"})
	if err == nil {
		t.Error("expected an error for an unknown archive")
	}
}

func TestExtractAllRequiresConfirmation(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{"one.mp4": []byte("x")})
	ex := newExtractor(store, nil)
	ctx := context.Background()

	req := extract.Request{Kind: extract.SelectAll}
	pairs, err := ex.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out")
	_, err = ex.Extract(ctx, req, pairs, dest)
	if !errors.Is(err, extract.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}

	// The refusal must happen before any filesystem write.
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination was touched despite the refusal")
	}

	req.ConfirmAll = true
	results, err := ex.Extract(ctx, req, pairs, dest)
	if err != nil {
		t.Fatalf("confirmed Extract failed: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestExtractCollisionRenames(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb1", map[string][]byte{"dir1/clip.mp4": []byte("first")})
	seedExtractFixture(t, store, "id-2", "usb2", map[string][]byte{"dir2/clip.mp4": []byte("second")})
	ex := newExtractor(store, nil)
	ctx := context.Background()

	req := extract.Request{Kind: extract.SelectAll, ConfirmAll: true}
	pairs, err := ex.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	dest := t.TempDir()
	results, err := ex.Extract(ctx, req, pairs, dest)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	var outputs []string
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("pair failed: %v", r.Err)
		}
		outputs = append(outputs, filepath.Base(r.OutputPath))
	}
	if outputs[0] == outputs[1] {
		t.Fatalf("collision was not renamed: %v", outputs)
	}

	seen := map[string]bool{}
	for _, o := range outputs {
		seen[o] = true
	}
	if !seen["clip.mp4"] || !seen["clip.1.mp4"] {
		t.Errorf("expected clip.mp4 and clip.1.mp4, got %v", outputs)
	}
}

func TestExtractContinuesPastFailures(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedExtractFixture(t, store, "id-1", "usb", map[string][]byte{
		"keep.mp4": []byte("x"),
	})
	ctx := context.Background()

	// Catalog an entry the archive no longer contains.
	if err := store.InsertEntries(ctx, []model.EntryRecord{
		{ArchiveID: "id-1", Path: "vanished.mp4", Size: 5, Category: model.CategoryVideo},
	}); err != nil {
		t.Fatalf("seeding stale entry: %v", err)
	}

	ex := newExtractor(store, nil)
	req := extract.Request{Kind: extract.SelectAll, ConfirmAll: true}
	pairs, err := ex.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	results, err := ex.Extract(ctx, req, pairs, t.TempDir())
	if err != nil {
		t.Fatalf("a single stale entry must not abort the batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("expected 1 success and 1 failure, got %d/%d", ok, failed)
	}
}
