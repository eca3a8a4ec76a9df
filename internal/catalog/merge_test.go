package catalog_test

import (
	"context"
	"testing"

	"zipdex/internal/catalog"
	"zipdex/internal/model"
	"zipdex/internal/testutil"
)

func newIsolated(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.OpenIsolated(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIsolated failed: %v", err)
	}
	t.Cleanup(func() { store.Dispose() })
	return store
}

func seedStore(t *testing.T, store *catalog.Store, id, path, vol string, entryPaths ...string) {
	t.Helper()
	ctx := context.Background()

	if err := store.InsertArchive(ctx, testArchive(id, path, vol)); err != nil {
		t.Fatalf("seeding archive: %v", err)
	}
	var entries []model.EntryRecord
	for _, p := range entryPaths {
		entries = append(entries, model.EntryRecord{
			ArchiveID: id, Path: p, Size: 100, Category: model.CategoryVideo,
		})
	}
	if err := store.InsertEntries(ctx, entries); err != nil {
		t.Fatalf("seeding entries: %v", err)
	}
}

func TestMergeFromSumsSources(t *testing.T) {
	ctx := context.Background()
	final := testutil.NewTestStore(t)

	src1 := newIsolated(t)
	seedStore(t, src1, "id-1", "/mnt/usb1/a.zip", "usb1", "one.mp4", "two.mp4")

	src2 := newIsolated(t)
	seedStore(t, src2, "id-2", "/mnt/usb2/b.zip", "usb2", "three.mp4")

	s1, err := final.MergeFrom(ctx, src1)
	if err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	s2, err := final.MergeFrom(ctx, src2)
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	if s1.Archives+s2.Archives != 2 {
		t.Errorf("expected 2 merged archives, got %d", s1.Archives+s2.Archives)
	}
	if s1.Entries+s2.Entries != 3 {
		t.Errorf("expected 3 merged entries, got %d", s1.Entries+s2.Entries)
	}

	stats, err := final.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Archives != 2 || stats.Entries != 3 {
		t.Errorf("catalog totals off: %d archives, %d entries", stats.Archives, stats.Entries)
	}
	if stats.Volumes != 2 {
		t.Errorf("expected 2 volumes, got %d", stats.Volumes)
	}
}

func TestMergeFromIdempotent(t *testing.T) {
	ctx := context.Background()
	final := testutil.NewTestStore(t)

	src := newIsolated(t)
	seedStore(t, src, "id-1", "/mnt/usb/a.zip", "usb", "one.mp4", "two.mp4")

	if _, err := final.MergeFrom(ctx, src); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}

	// Merging the same source again skips every row.
	summary, err := final.MergeFrom(ctx, src)
	if err != nil {
		t.Fatalf("re-merge failed: %v", err)
	}
	if summary.Archives != 0 || summary.Entries != 0 {
		t.Errorf("re-merge imported rows: %d archives, %d entries", summary.Archives, summary.Entries)
	}
	if summary.SkippedArchives != 1 || summary.SkippedEntries != 2 {
		t.Errorf("expected 1 skipped archive and 2 skipped entries, got %d and %d",
			summary.SkippedArchives, summary.SkippedEntries)
	}

	stats, err := final.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Archives != 1 || stats.Entries != 2 {
		t.Errorf("catalog changed on re-merge: %d archives, %d entries", stats.Archives, stats.Entries)
	}
}

func TestMergeFromKeepsSourceIDs(t *testing.T) {
	ctx := context.Background()
	final := testutil.NewTestStore(t)

	src := newIsolated(t)
	seedStore(t, src, "id-42", "/mnt/usb/a.zip", "usb", "one.mp4")

	if _, err := final.MergeFrom(ctx, src); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	got, err := final.ArchiveByID(ctx, "id-42")
	if err != nil {
		t.Fatalf("ArchiveByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("archive was re-keyed during merge")
	}
}
