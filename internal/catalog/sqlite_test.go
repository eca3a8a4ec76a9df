package catalog_test

import (
	"context"
	"os"
	"testing"
	"time"

	"zipdex/internal/catalog"
	"zipdex/internal/model"
	"zipdex/internal/testutil"
)

func testArchive(id, path, vol string) *model.ArchiveRecord {
	return &model.ArchiveRecord{
		ID:         id,
		Path:       path,
		Volume:     vol,
		Size:       1024,
		ModifiedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		ScannedAt:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestInsertArchiveIdempotent(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := testArchive("id-1", "/mnt/usb/photos.zip", "usb")
	if err := store.InsertArchive(ctx, rec); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	// Re-inserting the same (path, volume) with a new ID keeps the
	// original identifier and updates the mutable fields.
	again := testArchive("id-2", "/mnt/usb/photos.zip", "usb")
	again.Size = 2048
	if err := store.InsertArchive(ctx, again); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	got, err := store.ArchiveByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("ArchiveByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("original archive vanished after re-insert")
	}
	if got.Size != 2048 {
		t.Errorf("expected updated size 2048, got %d", got.Size)
	}

	gone, err := store.ArchiveByID(ctx, "id-2")
	if err != nil {
		t.Fatalf("ArchiveByID failed: %v", err)
	}
	if gone != nil {
		t.Error("re-insert should not have created a second record")
	}
}

func TestSameBasenameDifferentVolumes(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	a := testArchive("id-1", "/mnt/usb1/photos.zip", "usb1")
	b := testArchive("id-2", "/mnt/usb2/photos.zip", "usb2")
	if err := store.InsertArchive(ctx, a); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.InsertArchive(ctx, b); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	infos, err := store.ListArchives(ctx, 0)
	if err != nil {
		t.Fatalf("ListArchives failed: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected 2 distinct archives, got %d", len(infos))
	}
}

func TestDeleteArchiveCascades(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := testArchive("id-1", "/mnt/usb/photos.zip", "usb")
	if err := store.InsertArchive(ctx, rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	entries := []model.EntryRecord{
		{ArchiveID: "id-1", Path: "a.mp4", Size: 10, Category: model.CategoryVideo},
		{ArchiveID: "id-1", Path: "b.mp4", Size: 20, Category: model.CategoryVideo},
	}
	if err := store.InsertEntries(ctx, entries); err != nil {
		t.Fatalf("InsertEntries failed: %v", err)
	}

	if err := store.DeleteArchive(ctx, "id-1"); err != nil {
		t.Fatalf("DeleteArchive failed: %v", err)
	}

	matches, err := store.Query(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected entries to be removed with their archive, found %d", len(matches))
	}
}

func TestInsertEntriesIdempotent(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := store.InsertArchive(ctx, testArchive("id-1", "/mnt/usb/a.zip", "usb")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	first := []model.EntryRecord{{ArchiveID: "id-1", Path: "clip.mp4", Size: 10, Category: model.CategoryVideo}}
	if err := store.InsertEntries(ctx, first); err != nil {
		t.Fatalf("InsertEntries failed: %v", err)
	}

	second := []model.EntryRecord{{ArchiveID: "id-1", Path: "clip.mp4", Size: 99, Category: model.CategoryVideo}}
	if err := store.InsertEntries(ctx, second); err != nil {
		t.Fatalf("re-insert failed: %v", err)
	}

	matches, err := store.Query(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(matches))
	}
	if matches[0].Entry.Size != 99 {
		t.Errorf("expected updated size 99, got %d", matches[0].Entry.Size)
	}
}

func TestUpdateEntryHash(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := store.InsertArchive(ctx, testArchive("id-1", "/mnt/usb/a.zip", "usb")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.InsertEntries(ctx, []model.EntryRecord{
		{ArchiveID: "id-1", Path: "clip.mp4", Size: 10, Category: model.CategoryVideo},
	}); err != nil {
		t.Fatalf("InsertEntries failed: %v", err)
	}

	if err := store.UpdateEntryHash(ctx, "id-1", "clip.mp4", "abc123"); err != nil {
		t.Fatalf("UpdateEntryHash failed: %v", err)
	}

	matches, err := store.Query(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if matches[0].Entry.Hash != "abc123" {
		t.Errorf("expected hash abc123, got %q", matches[0].Entry.Hash)
	}
}

func TestDisposeRemovesIsolatedStore(t *testing.T) {
	store, err := catalog.OpenIsolated(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIsolated failed: %v", err)
	}
	path := store.Path()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("isolated store has no backing file: %v", err)
	}

	if err := store.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected backing file to be removed, stat returned %v", err)
	}
}
