package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteZip creates a ZIP archive at path with the given entries, creating
// parent directories as needed. Map iteration order does not matter to the
// readers under test; entries land wherever the writer puts them.
func WriteZip(t *testing.T, path string, entries map[string][]byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating archive directory: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating entry %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return path
}

// WriteCorruptZip creates a file that starts with the ZIP magic but has no
// readable structure behind it.
func WriteCorruptZip(t *testing.T, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating archive directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("PK\x03\x04garbage that is not a central directory"), 0644); err != nil {
		t.Fatalf("writing corrupt archive: %v", err)
	}
	return path
}

// WriteFile creates a plain file with the given content, creating parent
// directories as needed.
func WriteFile(t *testing.T, path string, content []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}
