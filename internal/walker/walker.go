// Package walker discovers candidate archive files beneath a volume root.
// Traversal is pure: it never follows symlinks, never aborts the whole
// walk on a per-path failure, and is restartable because it keeps no state
// between invocations.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects which parts of a volume are searched.
type Mode int

const (
	// MarkerOnly scans only marker folders found directly under the root,
	// recursing fully beneath each match.
	MarkerOnly Mode = iota

	// FullTree scans the entire tree beneath the root, skipping any
	// directory whose name is in the exclusion set.
	FullTree
)

// Policy configures a discovery walk.
type Policy struct {
	Mode         Mode
	MarkerFolder string   // Folder name matched case-insensitively in MarkerOnly mode
	ExcludedDirs []string // Directory names skipped in FullTree mode
}

// VisitFunc receives each discovered archive path. Returning an error
// stops the walk and propagates the error to the Discover caller; this is
// how cancellation reaches the walker.
type VisitFunc func(path string) error

// SkipFunc receives paths that could not be traversed, with the reason.
// Skips never abort the walk.
type SkipFunc func(path string, reason error)

// Discover walks root per the policy, calling visit for every ZIP archive
// found. Per-path failures (permission denied, vanished files) go to skip.
// A missing or unreadable root is also a skip, not an error.
func Discover(root string, policy Policy, visit VisitFunc, skip SkipFunc) error {
	if skip == nil {
		skip = func(string, error) {}
	}

	switch policy.Mode {
	case MarkerOnly:
		return discoverMarkerFolders(root, policy.MarkerFolder, visit, skip)
	default:
		return discoverTree(root, policy.ExcludedDirs, visit, skip)
	}
}

// discoverMarkerFolders finds direct children of root whose name matches
// the marker folder, then walks each fully.
func discoverMarkerFolders(root, marker string, visit VisitFunc, skip SkipFunc) error {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		skip(root, err)
		return nil
	}

	for _, de := range dirEntries {
		if !de.IsDir() || !strings.EqualFold(de.Name(), marker) {
			continue
		}
		if err := discoverTree(filepath.Join(root, de.Name()), nil, visit, skip); err != nil {
			return err
		}
	}
	return nil
}

// discoverTree walks the whole tree beneath root, yielding ZIP files.
func discoverTree(root string, excludedDirs []string, visit VisitFunc, skip SkipFunc) error {
	excluded := make(map[string]bool, len(excludedDirs))
	for _, d := range excludedDirs {
		excluded[d] = true
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skip(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		// WalkDir does not follow symlinks; also ignore symlinked files so
		// the same archive is never yielded through a link.
		if !d.Type().IsRegular() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".zip") {
			return nil
		}
		return visit(path)
	})
	return walkErr
}
