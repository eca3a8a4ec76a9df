// Package volume enumerates the storage roots a scan can cover. The
// heuristics are platform-specific collaborators; the scan coordinator
// only sees the resulting (label, root) pairs.
package volume

import (
	"path/filepath"
	"sort"
)

// Volume is one independently scannable storage root.
type Volume struct {
	Label string // Short identifier used in catalogs and progress output
	Root  string // Absolute mount path
}

// Enumerate returns the available volumes, minus any whose root is in
// exclude. Results are sorted by label for deterministic scan ordering.
func Enumerate(exclude []string) ([]Volume, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[filepath.Clean(e)] = true
	}

	vols, err := enumerate()
	if err != nil {
		return nil, err
	}

	filtered := vols[:0]
	for _, v := range vols {
		if !excluded[filepath.Clean(v.Root)] {
			filtered = append(filtered, v)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Label != filtered[j].Label {
			return filtered[i].Label < filtered[j].Label
		}
		return filtered[i].Root < filtered[j].Root
	})
	return filtered, nil
}

// LabelFor derives a volume label from a mount root.
func LabelFor(root string) string {
	base := filepath.Base(filepath.Clean(root))
	if base == "/" || base == "." || base == string(filepath.Separator) {
		return "root"
	}
	return base
}
