//go:build !windows

package volume

import (
	"os"
	"path/filepath"
)

// mountParents are directories whose immediate children are treated as
// mounted volumes on unix-like systems.
var mountParents = []string{"/mnt", "/media", "/Volumes"}

// enumerate lists the root filesystem plus anything mounted under the
// usual mount parents. Unreadable parents are simply skipped.
func enumerate() ([]Volume, error) {
	vols := []Volume{{Label: "root", Root: "/"}}

	for _, parent := range mountParents {
		dirEntries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		for _, de := range dirEntries {
			if !de.IsDir() {
				continue
			}
			root := filepath.Join(parent, de.Name())
			vols = append(vols, Volume{Label: LabelFor(root), Root: root})
		}
	}

	return vols, nil
}
