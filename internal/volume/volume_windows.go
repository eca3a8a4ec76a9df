//go:build windows

package volume

import "os"

// enumerate probes drive letters A-Z for mounted volumes.
func enumerate() ([]Volume, error) {
	var vols []Volume
	for letter := 'A'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if _, err := os.Stat(root); err != nil {
			continue
		}
		vols = append(vols, Volume{Label: string(letter) + ":", Root: root})
	}
	return vols, nil
}
