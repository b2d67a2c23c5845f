package manager

import "path/filepath"

// normalizeFilePath cleans a user-supplied file-backed device path so
// repeated registrations of equivalent paths (e.g. "./x.img" and
// "x.img") collapse to the same pathIndex entry.
func normalizeFilePath(path string) string {
	return filepath.Clean(path)
}
