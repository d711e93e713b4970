package provider

import (
	"os"
	"path/filepath"
)

// DocumentPath returns where a downloaded document should be written and
// whether the download should proceed. A file already present under dir is
// skipped, which makes statement re-fetches idempotent.
func DocumentPath(dir, filename string) (path string, fetch bool) {
	path = filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil {
		return path, false
	}
	return path, true
}
