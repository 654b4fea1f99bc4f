package benchmark

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalnine/eegmark/internal/pkgman"
)

// Discover walks root and returns every directory holding run.sh and the
// marker files of some package manager. Hidden directories are skipped and
// the walk does not descend into a benchmark.
func Discover(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !isBenchmark(path) {
			return nil
		}
		dirs = append(dirs, path)
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

func isBenchmark(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ScriptName))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return pkgman.HasMarker(dir)
}
