package fs

import (
	"os"
	"strings"

	"github.com/karrick/godirwalk"
)

// Walk implements an equivalent to filepath.Walk.
// It's implemented over github.com/karrick/godirwalk but the provided interface doesn't use that
// to make it a little easier to handle.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	// Compatibility with filepath.Walk which allows passing a file as the root argument.
	if info, err := os.Lstat(rootPath); err != nil {
		return err
	} else if !info.IsDir() {
		return callback(rootPath, false)
	}
	return godirwalk.Walk(rootPath, &godirwalk.Options{Callback: func(name string, info *godirwalk.Dirent) error {
		return callback(name, info.IsDir())
	}})
}

// FindFiles returns all files under the given root that have the given extension.
// Hidden directories are not descended into. If root is itself a file it is returned as is.
func FindFiles(root, extension string) ([]string, error) {
	files := []string{}
	err := Walk(root, func(name string, isDir bool) error {
		if isDir {
			if name != root && strings.HasPrefix(basename(name), ".") {
				return godirwalk.SkipThis
			}
			return nil
		} else if name == root || strings.HasSuffix(name, extension) {
			files = append(files, name)
		}
		return nil
	})
	return SortFiles(files), err
}

func basename(name string) string {
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		return name[idx+1:]
	}
	return name
}
