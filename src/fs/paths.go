package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// RelativePath returns a relative path from relativeTo to path. Both are made absolute
// against the working directory first. It returns "" when they name the same location.
func RelativePath(path, relativeTo string) string {
	path, _ = filepath.Abs(path)
	relativeTo, _ = filepath.Abs(relativeTo)
	pathSplit := splitPath(path)
	relSplit := splitPath(relativeTo)
	prefix := 0
	for prefix < len(pathSplit) && prefix < len(relSplit) && pathSplit[prefix] == relSplit[prefix] {
		prefix++
	}
	parts := make([]string, 0, len(relSplit)-prefix+len(pathSplit)-prefix)
	for i := prefix; i < len(relSplit); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, pathSplit[prefix:]...)
	return filepath.Join(parts...)
}

// splitPath splits an absolute path into its components, ignoring empty ones.
func splitPath(path string) []string {
	ret := []string{}
	for _, part := range strings.Split(path, string(os.PathSeparator)) {
		if part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}

// Normpath cleans a path lexically, but keeps a trailing slash if the original had one.
func Normpath(path string) string {
	cleaned := filepath.Clean(path)
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(cleaned, "/") {
		return cleaned + "/"
	}
	return cleaned
}

// Dir returns the directory part of a path, or "" if there isn't one.
// Unlike filepath.Dir it doesn't return "." for a bare filename.
func Dir(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx != -1 {
		if idx == 0 {
			return "/"
		}
		return path[:idx]
	}
	return ""
}
