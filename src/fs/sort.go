package fs

import (
	"sort"
	"strings"
)

// SortFiles sorts description file paths so that a directory's own files come before anything
// in its subdirectories, and otherwise lexicographically by component. The first file is then
// the shallowest one, which is the one DEPTH defaults to being relative to.
func SortFiles(files []string) []string {
	split := make(map[string][]string, len(files))
	for _, f := range files {
		split[f] = strings.Split(f, "/")
	}
	sort.SliceStable(files, func(i, j int) bool {
		return lessComponents(split[files[i]], split[files[j]])
	})
	return files
}

func lessComponents(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		aLeaf, bLeaf := i == len(a)-1, i == len(b)-1
		if aLeaf != bLeaf {
			return aLeaf
		}
		return a[i] < b[i]
	}
	return len(a) < len(b)
}
