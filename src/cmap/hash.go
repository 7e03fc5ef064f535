package cmap

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// StringHash is the hasher for maps keyed by strings.
func StringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// JoinKey combines several strings into one key. Parts can't run into one another, so
// ("a", "bc") and ("ab", "c") give different keys.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}
