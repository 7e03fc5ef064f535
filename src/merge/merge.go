// Package merge implements deep merging of description values.
//
// Mappings merge key by key. Scalars overwrite, mappings recurse and lists merge according
// to a suffix on the key they are merged from:
//
//	=  replace the existing list
//	+  prepend to the existing list
//	?  set the list only if there isn't one already
//	   (none) append to the existing list
//
// Relative paths are rebased from the file they came from to the file they are merged into.
package merge

import (
	"path/filepath"
	"strings"

	"github.com/peterebden/go-deferred-regex"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/fs"
)

// unrebasedPath matches paths that are never rebased: absolute ones, anything starting with
// an environment variable, a flag or one of our own macros, optionally after a quote.
var unrebasedPath = deferredregex.DeferredRegex{Re: `^["']?[-/$<>^]`}

// A Merger merges description values. It is safe for concurrent use.
type Merger struct {
	schema *core.Schema
}

// New returns a new Merger using the given schema to identify path-valued keys.
func New(schema *core.Schema) *Merger {
	return &Merger{schema: schema}
}

// Schema returns the schema this merger was created with.
func (m *Merger) Schema() *core.Schema {
	return m.schema
}

// Dicts merges from into to, in place. Paths in from are relative to fromFile and are rebased
// to be relative to toFile. Nothing in from is shared with to afterwards.
func (m *Merger) Dicts(to, from core.Map, toFile, fromFile string) error {
	for _, k := range from.Keys() {
		v := from[k]
		if existing, present := to[k]; present {
			if core.IsScalar(v) != core.IsScalar(existing) || (!core.IsScalar(v) && core.TypeName(v) != core.TypeName(existing)) {
				return core.NewSchemaError("Attempt to merge dict value of type %s into incompatible type %s for key %s", core.TypeName(v), core.TypeName(existing), k)
			}
		}
		switch v := v.(type) {
		case core.String:
			if m.schema.IsPathSection(k) {
				to[k] = core.String(MakePathRelative(toFile, fromFile, string(v)))
			} else {
				to[k] = v
			}
		case core.Int:
			to[k] = v
		case core.Map:
			sub, present := to[k].(core.Map)
			if !present {
				sub = core.Map{}
				to[k] = sub
			}
			if err := m.Dicts(sub, v, toFile, fromFile); err != nil {
				return err
			}
		case core.List:
			if err := m.mergeListKey(to, from, k, v, toFile, fromFile); err != nil {
				return err
			}
		default:
			return core.NewSchemaError("Attempt to merge dict value of unsupported type %s for key %s", core.TypeName(v), k)
		}
	}
	return nil
}

// mergeListKey merges a list value from a dict, applying the policy indicated by the key's suffix.
func (m *Merger) mergeListKey(to, from core.Map, k string, v core.List, toFile, fromFile string) error {
	ext := k[len(k)-1]
	listBase := k[:len(k)-1]
	appendItems := true
	var incompatible []string
	switch ext {
	case '=':
		incompatible = []string{listBase, listBase + "?"}
		to[listBase] = core.List{}
	case '+':
		incompatible = []string{listBase + "=", listBase + "?"}
		appendItems = false
	case '?':
		incompatible = []string{listBase, listBase + "=", listBase + "+"}
	default:
		listBase = k
		incompatible = []string{listBase + "=", listBase + "?"}
	}
	for _, inc := range incompatible {
		if from.Has(inc) {
			return core.NewSchemaError("Incompatible list policies %s and %s", k, inc)
		}
	}
	existing, present := to[listBase]
	if present {
		if ext == '?' {
			return nil // Only set if not already present.
		} else if _, ok := existing.(core.List); !ok {
			return core.NewSchemaError("Attempt to merge dict value of type list into incompatible type %s for key %s(%s)", core.TypeName(existing), listBase, k)
		}
	} else {
		existing = core.List{}
	}
	merged, err := m.Lists(existing.(core.List), v, toFile, fromFile, m.schema.IsPathSection(listBase), appendItems)
	if err != nil {
		return err
	}
	to[listBase] = merged
	return nil
}

// Lists merges the items of from into to, returning the merged list.
// Scalars that don't start with a - are singletons and appear only once: appending one
// that's already present is a no-op and prepending one moves it to the front.
// If isPaths is true, string items are rebased from fromFile to toFile.
// Nested mappings and lists are deep-copied, with any path-valued keys inside them rebased.
func (m *Merger) Lists(to, from core.List, toFile, fromFile string, isPaths, appendItems bool) (core.List, error) {
	prependIndex := 0
	for _, item := range from {
		var toItem core.Value
		singleton := false
		switch item := item.(type) {
		case core.String:
			toItem = item
			if isPaths {
				toItem = core.String(MakePathRelative(toFile, fromFile, string(item)))
			}
			singleton = !strings.HasPrefix(string(item), "-")
		case core.Int:
			toItem = item
			singleton = true
		case core.Map:
			sub := core.Map{}
			if err := m.Dicts(sub, item, toFile, fromFile); err != nil {
				return nil, err
			}
			toItem = sub
		case core.List:
			sub, err := m.Lists(core.List{}, item, toFile, fromFile, false, true)
			if err != nil {
				return nil, err
			}
			toItem = sub
		default:
			return nil, core.NewSchemaError("Attempt to merge list item of unsupported type %s", core.TypeName(item))
		}
		if appendItems {
			// The earliest occurrence of a singleton stays put.
			if !singleton || !to.Contains(toItem) {
				to = append(to, toItem)
			}
		} else {
			// Prepending a singleton moves it to the earliest possible position.
			for singleton {
				idx := to.Index(toItem)
				if idx == -1 {
					break
				}
				to = append(to[:idx], to[idx+1:]...)
			}
			if prependIndex > len(to) {
				prependIndex = len(to)
			}
			to = append(to, nil)
			copy(to[prependIndex+1:], to[prependIndex:])
			to[prependIndex] = toItem
			prependIndex++
		}
	}
	return to, nil
}

// MakePathRelative rebases a path that is relative to fromFile to be relative to toFile instead.
// Paths that are absolute, or that start with a variable, flag or macro, are returned unchanged.
// A trailing slash is preserved.
func MakePathRelative(toFile, fromFile, item string) string {
	if toFile == fromFile || unrebasedPath.MatchString(item) {
		return item
	}
	return fs.Normpath(filepath.Join(fs.RelativePath(filepath.Dir(fromFile), filepath.Dir(toFile)), item))
}
