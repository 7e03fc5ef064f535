package core

import (
	"strings"
)

// InputInfo is what a generator declares about how it wants its input resolved.
type InputInfo struct {
	// PathSections are extra keys whose values are paths, rebased when merged across files.
	PathSections []string
	// NonConfigurationKeys are extra keys that stay on the target instead of moving into configurations.
	NonConfigurationKeys []string
	// WantsAbsoluteBuildFilePaths makes every description file path absolute.
	WantsAbsoluteBuildFilePaths bool
	// SupportsMultipleToolsets allows targets to be built for more than one toolset.
	SupportsMultipleToolsets bool
	// WantsStaticLibraryDependenciesAdjusted flattens static library dependencies.
	WantsStaticLibraryDependenciesAdjusted bool
	// WantsSortedDependencies orders adjusted dependency lists dependents-first.
	WantsSortedDependencies bool
	// ExtraSourcesForRules are extra keys whose files are matched against rules as well as sources.
	ExtraSourcesForRules []string
}

// basePathSections are the keys whose values are always treated as paths.
var basePathSections = []string{"destination", "files", "include_dirs", "inputs", "libraries", "outputs", "sources"}

// baseNonConfigurationKeys are the keys of a target that never move into its configurations.
var baseNonConfigurationKeys = []string{
	"actions",
	"configurations",
	"copies",
	"default_configuration",
	"dependencies",
	"dependencies_original",
	"libraries",
	"postbuilds",
	"product_dir",
	"product_extension",
	"product_name",
	"product_prefix",
	"rules",
	"run_as",
	"sources",
	"standalone_static_library",
	"suppress_wildcard",
	"target_name",
	"toolset",
	"toolsets",
	"type",
	"variables",
}

// InvalidConfigurationKeys are keys that aren't allowed to appear in a configuration.
var InvalidConfigurationKeys = []string{
	"actions",
	"all_dependent_settings",
	"configurations",
	"dependencies",
	"direct_dependent_settings",
	"libraries",
	"link_settings",
	"sources",
	"standalone_static_library",
	"target_name",
	"type",
}

// A Schema holds the per-run knowledge of which keys mean what.
// It is built once from the generator's InputInfo and is read-only thereafter.
type Schema struct {
	Info                 InputInfo
	pathSections         map[string]bool
	nonConfigurationKeys map[string]bool
}

// NewSchema returns a new Schema incorporating what the generator declared.
func NewSchema(info InputInfo) *Schema {
	s := &Schema{
		Info:                 info,
		pathSections:         map[string]bool{},
		nonConfigurationKeys: map[string]bool{},
	}
	for _, section := range append(basePathSections, info.PathSections...) {
		s.pathSections[section] = true
	}
	for _, key := range append(baseNonConfigurationKeys, info.NonConfigurationKeys...) {
		s.nonConfigurationKeys[key] = true
	}
	return s
}

// StripMergeSuffix removes a trailing merge operator (one of = + ? ! /) from a key.
func StripMergeSuffix(key string) string {
	if key != "" && strings.ContainsRune("=+?!/", rune(key[len(key)-1])) {
		return key[:len(key)-1]
	}
	return key
}

// IsPathSection returns true if values of the given key are paths.
// Merge operators on the key are ignored.
func (s *Schema) IsPathSection(key string) bool {
	for key != "" && strings.ContainsRune("=+?!", rune(key[len(key)-1])) {
		key = key[:len(key)-1]
	}
	if s.pathSections[key] {
		return true
	}
	// Any key that looks like foo_dir, foo_dirs, foo_file etc. is taken to be a path too.
	if strings.Contains(key, "_") {
		for _, suffix := range []string{"_dir", "_dirs", "_file", "_files", "_path", "_paths"} {
			if strings.HasSuffix(key, suffix) {
				return true
			}
		}
	}
	return false
}

// IsNonConfigurationKey returns true if the given key stays on a target rather than moving into configurations.
// Merge and filter operators on the key are ignored.
func (s *Schema) IsNonConfigurationKey(key string) bool {
	return s.nonConfigurationKeys[StripMergeSuffix(key)]
}

// MultipleToolsets returns true if targets may be built for more than one toolset.
func (s *Schema) MultipleToolsets() bool {
	return s.Info.SupportsMultipleToolsets
}
