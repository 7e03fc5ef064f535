// Package targets builds the global map of targets and links their dependencies together.
//
// Every function here takes the map of qualified target identifier to target and updates the
// targets in place; the targets are the same mappings that appear in the loaded file data.
package targets

import (
	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/merge"
)

var log = logging.Log

// DependencySections are the keys of a target that name other targets.
var DependencySections = []string{"dependencies", "export_dependent_settings"}

// filterOps are the suffixes of the filter variants of a list key.
var filterOps = []string{"", "!", "/"}

// IsTargetFile returns true if the given file data was loaded as a target file
// (as opposed to only being included by one).
func IsTargetFile(data core.Map) bool {
	return data.Has("included_files")
}

// BuildTargetMap returns a map of qualified target identifier to target for every target in every target file.
func BuildTargetMap(data map[string]core.Map) (map[string]core.Map, error) {
	targets := map[string]core.Map{}
	for _, file := range sortedKeys(data) {
		if !IsTargetFile(data[file]) {
			continue
		}
		v, present := data[file]["targets"]
		if !present {
			continue
		}
		l, ok := v.(core.List)
		if !ok {
			return nil, core.NewSchemaError("targets in %s must be a list, not a %s", file, core.TypeName(v))
		}
		for _, t := range l {
			target, ok := t.(core.Map)
			if !ok {
				return nil, core.NewSchemaError("targets in %s must be mappings, not %s", file, core.TypeName(t))
			}
			name, ok := target.GetString("target_name")
			if !ok {
				return nil, core.NewSchemaError("Target in %s has no target_name", file)
			}
			qualified := core.QualifiedTargetString(file, name, target.StringOr("toolset", ""))
			if _, present := targets[qualified]; present {
				return nil, core.NewDuplicateError("Duplicate target definitions for %s", qualified)
			}
			targets[qualified] = target
		}
	}
	log.Debug("Found %d targets in %d files", len(targets), len(data))
	return targets, nil
}

// QualifyDependencies rewrites every dependency of every target into its fully qualified form.
// Toolsets given in dependencies are ignored unless multipleToolsets is true.
// A dependency in an exclusion or filter list must also appear in the target's plain list.
func QualifyDependencies(targets map[string]core.Map, multipleToolsets bool) error {
	for _, name := range sortedKeys(targets) {
		target := targets[name]
		buildFile := core.ParseQualifiedTarget(name).File
		toolset := target.StringOr("toolset", "")
		for _, section := range DependencySections {
			for _, op := range filterOps {
				key := section + op
				v, present := target[key]
				if !present {
					continue
				}
				deps, ok := v.(core.List)
				if !ok {
					return core.NewSchemaError("%s of %s must be a list, not a %s", key, name, core.TypeName(v))
				}
				for i, dep := range deps {
					s, ok := dep.(core.String)
					if !ok {
						if op == "/" {
							continue // Filter rules are [action, pattern] pairs.
						}
						return core.NewSchemaError("%s of %s must only contain strings, found a %s", key, name, core.TypeName(dep))
					}
					qt := core.ResolveTarget(buildFile, string(s), toolset)
					if !multipleToolsets {
						qt.Toolset = toolset
					}
					qualified := core.String(qt.String())
					deps[i] = qualified
					if op == "" {
						continue
					}
					if plain, _ := target.GetList(section); !plain.Contains(qualified) {
						return core.NewDuplicateError("Found %s in %s of %s, but not in %s", qualified, key, name, section)
					}
				}
			}
		}
	}
	return nil
}

// RemoveSelfDependencies removes targets from their own dependencies, if they set
// the prune_self_dependency variable.
func RemoveSelfDependencies(targets map[string]core.Map) {
	for name, target := range targets {
		vars, _ := target.GetMap("variables")
		if !vars.Bool("prune_self_dependency", false) {
			continue
		}
		for _, section := range DependencySections {
			if deps, present := target.GetList(section); present {
				target[section] = filter(deps, name)
			}
		}
	}
}

// RemoveLinkDependenciesFromNoneTargets removes dependencies of targets of type none on any target
// that sets the link_dependency variable; a none target has nothing to link them into.
func RemoveLinkDependenciesFromNoneTargets(targets map[string]core.Map) {
	for _, target := range targets {
		if t, _ := target.GetString("type"); t != "none" {
			continue
		}
		for _, section := range DependencySections {
			deps, present := target.GetList(section)
			if !present {
				continue
			}
			for _, dep := range deps.Strings() {
				vars, _ := targets[dep].GetMap("variables")
				if vars.Bool("link_dependency", false) {
					deps = filter(deps, dep)
				}
			}
			target[section] = deps
		}
	}
}

// ApplyDependencyFilters applies the exclusion and regex filters to the dependency lists of every target.
// The other list filters only apply much later, once the targets' configurations have been set up.
func ApplyDependencyFilters(targets map[string]core.Map) error {
	for _, name := range sortedKeys(targets) {
		target := targets[name]
		tmp := core.Map{}
		for _, section := range DependencySections {
			for _, op := range filterOps {
				if v, present := target[section+op]; present {
					tmp[section+op] = v
					delete(target, section+op)
				}
			}
		}
		if err := merge.ProcessListFilters(name, tmp); err != nil {
			return err
		}
		for k, v := range tmp {
			target[k] = v
		}
	}
	return nil
}

// RemoveDuplicateDependencies removes repeated dependencies, keeping the first occurrence of each.
func RemoveDuplicateDependencies(targets map[string]core.Map) {
	for _, target := range targets {
		for _, section := range DependencySections {
			if deps, present := target.GetList(section); present && len(deps) > 0 {
				target[section] = unify(deps)
			}
		}
	}
}

// filter returns a copy of the list without any occurrences of the given string.
func filter(l core.List, s string) core.List {
	ret := make(core.List, 0, len(l))
	for _, v := range l {
		if !core.ScalarEqual(v, core.String(s)) {
			ret = append(ret, v)
		}
	}
	return ret
}

// unify returns a copy of the list with duplicates removed, preserving the order of first occurrences.
func unify(l core.List) core.List {
	ret := make(core.List, 0, len(l))
	for _, v := range l {
		if !ret.Contains(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

func sortedKeys(m map[string]core.Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
