package targets

import (
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/utils"
)

// BuildDependencyGraph builds the graph of targets from their dependencies and returns it along with
// a flat list of every target, where each target appears after all of its dependencies.
func BuildDependencyGraph(targets map[string]core.Map) (*core.DependencyGraph, []string, error) {
	deps := make(map[string][]string, len(targets))
	for name, target := range targets {
		l, _ := target.GetList("dependencies")
		deps[name] = l.Strings()
	}
	return core.BuildDependencyGraph(deps)
}

// VerifyNoFileCycles checks that there are no cycles between the files declaring targets,
// taking a file to depend on another if any of its targets depend on any target in the other.
func VerifyNoFileCycles(targets map[string]core.Map) error {
	fileDeps := map[string][]string{}
	for _, name := range sortedKeys(targets) {
		file := core.ParseQualifiedTarget(name).File
		if _, present := fileDeps[file]; !present {
			fileDeps[file] = []string{}
		}
		l, _ := targets[name].GetList("dependencies")
		for _, dep := range l.Strings() {
			if _, present := targets[dep]; !present {
				return core.NewSchemaError("Dependency '%s' not found while trying to load target %s", dep, name)
			}
			depFile := core.ParseQualifiedTarget(dep).File
			if depFile != file && !slices.Contains(fileDeps[file], depFile) {
				fileDeps[file] = append(fileDeps[file], depFile)
			}
		}
	}
	if _, _, err := core.BuildDependencyGraph(fileDeps); err != nil {
		if cerr, ok := err.(*core.CycleError); ok {
			cerr.What = "files"
		}
		return err
	}
	return nil
}

// PruneToRoots restricts the targets to the given roots and everything they depend on.
// Roots can be given as qualified identifiers or as bare target names, which match every target
// of that name. Pruned targets are also removed from the file data.
func PruneToRoots(roots []string, targets map[string]core.Map, flat []string, graph *core.DependencyGraph, data map[string]core.Map) (map[string]core.Map, []string, error) {
	wanted := map[string]core.Map{}
	for _, root := range roots {
		matches := findRoots(root, flat)
		if len(matches) == 0 {
			names := []string{}
			for _, t := range flat {
				if name := core.ParseQualifiedTarget(t).Name; !slices.Contains(names, name) {
					names = append(names, name)
				}
			}
			return nil, nil, core.NewSchemaError("Could not find root target %s%s", root, utils.PrettyPrintSuggestion(root, names, utils.MaxSuggestionDistance))
		}
		for _, match := range matches {
			wanted[match] = targets[match]
			for _, dep := range graph.DeepDependencies(match) {
				wanted[dep] = targets[dep]
			}
		}
	}
	wantedFlat := make([]string, 0, len(wanted))
	for _, t := range flat {
		if _, present := wanted[t]; present {
			wantedFlat = append(wantedFlat, t)
		}
	}
	for file, fileData := range data {
		if !IsTargetFile(fileData) {
			continue
		}
		fileTargets, present := fileData.GetList("targets")
		if !present {
			continue
		}
		kept := core.List{}
		for _, t := range fileTargets {
			target := t.(core.Map)
			name, _ := target.GetString("target_name")
			if _, present := wanted[core.QualifiedTargetString(file, name, target.StringOr("toolset", ""))]; present {
				kept = append(kept, target)
			}
		}
		fileData["targets"] = kept
	}
	log.Debug("Pruned to %d of %d targets", len(wanted), len(targets))
	return wanted, wantedFlat, nil
}

// findRoots returns the targets matching a requested root.
func findRoots(root string, flat []string) []string {
	ret := []string{}
	for _, t := range flat {
		if t == root || core.ParseQualifiedTarget(t).Name == root {
			ret = append(ret, t)
		}
	}
	return ret
}

// VerifyNoCollidingTargets checks that no two targets in the same directory have the same name,
// even if they are declared in different files.
func VerifyNoCollidingTargets(targets []string) error {
	used := map[string]string{}
	for _, t := range targets {
		qt := core.ParseQualifiedTarget(t)
		file := filepath.Base(qt.File)
		name := qt.Name
		if qt.Toolset != "" {
			name += "#" + qt.Toolset
		}
		key := qt.Dir() + ":" + name
		if existing, present := used[key]; present {
			return core.NewDuplicateError(`Duplicate target name "%s" in directory "%s" used both in "%s" and "%s".`, name, qt.Dir(), file, existing)
		}
		used[key] = file
	}
	return nil
}
