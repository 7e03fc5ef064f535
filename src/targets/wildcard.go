package targets

import (
	"github.com/please-build/descgen/src/core"
)

// ExpandWildcardDependencies replaces dependencies on file:* (or file:name#*) with one dependency on
// each matching target in that file. Targets that set suppress_wildcard don't match.
// A wildcard may not refer to the file declaring the target it's in.
func ExpandWildcardDependencies(targets map[string]core.Map, data map[string]core.Map) error {
	for _, name := range sortedKeys(targets) {
		target := targets[name]
		buildFile := core.ParseQualifiedTarget(name).File
		for _, section := range DependencySections {
			for _, op := range []string{"", "!"} {
				key := section + op
				deps, present := target.GetList(key)
				if !present {
					continue
				}
				expanded := make(core.List, 0, len(deps))
				for _, dep := range deps {
					s, ok := dep.(core.String)
					if !ok {
						expanded = append(expanded, dep)
						continue
					}
					qt := core.ParseQualifiedTarget(string(s))
					if !qt.IsWildcard() {
						expanded = append(expanded, dep)
						continue
					}
					if qt.File == buildFile {
						return core.NewSchemaError("Found wildcard in %s of %s referring to same build file", key, name)
					}
					matches, err := wildcardMatches(qt, data)
					if err != nil {
						return core.AddContext(err, "while expanding %s in %s of %s", s, key, name)
					}
					expanded = append(expanded, matches...)
				}
				target[key] = expanded
			}
		}
	}
	return nil
}

// wildcardMatches returns the qualified names of every target in a file that matches the given wildcard.
func wildcardMatches(wildcard core.QualifiedTarget, data map[string]core.Map) (core.List, error) {
	fileData, present := data[wildcard.File]
	if !present {
		return nil, core.NewSchemaError("%s has not been loaded", wildcard.File)
	}
	fileTargets, _ := fileData.GetList("targets")
	ret := core.List{}
	for _, t := range fileTargets {
		target, ok := t.(core.Map)
		if !ok || target.Bool("suppress_wildcard", false) {
			continue
		}
		name, _ := target.GetString("target_name")
		toolset := target.StringOr("toolset", "")
		if wildcard.Name != "*" && wildcard.Name != name {
			continue
		} else if wildcard.Toolset != "*" && wildcard.Toolset != toolset {
			continue
		}
		ret = append(ret, core.String(core.QualifiedTargetString(wildcard.File, name, toolset)))
	}
	return ret, nil
}
