// Package propagate publishes the settings that targets export to the targets depending on them,
// and rewrites link dependencies to what the targets actually need to link against.
package propagate

import (
	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/merge"
)

var log = logging.Log

// The kinds of dependent settings, in the order they're propagated.
const (
	AllDependentSettings    = "all_dependent_settings"
	DirectDependentSettings = "direct_dependent_settings"
	LinkSettings            = "link_settings"
)

// SettingsKinds are the kinds of dependent settings, in the order they're propagated.
var SettingsKinds = []string{AllDependentSettings, DirectDependentSettings, LinkSettings}

// linkableTypes are the target types that are linked into a final product.
// Static libraries are deliberately absent; they are only ever linked into something else.
var linkableTypes = []string{"executable", "shared_library", "loadable_module"}

// A Propagator merges dependent settings into the targets that receive them.
type Propagator struct {
	merger *merge.Merger
}

// New returns a new Propagator.
func New(merger *merge.Merger) *Propagator {
	return &Propagator{merger: merger}
}

// PropagateAll propagates every kind of dependent settings in turn.
// Each kind is removed from all targets once it's been propagated.
func (p *Propagator) PropagateAll(flat []string, targets map[string]core.Map, graph *core.DependencyGraph) error {
	for _, kind := range SettingsKinds {
		if err := p.Propagate(kind, flat, targets, graph); err != nil {
			return err
		}
		for _, target := range flat {
			delete(targets[target], kind)
		}
	}
	return nil
}

// Propagate merges one kind of dependent settings into every target from the relevant set of its dependencies.
// Targets are visited in the order given, which must have dependencies before their dependents.
func (p *Propagator) Propagate(kind string, flat []string, targets map[string]core.Map, graph *core.DependencyGraph) error {
	for _, target := range flat {
		var deps []string
		switch kind {
		case AllDependentSettings:
			deps = graph.DeepDependencies(target)
		case DirectDependentSettings:
			deps = graph.DirectAndImportedDependencies(target, targets)
		case LinkSettings:
			includeShared := targets[target].Bool("allow_sharedlib_linksettings_propagation", true)
			d, err := LinkDependencies(target, targets, graph, includeShared)
			if err != nil {
				return err
			}
			deps = d
		default:
			return core.NewSchemaError("Unknown dependent settings kind %s", kind)
		}
		buildFile := core.ParseQualifiedTarget(target).File
		for _, dep := range deps {
			settings, present := targets[dep][kind]
			if !present {
				continue
			}
			m, ok := settings.(core.Map)
			if !ok {
				return core.NewSchemaError("%s of %s must be a mapping, not a %s", kind, dep, core.TypeName(settings))
			}
			if err := p.merger.Dicts(targets[target], m, buildFile, core.ParseQualifiedTarget(dep).File); err != nil {
				return core.AddContext(err, "while merging %s of %s into %s", kind, dep, target)
			}
		}
	}
	log.Debug("Propagated %s", kind)
	return nil
}

// LinkDependencies returns the targets that the given target links against, starting with itself.
// Nothing links against a target that isn't linkable itself, so those get an empty list.
// If includeShared is false, shared libraries that are dependencies aren't included.
func LinkDependencies(ref string, targets map[string]core.Map, graph *core.DependencyGraph, includeShared bool) ([]string, error) {
	deps := []string{}
	return deps, linkDependencies(ref, targets, graph, includeShared, &deps, true)
}

func linkDependencies(ref string, targets map[string]core.Map, graph *core.DependencyGraph, includeShared bool, deps *[]string, initial bool) error {
	target := targets[ref]
	if !target.Has("target_name") {
		return core.NewSchemaError("Missing 'target_name' field in target %s", ref)
	}
	targetType, ok := target.GetString("type")
	if !ok {
		return core.NewSchemaError("Missing 'type' field in target %s", ref)
	}
	linkable := slices.Contains(linkableTypes, targetType)
	if initial && !linkable {
		return nil
	}
	if targetType == "none" && !target.Bool("dependencies_traverse", true) {
		if !slices.Contains(*deps, ref) {
			*deps = append(*deps, ref)
		}
		return nil
	}
	// Executables and loadable modules are already fully linked, so they can't be linked into anything else.
	if !initial && (targetType == "executable" || targetType == "loadable_module") {
		return nil
	}
	if !initial && targetType == "shared_library" && !includeShared {
		return nil
	}
	if slices.Contains(*deps, ref) {
		return nil
	}
	*deps = append(*deps, ref)
	// A linkable dependency already contains its own dependencies, so don't go any further through it.
	if initial || !linkable {
		for _, dep := range graph.Nodes[ref].Dependencies {
			if err := linkDependencies(dep, targets, graph, includeShared, deps, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// AdjustStaticLibraryDependencies rewrites dependency lists so they describe what needs to be linked.
//
// A static library keeps only its hard static library dependencies (including any that its direct
// dependencies re-export) and its original direct dependencies on other types; its original list
// is kept as dependencies_original. Every other linkable target gains every target it needs to link against.
// If sortDependencies is true, dependency lists of linkable targets are ordered dependents first.
func AdjustStaticLibraryDependencies(flat []string, targets map[string]core.Map, graph *core.DependencyGraph, sortDependencies bool) error {
	for _, ref := range flat {
		target := targets[ref]
		targetType, _ := target.GetString("type")
		if targetType == "static_library" {
			original, present := target.GetList("dependencies")
			if !present {
				continue
			}
			target["dependencies_original"] = original.Copy()
			deps := core.List{}
			for _, dep := range graph.DirectAndImportedDependencies(ref, targets) {
				depTarget := targets[dep]
				depType, ok := depTarget.GetString("type")
				if !ok {
					return core.NewSchemaError("Missing 'type' field in target %s", dep)
				}
				if depType == "static_library" && !depTarget.Bool("hard_dependency", false) {
					continue
				} else if depType != "static_library" && !original.Contains(core.String(dep)) {
					continue
				}
				deps = append(deps, core.String(dep))
			}
			if len(deps) > 0 {
				target["dependencies"] = deps
			} else {
				delete(target, "dependencies")
			}
		} else if slices.Contains(linkableTypes, targetType) {
			linkDeps, err := LinkDependencies(ref, targets, graph, true)
			if err != nil {
				return err
			}
			deps, _ := target.GetList("dependencies")
			for _, dep := range linkDeps {
				if dep != ref && !deps.Contains(core.String(dep)) {
					deps = append(deps, core.String(dep))
				}
			}
			if len(deps) > 0 {
				target["dependencies"] = deps
			}
			if sortDependencies && len(deps) > 0 {
				sorted := make(core.List, 0, len(deps))
				for i := len(flat) - 1; i >= 0; i-- {
					if deps.Contains(core.String(flat[i])) {
						sorted = append(sorted, core.String(flat[i]))
					}
				}
				target["dependencies"] = sorted
			}
		}
	}
	return nil
}
