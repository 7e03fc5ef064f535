package core

import (
	"errors"
	"sort"

	"golang.org/x/exp/slices"
)

// A DependencyNode is one target in the dependency graph.
// Edges are held as target identifiers; look them up in the owning DependencyGraph.
type DependencyNode struct {
	Ref          string
	Dependencies []string
	Dependents   []string
}

// A DependencyGraph is the graph of all targets, keyed by their qualified identifier.
// Root is a synthetic node (with an empty Ref) whose dependents are all the targets
// that have no dependencies of their own.
type DependencyGraph struct {
	Nodes map[string]*DependencyNode
	Root  *DependencyNode
}

// NewDependencyGraph returns a new, empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Nodes: map[string]*DependencyNode{},
		Root:  &DependencyNode{},
	}
}

// Node returns the node for a target, creating it if needed.
func (g *DependencyGraph) Node(ref string) *DependencyNode {
	if node, present := g.Nodes[ref]; present {
		return node
	}
	node := &DependencyNode{Ref: ref}
	g.Nodes[ref] = node
	return node
}

// AddDependency records that from depends on to.
func (g *DependencyGraph) AddDependency(from, to string) {
	f := g.Node(from)
	t := g.Node(to)
	f.Dependencies = append(f.Dependencies, to)
	t.Dependents = append(t.Dependents, from)
}

// AddRoot attaches a target to the synthetic root.
func (g *DependencyGraph) AddRoot(ref string) {
	g.Node(ref)
	g.Root.Dependents = append(g.Root.Dependents, ref)
}

// BuildDependencyGraph builds the graph from a map of target identifier to its dependencies.
// It is an error for a dependency to name a target that isn't in the map.
// It returns the graph and a flattened list of targets, where every target comes after all of
// its dependencies; if that isn't possible because there are cycles, it returns a CycleError.
func BuildDependencyGraph(targets map[string][]string) (*DependencyGraph, []string, error) {
	g := NewDependencyGraph()
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		deps := targets[name]
		if len(deps) == 0 {
			g.AddRoot(name)
			continue
		}
		g.Node(name)
		for _, dep := range deps {
			if _, present := targets[dep]; !present {
				return nil, nil, NewSchemaError("Dependency '%s' not found while trying to load target %s", dep, name)
			}
			g.AddDependency(name, dep)
		}
	}
	flat := g.FlattenToList()
	if len(flat) != len(targets) {
		if len(g.Root.Dependents) == 0 && len(names) > 0 {
			// Every target has dependencies; attach one to the root so cycles can be found from it.
			g.Root.Dependents = append(g.Root.Dependents, names[0])
		}
		cycles := g.FindCycles()
		if len(cycles) == 0 {
			// The cycle isn't reachable from the root; walk forwards from whatever didn't get flattened.
			cycles = g.findCyclesFrom(flat)
		}
		return nil, nil, newCycleError("targets", cycles)
	}
	return g, flat, nil
}

// FlattenToList returns every node reachable from the root in an order where all of a
// node's dependencies come before it. Nodes that are part of (or depend on) a cycle are omitted.
func (g *DependencyGraph) FlattenToList() []string {
	flat := []string{}
	inFlat := map[string]bool{}
	ready := sortedCopy(g.Root.Dependents)
	for len(ready) > 0 {
		ref := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		if inFlat[ref] {
			continue
		}
		flat = append(flat, ref)
		inFlat[ref] = true
		for _, dependent := range sortedCopy(g.Nodes[ref].Dependents) {
			if g.allIn(g.Nodes[dependent].Dependencies, inFlat) {
				ready = append(ready, dependent)
			}
		}
	}
	return flat
}

func (g *DependencyGraph) allIn(refs []string, set map[string]bool) bool {
	for _, ref := range refs {
		if !set[ref] {
			return false
		}
	}
	return true
}

// FindCycles returns every cycle reachable from the root. Each cycle is given as a path
// starting and ending at the same node, where each node depends on the next one.
func (g *DependencyGraph) FindCycles() [][]string {
	results := [][]string{}
	visited := map[string]bool{}
	var visit func(node *DependencyNode, path []string)
	visit = func(node *DependencyNode, path []string) {
		for _, child := range node.Dependents {
			if idx := indexOf(path, child); idx != -1 {
				cycle := append([]string{child}, path[:idx+1]...)
				results = append(results, cycle)
			} else if !visited[child] {
				visited[child] = true
				visit(g.Nodes[child], append([]string{child}, path...))
			}
		}
	}
	visit(g.Root, []string{})
	return results
}

// findCyclesFrom finds a cycle by following dependencies from the nodes that aren't in the given list.
func (g *DependencyGraph) findCyclesFrom(flat []string) [][]string {
	remaining := []string{}
	for ref := range g.Nodes {
		if indexOf(flat, ref) == -1 {
			remaining = append(remaining, ref)
		}
	}
	_, err := TopologicallySorted(remaining, func(ref string) ([]string, error) {
		return g.Nodes[ref].Dependencies, nil
	})
	var cerr *CycleError
	if errors.As(err, &cerr) {
		return cerr.Cycles
	}
	return nil
}

func indexOf(s []string, x string) int {
	for i, y := range s {
		if x == y {
			return i
		}
	}
	return -1
}

func sortedCopy(s []string) []string {
	ret := make([]string, len(s))
	copy(ret, s)
	sort.Strings(ret)
	return ret
}

// DirectDependencies returns the direct dependencies of a target, without duplicates.
func (g *DependencyGraph) DirectDependencies(ref string) []string {
	ret := []string{}
	for _, dep := range g.Nodes[ref].Dependencies {
		if indexOf(ret, dep) == -1 {
			ret = append(ret, dep)
		}
	}
	return ret
}

// DirectAndImportedDependencies returns the direct dependencies of a target, plus any targets
// those dependencies re-export through their export_dependent_settings, each inserted just
// after the dependency exporting it.
func (g *DependencyGraph) DirectAndImportedDependencies(ref string, targets map[string]Map) []string {
	deps := g.DirectDependencies(ref)
	for i := 0; i < len(deps); i++ {
		exported, _ := targets[deps[i]].GetList("export_dependent_settings")
		add := 1
		for _, imported := range exported.Strings() {
			if indexOf(deps, imported) == -1 {
				deps = slices.Insert(deps, i+add, imported)
				add++
			}
		}
	}
	return deps
}

// DeepDependencies returns every transitive dependency of a target, with each target
// appearing after its own dependencies.
func (g *DependencyGraph) DeepDependencies(ref string) []string {
	ret := []string{}
	seen := map[string]bool{}
	var visit func(ref string)
	visit = func(ref string) {
		for _, dep := range g.Nodes[ref].Dependencies {
			if !seen[dep] {
				visit(dep)
				seen[dep] = true
				ret = append(ret, dep)
			}
		}
	}
	visit(ref)
	return ret
}
