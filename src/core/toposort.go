package core

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// TopologicallySorted returns the nodes of a graph ordered so that every node comes after
// all the nodes its edges point to (i.e. dependencies before dependents).
// Nodes are visited in sorted order, so the result is deterministic.
// getEdges returns the nodes a given node points to; nodes it returns need not be in the graph.
// A cycle results in a CycleError describing it.
func TopologicallySorted[T constraints.Ordered](graph []T, getEdges func(T) ([]T, error)) ([]T, error) {
	visited := map[T]bool{}
	visiting := map[T]bool{}
	stack := []T{}
	ordered := make([]T, 0, len(graph))
	var visit func(node T) error
	visit = func(node T) error {
		if visiting[node] {
			idx := slices.Index(stack, node)
			cycle := make([]string, 0, len(stack)-idx+1)
			for _, n := range stack[idx:] {
				cycle = append(cycle, fmt.Sprint(n))
			}
			return newCycleError("nodes", [][]string{append(cycle, fmt.Sprint(node))})
		} else if visited[node] {
			return nil
		}
		visited[node] = true
		visiting[node] = true
		stack = append(stack, node)
		edges, err := getEdges(node)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if err := visit(edge); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, node)
		ordered = append(ordered, node)
		return nil
	}
	sorted := slices.Clone(graph)
	slices.Sort(sorted)
	for _, node := range sorted {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
