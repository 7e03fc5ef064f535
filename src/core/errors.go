package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// A SchemaError describes malformed input: bad literal syntax, duplicate keys, undefined
// variables, merge type mismatches, disallowed keys and the like.
type SchemaError struct {
	Msg string
}

func (err *SchemaError) Error() string {
	return err.Msg
}

// NewSchemaError returns a new SchemaError with a formatted message.
func NewSchemaError(format string, args ...interface{}) error {
	return &SchemaError{Msg: fmt.Sprintf(format, args...)}
}

// A CycleError is returned when a dependency cycle is found, between targets or between files.
type CycleError struct {
	// Nodes is every node found to participate in a cycle.
	Nodes []string
	// Cycles are the individual cycles, each as a path that begins and ends at the same node.
	Cycles [][]string
	// What is the kind of thing the nodes are ("targets", "files")
	What string
}

func (err *CycleError) Error() string {
	if len(err.Cycles) == 0 {
		return fmt.Sprintf("Cycles in %s dependency graph detected: %s", err.What, strings.Join(err.Nodes, ", "))
	}
	lines := make([]string, len(err.Cycles))
	for i, cycle := range err.Cycles {
		lines[i] = "Cycle: " + strings.Join(cycle, " -> ")
	}
	return fmt.Sprintf("Cycles in %s dependency graph detected:\n%s", err.What, strings.Join(lines, "\n"))
}

// newCycleError builds a CycleError from a set of cycles, filling in the node set.
func newCycleError(what string, cycles [][]string) *CycleError {
	seen := map[string]bool{}
	nodes := []string{}
	for _, cycle := range cycles {
		for _, node := range cycle {
			if !seen[node] {
				seen[node] = true
				nodes = append(nodes, node)
			}
		}
	}
	sort.Strings(nodes)
	return &CycleError{Nodes: nodes, Cycles: cycles, What: what}
}

// A DuplicateError is returned for targets that collide by name, or dependency entries
// that appear in an exclusion list without appearing in the list they exclude from.
type DuplicateError struct {
	Msg string
}

func (err *DuplicateError) Error() string {
	return err.Msg
}

// NewDuplicateError returns a new DuplicateError with a formatted message.
func NewDuplicateError(format string, args ...interface{}) error {
	return &DuplicateError{Msg: fmt.Sprintf(format, args...)}
}

// A CommandError is returned when a command substitution fails.
type CommandError struct {
	Command string
	Dir     string
	Stderr  string
	Err     error
}

func (err *CommandError) Error() string {
	msg := fmt.Sprintf("Call to '%s' in %s failed", err.Command, err.Dir)
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	if err.Stderr != "" {
		msg += "\n" + strings.TrimRight(err.Stderr, "\n")
	}
	return msg
}

func (err *CommandError) Unwrap() error {
	return err.Err
}

// A contextError attaches a trail of context messages to an underlying error, innermost first.
type contextError struct {
	err     error
	context []string
}

// AddContext annotates an error with a message describing what was happening when it occurred.
// The original error stays reachable through errors.As / errors.Is.
// It returns nil if err is nil.
func AddContext(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var ce *contextError
	if errors.As(err, &ce) {
		if ce.context[len(ce.context)-1] == msg {
			return ce // Don't repeat the same line multiple times.
		}
		ce.context = append(ce.context, msg)
		return ce
	}
	return &contextError{err: err, context: []string{msg}}
}

func (err *contextError) Error() string {
	return err.err.Error() + "\n  " + strings.Join(err.context, "\n  ")
}

func (err *contextError) Unwrap() error {
	return err.err
}
