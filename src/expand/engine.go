// Package expand implements macro expansion and conditional evaluation over description files.
//
// Expansion happens in three phases, each with its own leading character: EARLY ('<') runs as
// files are loaded, LATE ('>') once dependent settings have been propagated, and LATELATE ('^')
// once configurations have been set up. Within a phase a macro may reference a variable, run a
// command, or write out a file list:
//
//	<(name)           the value of a variable
//	<@(name)          a list variable spliced into the enclosing list
//	<!(cmd args)      the output of a shell command
//	<!@(cmd args)     the output of a command split into list items
//	<!(['cmd', 'a'])  a command run directly, without a shell
//	<!builtin(f a b)  the output of a builtin function registered on the Engine
//	<|(out.txt a b)   writes a, b to out.txt one per line and becomes out.txt
package expand

import (
	"sync/atomic"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/cmap"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/merge"
	"github.com/please-build/descgen/src/process"
)

var log = logging.Log

// A Phase is one of the three expansion phases.
type Phase int

// The phases, in the order they run.
const (
	Early Phase = iota
	Late
	LateLate
)

// Symbol returns the character that introduces a macro in this phase.
func (p Phase) Symbol() byte {
	switch p {
	case Early:
		return '<'
	case Late:
		return '>'
	}
	return '^'
}

// ConditionsKey returns the key holding conditional blocks evaluated in this phase,
// or the empty string if none are.
func (p Phase) ConditionsKey() string {
	switch p {
	case Early:
		return "conditions"
	case Late:
		return "target_conditions"
	}
	return ""
}

func (p Phase) String() string {
	switch p {
	case Early:
		return "early"
	case Late:
		return "late"
	}
	return "latelate"
}

// Variables is the namespace that macros and conditions are evaluated against.
type Variables map[string]core.Value

// Copy returns a shallow copy of these variables.
func (v Variables) Copy() Variables {
	ret := make(Variables, len(v))
	for k, x := range v {
		ret[k] = x
	}
	return ret
}

// Names returns the names of all the variables, sorted.
func (v Variables) Names() []string {
	return core.Map(v).Keys()
}

// A BuiltinFunc is a function that can be invoked in-process by a <!builtin(...) macro.
// It receives the shell-split arguments after the function name and the directory of the
// description file being processed, and returns the text to substitute.
type BuiltinFunc func(args []string, dir string) (string, error)

// An Engine performs expansions. It owns the cache of command results, so a single Engine
// should be used for a whole run; it is safe for concurrent use once builtins are registered.
type Engine struct {
	merger     *merge.Merger
	executor   *process.Executor
	commands   *cmap.ErrMap[string, string]
	conditions *cmap.ErrMap[string, condition]
	builtins   map[string]BuiltinFunc
	stats      Stats
}

// Stats records some information about what an Engine has done.
type Stats struct {
	CommandsRun       int64
	CommandCacheHits  int64
	FileListsWritten  int64
	FileListBytes     int64
	ConditionsChecked int64
	// ConditionsParsed is the number of distinct condition expressions that were parsed.
	ConditionsParsed int64
}

// NewEngine creates a new Engine that merges conditional blocks with the given merger.
func NewEngine(merger *merge.Merger, executor *process.Executor) *Engine {
	return &Engine{
		merger:     merger,
		executor:   executor,
		commands:   cmap.NewErrMap[string, string](cmap.DefaultShardCount, cmap.StringHash),
		conditions: cmap.NewErrMap[string, condition](cmap.DefaultShardCount, cmap.StringHash),
		builtins:   map[string]BuiltinFunc{},
	}
}

// RegisterBuiltin registers a function that can be called via <!builtin(name args...).
// It must not be called concurrently with any expansion.
func (e *Engine) RegisterBuiltin(name string, f BuiltinFunc) {
	e.builtins[name] = f
}

// Merger returns the merger this engine uses.
func (e *Engine) Merger() *merge.Merger {
	return e.merger
}

// Stats returns a snapshot of this engine's statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		CommandsRun:       atomic.LoadInt64(&e.stats.CommandsRun),
		CommandCacheHits:  atomic.LoadInt64(&e.stats.CommandCacheHits),
		FileListsWritten:  atomic.LoadInt64(&e.stats.FileListsWritten),
		FileListBytes:     atomic.LoadInt64(&e.stats.FileListBytes),
		ConditionsChecked: atomic.LoadInt64(&e.stats.ConditionsChecked),
		ConditionsParsed:  int64(e.conditions.Len()),
	}
}
