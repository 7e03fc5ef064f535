// Package resolve turns a set of root description files into a fully resolved graph of targets.
package resolve

import (
	"context"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/configs"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/merge"
	"github.com/please-build/descgen/src/parse"
	"github.com/please-build/descgen/src/process"
	"github.com/please-build/descgen/src/propagate"
	"github.com/please-build/descgen/src/targets"
	"github.com/please-build/descgen/src/validate"
)

var log = logging.Log

// Options describes what to resolve and how.
type Options struct {
	// Files are the root description files.
	Files []string
	// Variables are the default variables available to every file.
	Variables expand.Variables
	// Includes are files implicitly included into every target file.
	Includes []string
	// Depth is the root directory that DEPTH is calculated relative to.
	Depth string
	// Parallel loads files on NumWorkers goroutines.
	Parallel   bool
	NumWorkers int
	// CircularCheck rejects cycles between files as well as between targets.
	CircularCheck bool
	// DuplicateBasenameCheck rejects static libraries with compiled sources sharing a basename.
	DuplicateBasenameCheck bool
	// RootTargets, if given, restricts the result to these targets and their dependencies.
	RootTargets []string
	// Info is what the generator has declared about how it wants its input.
	Info core.InputInfo
	// Builtins are extra functions that can be invoked by command substitutions.
	Builtins map[string]expand.BuiltinFunc
}

// A Result is the resolved graph.
type Result struct {
	// FlatList is every target, with each one after all of its dependencies.
	FlatList []string
	// Targets are the resolved targets, keyed by qualified identifier.
	Targets map[string]core.Map
	// Data is the data of every file loaded, keyed by path.
	Data map[string]core.Map
}

// Load loads and resolves the given files.
func Load(ctx context.Context, opts Options) (*Result, error) {
	schema := core.NewSchema(opts.Info)
	merger := merge.New(schema)
	engine := expand.NewEngine(merger, process.Default())
	for name, f := range opts.Builtins {
		engine.RegisterBuiltin(name, f)
	}
	files := make([]string, len(opts.Files))
	for i, file := range opts.Files {
		if opts.Info.WantsAbsoluteBuildFilePaths {
			abs, err := filepath.Abs(file)
			if err != nil {
				return nil, err
			}
			file = abs
		}
		files[i] = filepath.Clean(file)
	}
	loader := parse.NewLoader(engine, parse.Options{
		Depth:      opts.Depth,
		Includes:   opts.Includes,
		Parallel:   opts.Parallel,
		NumWorkers: opts.NumWorkers,
	})
	data, err := loader.Load(ctx, files, opts.Variables)
	if err != nil {
		return nil, err
	}
	r := &resolver{
		opts:   opts,
		schema: schema,
		engine: engine,
		merger: merger,
		data:   data,
	}
	result, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	stats := engine.Stats()
	log.Notice("Resolved %d targets from %d files; ran %d commands (%d cached), wrote %d file lists (%s)",
		len(result.FlatList), len(data), stats.CommandsRun, stats.CommandCacheHits, stats.FileListsWritten, humanize.Bytes(uint64(stats.FileListBytes)))
	return result, nil
}

// A resolver holds the state of resolving one set of loaded files.
type resolver struct {
	opts   Options
	schema *core.Schema
	engine *expand.Engine
	merger *merge.Merger
	data   map[string]core.Map
}

// Resolve runs every step after loading, in order.
func (r *resolver) Resolve() (*Result, error) {
	ts, err := targets.BuildTargetMap(r.data)
	if err != nil {
		return nil, err
	}
	if err := targets.QualifyDependencies(ts, r.schema.MultipleToolsets()); err != nil {
		return nil, err
	}
	targets.RemoveSelfDependencies(ts)
	if err := targets.ExpandWildcardDependencies(ts, r.data); err != nil {
		return nil, err
	}
	targets.RemoveLinkDependenciesFromNoneTargets(ts)
	if err := targets.ApplyDependencyFilters(ts); err != nil {
		return nil, err
	}
	targets.RemoveDuplicateDependencies(ts)
	if r.opts.CircularCheck {
		if err := targets.VerifyNoFileCycles(ts); err != nil {
			return nil, err
		}
	}
	graph, flat, err := targets.BuildDependencyGraph(ts)
	if err != nil {
		return nil, err
	}
	if len(r.opts.RootTargets) > 0 {
		if ts, flat, err = targets.PruneToRoots(r.opts.RootTargets, ts, flat, graph, r.data); err != nil {
			return nil, err
		}
	}
	if err := targets.VerifyNoCollidingTargets(flat); err != nil {
		return nil, err
	}
	if err := propagate.New(r.merger).PropagateAll(flat, ts, graph); err != nil {
		return nil, err
	}
	if r.schema.Info.WantsStaticLibraryDependenciesAdjusted {
		if err := propagate.AdjustStaticLibraryDependencies(flat, ts, graph, r.schema.Info.WantsSortedDependencies); err != nil {
			return nil, err
		}
	}
	if err := r.processPhase(expand.Late, flat, ts); err != nil {
		return nil, err
	}
	if err := configs.New(r.merger).SetUpAll(flat, ts); err != nil {
		return nil, err
	}
	for _, target := range flat {
		if err := merge.ProcessListFilters(target, ts[target]); err != nil {
			return nil, core.AddContext(err, "while applying list filters of %s", target)
		}
	}
	if err := r.processPhase(expand.LateLate, flat, ts); err != nil {
		return nil, err
	}
	v := &validate.Validator{
		DuplicateBasenameCheck: r.opts.DuplicateBasenameCheck,
		ExtraSourcesForRules:   r.schema.Info.ExtraSourcesForRules,
	}
	if err := v.ValidateAll(flat, ts); err != nil {
		return nil, err
	}
	return &Result{FlatList: flat, Targets: ts, Data: r.data}, nil
}

// processPhase runs a late phase of expansion over every target.
func (r *resolver) processPhase(phase expand.Phase, flat []string, ts map[string]core.Map) error {
	for _, target := range flat {
		buildFile := core.ParseQualifiedTarget(target).File
		if err := r.engine.ProcessDict(ts[target], phase, r.opts.Variables, buildFile); err != nil {
			return core.AddContext(err, "while processing %s phase of %s", phase, target)
		}
	}
	log.Debug("Processed %s phase of %d targets", phase, len(flat))
	return nil
}
