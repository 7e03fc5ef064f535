// Package parse implements loading of description files.
//
// Loading a target file reads it, merges in everything it includes, duplicates targets across
// their toolsets, runs the early phase of expansion over it and applies its target_defaults.
// The files that its targets depend on are then loaded in turn, either one at a time or by a
// pool of workers.
package parse

import (
	"context"
	"os"
	"path/filepath"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/fs"
	"github.com/please-build/descgen/src/merge"
	"github.com/please-build/descgen/src/parse/literal"
)

var log = logging.Log

// Options configures a Loader.
type Options struct {
	// Depth is the root directory that DEPTH is calculated relative to. If empty DEPTH isn't defined.
	Depth string
	// Includes are files that are implicitly included into every target file.
	Includes []string
	// Parallel enables loading target files on multiple goroutines.
	Parallel bool
	// NumWorkers is the number of goroutines used when Parallel is set.
	NumWorkers int
}

// A Loader loads target files and everything they depend on.
type Loader struct {
	engine *expand.Engine
	merger *merge.Merger
	schema *core.Schema
	opts   Options
}

// NewLoader creates a new Loader.
func NewLoader(engine *expand.Engine, opts Options) *Loader {
	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}
	return &Loader{
		engine: engine,
		merger: engine.Merger(),
		schema: engine.Merger().Schema(),
		opts:   opts,
	}
}

// Load loads the given target files and, transitively, every file their targets depend on.
// It returns the data of every file read, keyed by path; that includes files that were only included.
func (l *Loader) Load(ctx context.Context, files []string, vars expand.Variables) (map[string]core.Map, error) {
	if l.opts.Parallel && l.opts.NumWorkers > 1 {
		return l.loadParallel(ctx, files, vars)
	}
	return l.loadSequential(files, vars)
}

// loadSequential loads all the files on this goroutine, sharing a single cache of included files.
func (l *Loader) loadSequential(files []string, vars expand.Variables) (map[string]core.Map, error) {
	fl := l.newFileLoader()
	q := newQueue(files)
	data := map[string]core.Map{}
	for file, ok := q.Pop(); ok; file, ok = q.Pop() {
		result, err := fl.LoadTargetFile(file, vars)
		if err != nil {
			return nil, q.AddContext(err, file)
		}
		q.Add(result)
		result.store(data)
	}
	return data, nil
}

// A loadResult is the result of loading a single target file.
type loadResult struct {
	File         string
	Data         core.Map
	Included     map[string]core.Map
	Dependencies []string
}

// store stores this result into the given set of file data.
func (result *loadResult) store(data map[string]core.Map) {
	data[result.File] = result.Data
	for file, d := range result.Included {
		if _, present := data[file]; !present {
			data[file] = d
		}
	}
}

// A fileLoader holds the state of loading files on a single goroutine.
type fileLoader struct {
	*Loader
	// Every file read so far, after its includes have been merged in.
	data map[string]core.Map
	// The files included directly by each file.
	included map[string][]string
}

func (l *Loader) newFileLoader() *fileLoader {
	return &fileLoader{
		Loader:   l,
		data:     map[string]core.Map{},
		included: map[string][]string{},
	}
}

// LoadTargetFile loads a single target file, without loading any of its dependencies.
func (fl *fileLoader) LoadTargetFile(path string, vars expand.Variables) (*loadResult, error) {
	vars = vars.Copy()
	if fl.opts.Depth != "" {
		d := fs.RelativePath(fl.opts.Depth, fs.Dir(path))
		if d == "" {
			d = "."
		}
		vars["DEPTH"] = core.String(filepath.ToSlash(d))
	}
	log.Debug("Loading target file %s", path)
	data, err := fl.loadOne(path, fl.opts.Includes, true)
	if err != nil {
		return nil, err
	}
	data["_DEPTH"] = core.String(fl.opts.Depth)
	if data.Has("included_files") {
		return nil, core.NewSchemaError("%s must not contain included_files key", path)
	}
	includedFiles := core.List{}
	included := map[string]core.Map{}
	for _, file := range fl.includedFiles(path, nil) {
		includedFiles = append(includedFiles, core.String(fs.RelativePath(file, fs.Dir(path))))
		if file != path {
			included[file] = fl.data[file].Copy()
		}
	}
	data["included_files"] = includedFiles
	if err := fl.processToolsets(data); err != nil {
		return nil, err
	}
	if err := fl.engine.ProcessDict(data, expand.Early, vars, path); err != nil {
		return nil, err
	}
	// Toolsets may have been set conditionally, so do this again.
	if err := fl.processToolsets(data); err != nil {
		return nil, err
	}
	if err := fl.applyTargetDefaults(data, path); err != nil {
		return nil, err
	}
	deps, err := dependencyFiles(data, path)
	if err != nil {
		return nil, err
	}
	return &loadResult{File: path, Data: data, Included: included, Dependencies: deps}, nil
}

// loadOne reads a single file and merges in its includes. Files are only ever read once.
// A target file also gets the given extra includes.
func (fl *fileLoader) loadOne(path string, includes []string, isTarget bool) (core.Map, error) {
	if data, present := fl.data[path]; present {
		if isTarget {
			return data.Copy(), nil
		}
		return data, nil
	}
	if !fs.FileExists(path) {
		cwd, _ := os.Getwd()
		return nil, core.NewSchemaError("%s not found (cwd: %s)", path, cwd)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := literal.Parse(path, b)
	if err != nil {
		return nil, core.AddContext(err, "while reading %s", path)
	}
	fl.data[path] = data
	if !data.Bool("skip_includes", false) {
		if err := fl.loadIncludesIntoDict(data, path, includes); err != nil {
			return nil, core.AddContext(err, "while reading includes of %s", path)
		}
	}
	if isTarget {
		return data.Copy(), nil
	}
	return data, nil
}

// loadIncludesIntoDict merges the files named by the includes key of a mapping (and those given) into it.
// Nested mappings are handled recursively.
func (fl *fileLoader) loadIncludesIntoDict(dict core.Map, path string, includes []string) error {
	includes = append([]string{}, includes...)
	if v, present := dict["includes"]; present {
		l, ok := v.(core.List)
		if !ok {
			return core.NewSchemaError("includes in %s must be a list, not a %s", path, core.TypeName(v))
		}
		for _, item := range l {
			s, ok := item.(core.String)
			if !ok {
				return core.NewSchemaError("includes in %s must only contain strings", path)
			}
			includes = append(includes, filepath.Clean(filepath.Join(fs.Dir(path), string(s))))
		}
		delete(dict, "includes")
	}
	for _, include := range includes {
		fl.included[path] = append(fl.included[path], include)
		log.Debug("Loading included file %s", include)
		data, err := fl.loadOne(include, nil, false)
		if err != nil {
			return err
		} else if err := fl.merger.Dicts(dict, data, path, include); err != nil {
			return err
		}
	}
	for _, k := range dict.Keys() {
		if err := fl.loadIncludesIntoValue(dict[k], path); err != nil {
			return err
		}
	}
	return nil
}

func (fl *fileLoader) loadIncludesIntoValue(v core.Value, path string) error {
	switch v := v.(type) {
	case core.Map:
		return fl.loadIncludesIntoDict(v, path, nil)
	case core.List:
		for _, item := range v {
			if err := fl.loadIncludesIntoValue(item, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// includedFiles returns the transitive closure of files included by the given one, starting with itself.
func (fl *fileLoader) includedFiles(path string, included []string) []string {
	for _, file := range included {
		if file == path {
			return included
		}
	}
	included = append(included, path)
	for _, file := range fl.included[path] {
		included = fl.includedFiles(file, included)
	}
	return included
}

// processToolsets duplicates each target once per entry of its toolsets list.
// Targets in conditional blocks are handled too, since they might be merged in later.
func (fl *fileLoader) processToolsets(data core.Map) error {
	if v, present := data["targets"]; present {
		targets, ok := v.(core.List)
		if !ok {
			return core.NewSchemaError("targets must be a list, not a %s", core.TypeName(v))
		}
		newTargets := make(core.List, 0, len(targets))
		for _, t := range targets {
			target, ok := t.(core.Map)
			if !ok {
				return core.NewSchemaError("targets must only contain mappings, not a %s", core.TypeName(t))
			}
			if target.Has("toolset") && !target.Has("toolsets") {
				newTargets = append(newTargets, target)
				continue
			}
			toolsets := []string{"target"}
			if fl.schema.MultipleToolsets() {
				if l, present := target.GetList("toolsets"); present {
					toolsets = l.Strings()
				}
			}
			delete(target, "toolsets")
			if len(toolsets) == 0 {
				continue
			}
			for _, toolset := range toolsets[1:] {
				t := target.Copy()
				t["toolset"] = core.String(toolset)
				newTargets = append(newTargets, t)
			}
			target["toolset"] = core.String(toolsets[0])
			newTargets = append(newTargets, target)
		}
		data["targets"] = newTargets
	}
	conditions, _ := data.GetList("conditions")
	for _, c := range conditions {
		if condition, ok := c.(core.List); ok && len(condition) > 1 {
			for _, item := range condition[1:] {
				if m, ok := item.(core.Map); ok {
					if err := fl.processToolsets(m); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// applyTargetDefaults merges each target over a copy of the file's target_defaults.
func (fl *fileLoader) applyTargetDefaults(data core.Map, path string) error {
	defaults, present := data.GetMap("target_defaults")
	if !present {
		return nil
	}
	targets, present := data.GetList("targets")
	if !present {
		return core.NewSchemaError("Unable to find targets in build file %s", path)
	}
	for i, t := range targets {
		target := defaults.Copy()
		if err := fl.merger.Dicts(target, t.(core.Map), path, path); err != nil {
			return err
		}
		targets[i] = target
	}
	delete(data, "target_defaults")
	return nil
}

// dependencyFiles returns the files containing the dependencies of every target in a file.
func dependencyFiles(data core.Map, path string) ([]string, error) {
	var files []string
	targets, _ := data.GetList("targets")
	for _, t := range targets {
		target := t.(core.Map)
		deps, present := target["dependencies"]
		if !present {
			continue
		}
		l, ok := deps.(core.List)
		if !ok {
			return nil, core.NewSchemaError("dependencies of %s in %s must be a list", target.StringOr("target_name", "?"), path)
		}
		for _, dep := range l {
			s, ok := dep.(core.String)
			if !ok {
				return nil, core.NewSchemaError("dependencies of %s in %s must only contain strings", target.StringOr("target_name", "?"), path)
			}
			files = append(files, core.ResolveTarget(path, string(s), "").File)
		}
	}
	return files, nil
}
