// Package generate contains the registry of generators, which turn a resolved graph into
// files for some other tool to consume.
package generate

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/fs"
	"github.com/please-build/descgen/src/resolve"
	"github.com/please-build/descgen/src/utils"
)

var log = logging.Log

// Params are the parameters of one run of a generator.
type Params struct {
	// Files are the root description files.
	Files []string
	// OutputDir is the directory that output is written into.
	OutputDir string
	// Depth is the root directory of the project.
	Depth string
	// Flags are generator-specific flags given as name=value.
	Flags map[string]string
}

// Flag returns the value of a generator flag, or def if it isn't set.
func (p Params) Flag(name, def string) string {
	if v, present := p.Flags[name]; present {
		return v
	}
	return def
}

// A Generator writes output for a resolved graph.
type Generator interface {
	// Name returns the name this generator is selected by.
	Name() string
	// GenerateOutput writes output for the resolved graph.
	GenerateOutput(result *resolve.Result, params Params) error
}

// A VariableCalculator is a Generator that adds its own default variables.
type VariableCalculator interface {
	CalculateVariables(vars expand.Variables, params Params)
}

// An InputInfoProvider is a Generator that needs its input resolved in a particular way.
type InputInfoProvider interface {
	InputInfo() core.InputInfo
}

var registry = map[string]Generator{}
var registryMutex sync.RWMutex

// Register registers a new generator. It panics if one of the same name is already registered.
func Register(g Generator) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	if _, present := registry[g.Name()]; present {
		panic("generator " + g.Name() + " registered twice")
	}
	registry[g.Name()] = g
}

// Get returns the generator of the given name.
func Get(name string) (Generator, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	if g, present := registry[name]; present {
		return g, nil
	}
	return nil, fmt.Errorf("Unknown generator %s%s", name, utils.PrettyPrintSuggestion(name, names(), utils.MaxSuggestionDistance))
}

// Names returns the names of all registered generators, sorted.
func Names() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return names()
}

func names() []string {
	ret := make([]string, 0, len(registry))
	for name := range registry {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// InputInfo returns what the given generator declares about its input.
func InputInfo(g Generator) core.InputInfo {
	if p, ok := g.(InputInfoProvider); ok {
		return p.InputInfo()
	}
	return core.InputInfo{}
}

// OSFlavor returns the value of the OS variable for the current platform.
func OSFlavor() string {
	switch runtime.GOOS {
	case "darwin":
		return "mac"
	case "windows":
		return "win"
	case "dragonfly", "freebsd", "netbsd", "openbsd":
		return runtime.GOOS
	}
	return "linux"
}

// DefaultVariables returns the variables that are defined for the given generator
// before any that are given by the user.
func DefaultVariables(g Generator, params Params) expand.Variables {
	vars := expand.Variables{
		"OS":        core.String(OSFlavor()),
		"GENERATOR": core.String(g.Name()),
	}
	if params.Depth != "" {
		vars["DEPTH"] = core.String(filepath.ToSlash(params.Depth))
	}
	if c, ok := g.(VariableCalculator); ok {
		c.CalculateVariables(vars, params)
	}
	return vars
}

// writeOutput writes a generated file into the output directory, leaving it alone if it hasn't changed.
func writeOutput(params Params, filename string, contents []byte) error {
	path := filepath.Join(params.OutputDir, filename)
	if err := fs.EnsureDir(path); err != nil {
		return err
	}
	written, err := fs.WriteFileIfChanged(path, contents, 0644)
	if err != nil {
		return err
	} else if written {
		log.Notice("Wrote %s", path)
	} else {
		log.Info("%s is unchanged", path)
	}
	return nil
}

func init() {
	Register(yamlGenerator{})
	Register(dotGenerator{})
}
