package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/please-build/descgen/src/cli"
	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/fs"
	"github.com/please-build/descgen/src/generate"
	"github.com/please-build/descgen/src/resolve"
)

var log = logging.Log

var opts = struct {
	Usage                    string
	Verbosity                cli.Verbosity     `short:"v" long:"verbosity" default:"notice" description:"Verbosity of output (higher number = more output)"`
	Defines                  []cli.Define      `short:"D" long:"define" description:"Defines a variable, as name=value. A bare name is defined as 1."`
	Includes                 cli.Filepaths     `short:"I" long:"include" description:"Files to include into every target file"`
	Depth                    cli.Filepath      `long:"depth" description:"Root directory of the project, which DEPTH is relative to"`
	Parallel                 bool              `long:"parallel" description:"Load description files in parallel"`
	NumWorkers               int               `short:"j" long:"num_workers" description:"Number of workers to load files with when --parallel is given"`
	RootTargets              []string          `short:"R" long:"root_target" description:"Only resolve these targets and their dependencies"`
	Formats                  []string          `short:"f" long:"format" description:"Output formats to generate"`
	GeneratorFlags           []cli.Define      `short:"G" long:"generator_flag" description:"Flags passed to the generator, as name=value"`
	GeneratorOutput          cli.Filepath      `long:"generator_output" description:"Directory to write generated output into"`
	NoCircularCheck          bool              `long:"no_circular_check" description:"Don't check for dependency cycles between description files"`
	NoDuplicateBasenameCheck bool              `long:"no_duplicate_basename_check" description:"Don't check for static libraries with several sources of the same basename"`
	Dump                     bool              `long:"dump" description:"Prints the resolved targets to stdout instead of generating output"`
	NoConfig                 bool              `long:"no_config" description:"Don't look for or load a .descgenconfig file"`
	Overrides                map[string]string `short:"o" long:"override" env:"DESCGEN_OVERRIDES" env-delim:";" description:"Options to override from .descgenconfig (e.g. -o resolve.parallel:true)"`
	Args                     struct {
		Files cli.Filepaths `positional-arg-name:"files" description:"Description files, or directories to search for them"`
	} `positional-args:"true"`
}{
	Usage: `
descgen resolves a set of description files into a graph of targets and generates output for it.

Files given on the command line, and every file that their targets depend on, are loaded,
expanded and merged; the resolved targets are then handed to each requested generator.
`,
}

func main() {
	cli.ParseFlagsOrDie("descgen", &opts)
	cli.InitLogging(opts.Verbosity)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debug)); err != nil {
		log.Warning("Failed to set GOMAXPROCS: %s", err)
	}
	config, err := readConfig()
	if err != nil {
		log.Fatalf("%s", err)
	}
	files, err := findFiles(opts.Args.Files.AsStrings(), config.Resolve.FileExtension)
	if err != nil {
		log.Fatalf("%s", err)
	} else if len(files) == 0 {
		log.Fatalf("No description files found")
	}
	formats := opts.Formats
	if len(formats) == 0 {
		formats = config.Generate.Format
	}
	for _, format := range formats {
		if err := run(format, files, config); err != nil {
			log.Fatalf("%s", err)
		}
	}
}

// readConfig reads the config files, unless told not to, and applies any overrides.
func readConfig() (*core.Configuration, error) {
	filenames := []string{core.ConfigFileName, core.LocalConfigFileName}
	if opts.NoConfig {
		filenames = nil
	}
	config, err := core.ReadConfigFiles(filenames)
	if err != nil {
		return nil, err
	}
	return config, config.ApplyOverrides(opts.Overrides)
}

// findFiles returns the description files to load. Directories are searched for files with the
// given extension, and with no arguments the current directory is.
func findFiles(args []string, extension string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	files := []string{}
	for _, arg := range args {
		if !fs.PathExists(arg) {
			return nil, fmt.Errorf("%s does not exist", arg)
		}
		found, err := fs.FindFiles(arg, extension)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// run resolves the files for one generator and runs it.
func run(format string, files []string, config *core.Configuration) error {
	g, err := generate.Get(format)
	if err != nil {
		return err
	}
	depth := string(opts.Depth)
	if depth == "" {
		depth = config.Resolve.RootDepth
	}
	if depth == "" {
		depth = filepath.Dir(files[0])
	}
	outputDir := string(opts.GeneratorOutput)
	if outputDir == "" {
		outputDir = config.Generate.OutputDir
	}
	params := generate.Params{
		Files:     files,
		OutputDir: outputDir,
		Depth:     depth,
		Flags:     map[string]string{},
	}
	generatorFlags, err := cli.ParseDefines(os.Getenv("DESCGEN_GENERATOR_FLAGS"))
	if err != nil {
		return err
	}
	for _, flag := range append(generatorFlags, opts.GeneratorFlags...) {
		params.Flags[flag.Name] = flag.Value
	}
	vars, err := variables(g, params, config)
	if err != nil {
		return err
	}
	info := generate.InputInfo(g)
	workers := opts.NumWorkers
	if workers <= 0 {
		workers = config.Resolve.NumWorkers
	}
	log.Info("Resolving %d files for %s", len(files), format)
	result, err := resolve.Load(context.Background(), resolve.Options{
		Files:                  files,
		Variables:              vars,
		Includes:               opts.Includes.AsStrings(),
		Depth:                  depth,
		Parallel:               opts.Parallel || config.Resolve.Parallel,
		NumWorkers:             workers,
		CircularCheck:          config.Resolve.CircularCheck && !opts.NoCircularCheck,
		DuplicateBasenameCheck: config.Resolve.DuplicateBasenameCheck && !opts.NoDuplicateBasenameCheck,
		RootTargets:            opts.RootTargets,
		Info:                   info,
	})
	if err != nil {
		return err
	}
	if opts.Dump {
		dump(result)
		return nil
	}
	return g.GenerateOutput(result, params)
}

// variables returns the default variables for a generator, with everything the user has defined on top.
func variables(g generate.Generator, params generate.Params, config *core.Configuration) (expand.Variables, error) {
	vars := generate.DefaultVariables(g, params)
	defines, err := cli.ParseDefines(os.Getenv("DESCGEN_DEFINES"))
	if err != nil {
		return nil, err
	}
	for _, define := range config.Variables.Define {
		d := cli.Define{}
		if err := d.UnmarshalFlag(define); err != nil {
			return nil, err
		}
		defines = append(defines, d)
	}
	for _, d := range append(defines, opts.Defines...) {
		if d.HasValue {
			vars[d.Name] = core.ToInt(d.Value)
		} else {
			vars[d.Name] = core.Int(1)
		}
	}
	return vars, nil
}

// dump prints the resolved targets to stdout.
func dump(result *resolve.Result) {
	config := spew.NewDefaultConfig()
	config.DisablePointerAddresses = true
	config.DisableCapacities = true
	config.SortKeys = true
	config.Indent = "  "
	for _, target := range result.FlatList {
		os.Stdout.Write([]byte(target + ":\n"))
		os.Stdout.Write([]byte(config.Sdump(result.Targets[target])))
	}
}
