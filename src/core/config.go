// Utilities for reading the descgen config files.

package core

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/please-build/gcfg"

	"github.com/please-build/descgen/src/cli/logging"
)

var log = logging.Log

// ConfigFileName is the file name for the typical repo config - this is normally checked in
const ConfigFileName string = ".descgenconfig"

// LocalConfigFileName is the file name for the local repo config - this is not normally checked
// in and used to override settings on the local machine.
const LocalConfigFileName string = ".descgenconfig.local"

// DefaultFileExtension is the extension description files have by default.
const DefaultFileExtension = ".desc"

func readConfigFile(config *Configuration, filename string) error {
	log.Debug("Reading config from %s...", filename)
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil // It's not an error to not have the file at all.
	} else if err != nil {
		return fmt.Errorf("Error in config file %s: %s", filename, err)
	}
	return nil
}

// ReadConfigFiles reads all the config locations, in order, and merges them into a config object.
// Values are filled in by defaults initially and then overridden by each file in turn.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	if config.Resolve.NumWorkers <= 0 {
		config.Resolve.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if !strings.HasPrefix(config.Resolve.FileExtension, ".") {
		return config, fmt.Errorf("File extension %q must begin with a dot", config.Resolve.FileExtension)
	}
	return config, nil
}

// DefaultConfiguration returns the default configuration object with no overrides.
func DefaultConfiguration() *Configuration {
	config := Configuration{}
	config.Resolve.CircularCheck = true
	config.Resolve.DuplicateBasenameCheck = true
	config.Resolve.FileExtension = DefaultFileExtension
	config.Generate.Format = []string{"yaml"}
	config.Generate.OutputDir = "."
	return &config
}

// A Configuration contains all the settings that can be configured about descgen.
// This is parsed from .descgenconfig etc; we use gcfg for that.
type Configuration struct {
	Resolve struct {
		Parallel               bool   `help:"Load description files in parallel."`
		NumWorkers             int    `help:"Number of workers used when loading in parallel. Defaults to the number of CPUs."`
		CircularCheck          bool   `help:"Check for dependency cycles between description files as well as between targets."`
		DuplicateBasenameCheck bool   `help:"Reject static libraries that compile two sources with the same basename."`
		FileExtension          string `help:"Extension of description files, used when searching directories for them."`
		RootDepth              string `help:"Directory that the DEPTH variable is computed relative to. Defaults to the directory of the first file."`
	}
	Generate struct {
		Format    []string `help:"Output formats to generate."`
		OutputDir string   `help:"Directory that generators write into."`
	}
	Variables struct {
		Define []string `help:"Variable definitions of the form name=value, applied before any given on the command line."`
	}
}

// ApplyOverrides applies a set of overrides to the config.
// The keys of the given map are dot notation for the config setting.
func (config *Configuration) ApplyOverrides(overrides map[string]string) error {
	match := func(s1 string) func(string) bool {
		return func(s2 string) bool {
			return strings.ToLower(s2) == s1
		}
	}
	elem := reflect.ValueOf(config).Elem()
	for k, v := range overrides {
		split := strings.Split(strings.ToLower(k), ".")
		if len(split) != 2 {
			return fmt.Errorf("Bad option format: %s", k)
		}
		field := elem.FieldByNameFunc(match(split[0]))
		if !field.IsValid() {
			return fmt.Errorf("Unknown config field: %s", split[0])
		} else if field.Kind() != reflect.Struct {
			return fmt.Errorf("Unsettable config field: %s", split[0])
		}
		field = field.FieldByNameFunc(match(split[1]))
		if !field.IsValid() {
			return fmt.Errorf("Unknown config field: %s", split[1])
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(v)
		case reflect.Bool:
			v = strings.ToLower(v)
			// Mimics the set of truthy things gcfg accepts in our config file.
			field.SetBool(v == "true" || v == "yes" || v == "on" || v == "1")
		case reflect.Int:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("Invalid value for an integer field: %s", v)
			}
			field.SetInt(int64(i))
		case reflect.Slice:
			// We only have to worry about slices of strings. Comma-separated values are accepted.
			field.Set(reflect.ValueOf(strings.Split(v, ",")))
		default:
			return fmt.Errorf("Can't override config field %s", k)
		}
	}
	return nil
}
