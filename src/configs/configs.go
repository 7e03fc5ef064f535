// Package configs flattens the configurations of targets.
//
// Each concrete configuration of a target ends up holding everything that applies to it:
// the target's own settings, those of every configuration it inherits from and finally its own.
package configs

import (
	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/cli/logging"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/merge"
)

var log = logging.Log

// DefaultConfiguration is the name of the configuration given to targets that don't define any.
const DefaultConfiguration = "Default"

// A Resolver sets up configurations for targets.
type Resolver struct {
	merger *merge.Merger
	schema *core.Schema
}

// New creates a new Resolver.
func New(merger *merge.Merger) *Resolver {
	return &Resolver{merger: merger, schema: merger.Schema()}
}

// SetUpAll sets up the configurations of every target, in the given order.
func (r *Resolver) SetUpAll(flatList []string, targets map[string]core.Map) error {
	for _, target := range flatList {
		if err := r.SetUp(target, targets[target]); err != nil {
			return core.AddContext(err, "while setting up configurations of %s", target)
		}
	}
	log.Debug("Set up configurations of %d targets", len(flatList))
	return nil
}

// SetUp flattens the configurations of a single target in place.
func (r *Resolver) SetUp(target string, dict core.Map) error {
	buildFile := core.ParseQualifiedTarget(target).File
	if !dict.Has("configurations") {
		dict["configurations"] = core.Map{DefaultConfiguration: core.Map{}}
	}
	configs, ok := dict["configurations"].(core.Map)
	if !ok {
		return core.NewSchemaError("configurations of %s must be a mapping, not a %s", target, core.TypeName(dict["configurations"]))
	}
	for _, name := range configs.Keys() {
		if _, ok := configs[name].(core.Map); !ok {
			return core.NewSchemaError("configuration %s of %s must be a mapping, not a %s", name, target, core.TypeName(configs[name]))
		}
	}
	if !dict.Has("default_configuration") {
		concrete := concreteConfigurations(configs)
		if len(concrete) == 0 {
			return core.NewSchemaError("%s has no non-abstract configurations", target)
		}
		dict["default_configuration"] = core.String(concrete[0])
	}
	// Abstract configurations are dropped now that everything has inherited from them.
	merged := core.Map{}
	for _, name := range concreteConfigurations(configs) {
		config := core.Map{}
		for k, v := range dict {
			if !r.schema.IsNonConfigurationKey(k) {
				config[k] = core.Copy(v)
			}
		}
		if err := r.mergeWithInheritance(config, buildFile, configs, name, nil); err != nil {
			return err
		}
		for _, key := range config.Keys() {
			if slices.Contains(core.InvalidConfigurationKeys, key) {
				return core.NewSchemaError("%s not allowed in the %s configuration, found in target %s", key, name, target)
			}
		}
		merged[name] = config
	}
	dict["configurations"] = merged
	for k := range dict {
		if !r.schema.IsNonConfigurationKey(k) {
			delete(dict, k)
		}
	}
	return nil
}

// mergeWithInheritance merges a configuration into the given one, with all of its parents first.
// chain is the configurations currently being merged, which are skipped if seen again.
func (r *Resolver) mergeWithInheritance(into core.Map, buildFile string, configs core.Map, name string, chain []string) error {
	if slices.Contains(chain, name) {
		return nil
	}
	config, ok := configs[name].(core.Map)
	if !ok {
		return core.NewSchemaError("Configuration %s inherits from %s, which does not exist", chain[len(chain)-1], name)
	}
	if v, present := config["inherit_from"]; present {
		parents, ok := v.(core.List)
		if !ok {
			return core.NewSchemaError("inherit_from in configuration %s must be a list", name)
		}
		for _, parent := range parents.Strings() {
			if err := r.mergeWithInheritance(into, buildFile, configs, parent, append(chain, name)); err != nil {
				return err
			}
		}
	}
	if err := r.merger.Dicts(into, config, buildFile, buildFile); err != nil {
		return err
	}
	delete(into, "abstract")
	return nil
}

// concreteConfigurations returns the names of all non-abstract configurations, sorted.
func concreteConfigurations(configs core.Map) []string {
	ret := []string{}
	for _, name := range configs.Keys() {
		if config, ok := configs[name].(core.Map); ok && !config.Bool("abstract", false) {
			ret = append(ret, name)
		}
	}
	return ret
}
