// Package validate checks resolved targets for problems that can only be seen once all
// merging and expansion is done.
package validate

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/core"
)

// TargetTypes are the valid values of a target's type.
var TargetTypes = []string{"executable", "loadable_module", "static_library", "shared_library", "none"}

// compiledExtensions are the extensions of sources that compile to an object file.
var compiledExtensions = []string{".c", ".cc", ".cpp", ".cxx", ".m", ".mm", ".s", ".S"}

// A Validator checks targets.
type Validator struct {
	// DuplicateBasenameCheck rejects static libraries with more than one compiled source of the same basename.
	DuplicateBasenameCheck bool
	// ExtraSourcesForRules are extra keys of a target whose files are matched against its rules.
	ExtraSourcesForRules []string
}

// ValidateAll validates every target in the given list, stopping at the first one with any problems.
func (v *Validator) ValidateAll(flat []string, targets map[string]core.Map) error {
	for _, target := range flat {
		if err := v.Validate(target, targets[target]); err != nil {
			return core.AddContext(err, "while validating %s", target)
		}
	}
	return nil
}

// Validate validates a single target, returning every problem found with it.
// Rules of the target gain a rule_sources list of the sources they apply to.
func (v *Validator) Validate(target string, dict core.Map) error {
	var errs *multierror.Error
	errs = multierror.Append(errs, requiredFields(target, dict)...)
	errs = multierror.Append(errs, targetType(target, dict)...)
	if v.DuplicateBasenameCheck {
		errs = multierror.Append(errs, duplicateBasenames(target, dict)...)
	}
	errs = multierror.Append(errs, v.rules(target, dict)...)
	errs = multierror.Append(errs, runAs(target, dict)...)
	errs = multierror.Append(errs, actions(target, dict)...)
	return errs.ErrorOrNil()
}

func requiredFields(target string, dict core.Map) []error {
	var errs []error
	for _, field := range []string{"target_name", "type"} {
		if !dict.Has(field) {
			errs = append(errs, core.NewSchemaError("Missing '%s' field in target %s", field, target))
		}
	}
	return errs
}

func targetType(target string, dict core.Map) []error {
	typ, present := dict["type"]
	if !present {
		return nil // Reported as a missing field
	}
	s, _ := typ.(core.String)
	if !slices.Contains(TargetTypes, string(s)) {
		return []error{core.NewSchemaError("Target %s has an invalid target type '%v'.  Must be one of %s.", target, core.Interface(typ), strings.Join(TargetTypes, "/"))}
	}
	if dict.Bool("standalone_static_library", false) && s != "static_library" {
		return []error{core.NewSchemaError("Target %s has type %s but standalone_static_library flag is only valid for static_library type.", target, s)}
	}
	return nil
}

func duplicateBasenames(target string, dict core.Map) []error {
	if t, _ := dict.GetString("type"); t != "static_library" {
		return nil
	}
	sources, _ := dict.GetList("sources")
	basenames := map[string][]string{}
	for _, source := range sources.Strings() {
		ext := filepath.Ext(source)
		if !slices.Contains(compiledExtensions, ext) {
			continue
		}
		basename := strings.TrimSuffix(filepath.Base(source), ext)
		basenames[basename] = append(basenames[basename], source)
	}
	var errs []error
	names := make([]string, 0, len(basenames))
	for name := range basenames {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if files := basenames[name]; len(files) > 1 {
			errs = append(errs, core.NewSchemaError("static library %s has several files with the same basename %s: %s", target, name, strings.Join(files, " ")))
		}
	}
	return errs
}

func (v *Validator) rules(target string, dict core.Map) []error {
	rulesValue, present := dict["rules"]
	if !present {
		return nil
	}
	rules, ok := rulesValue.(core.List)
	if !ok {
		return []error{core.NewSchemaError("rules of target %s must be a list, not a %s", target, core.TypeName(rulesValue))}
	}
	var errs []error
	names := map[string]bool{}
	extensions := map[string]string{}
	for _, r := range rules {
		rule, ok := r.(core.Map)
		if !ok {
			errs = append(errs, core.NewSchemaError("rules of target %s must be mappings, not %s", target, core.TypeName(r)))
			continue
		}
		name, ok := rule.GetString("rule_name")
		if !ok || name == "" {
			errs = append(errs, core.NewSchemaError("Rule in target %s must have a rule_name", target))
			continue
		} else if names[name] {
			errs = append(errs, core.NewSchemaError("rule %s exists in duplicate, target %s", name, target))
			continue
		}
		names[name] = true
		ext, ok := rule.GetString("extension")
		if !ok {
			errs = append(errs, core.NewSchemaError("rule %s in target %s must have an extension", name, target))
			continue
		}
		ext = strings.TrimPrefix(ext, ".")
		if other, present := extensions[ext]; present {
			errs = append(errs, core.NewSchemaError("extension %s associated with multiple rules, target %s rules %s and %s", ext, target, other, name))
			continue
		}
		extensions[ext] = name
		if rule.Has("rule_sources") {
			errs = append(errs, core.NewSchemaError("rule_sources must not exist in input, target %s rule %s", target, name))
			continue
		}
		ruleSources := core.List{}
		for _, key := range append([]string{"sources"}, v.ExtraSourcesForRules...) {
			sources, _ := dict.GetList(key)
			for _, source := range sources.Strings() {
				if strings.TrimPrefix(filepath.Ext(source), ".") == ext {
					ruleSources = append(ruleSources, core.String(source))
				}
			}
		}
		if len(ruleSources) > 0 {
			rule["rule_sources"] = ruleSources
		}
	}
	return errs
}

func runAs(target string, dict core.Map) []error {
	v, present := dict["run_as"]
	if !present {
		return nil
	}
	runAs, ok := v.(core.Map)
	if !ok {
		return []error{core.NewSchemaError("The 'run_as' in target %s should be a dictionary.", target)}
	}
	var errs []error
	if action, present := runAs["action"]; !present || !core.Truthy(action) {
		errs = append(errs, core.NewSchemaError("The 'run_as' in target %s must have an 'action' section.", target))
	} else if _, ok := action.(core.List); !ok {
		errs = append(errs, core.NewSchemaError("The 'action' for 'run_as' in target %s must be a list.", target))
	}
	if wd, present := runAs["working_directory"]; present && core.Truthy(wd) {
		if _, ok := wd.(core.String); !ok {
			errs = append(errs, core.NewSchemaError("The 'working_directory' for 'run_as' in target %s should be a string.", target))
		}
	}
	if env, present := runAs["environment"]; present && core.Truthy(env) {
		if _, ok := env.(core.Map); !ok {
			errs = append(errs, core.NewSchemaError("The 'environment' for 'run_as' in target %s should be a dictionary.", target))
		}
	}
	return errs
}

func actions(target string, dict core.Map) []error {
	v, present := dict["actions"]
	if !present {
		return nil
	}
	actions, ok := v.(core.List)
	if !ok {
		return []error{core.NewSchemaError("actions of target %s must be a list, not a %s", target, core.TypeName(v))}
	}
	var errs []error
	for _, a := range actions {
		action, ok := a.(core.Map)
		if !ok {
			errs = append(errs, core.NewSchemaError("actions of target %s must be mappings, not %s", target, core.TypeName(a)))
			continue
		}
		if !core.Truthy(action["action_name"]) {
			errs = append(errs, core.NewSchemaError("Anonymous action in target %s.  An action must have an 'action_name' field.", target))
			continue
		}
		if !action.Has("inputs") {
			errs = append(errs, core.NewSchemaError("Action in target %s has no inputs.", target))
		}
		if command, ok := action.GetList("action"); ok && len(command) > 0 && !core.Truthy(command[0]) {
			errs = append(errs, core.NewSchemaError("Empty action as command in target %s.", target))
		}
	}
	return errs
}
