package expand

import (
	"strings"

	"github.com/please-build/descgen/src/core"
)

// ProcessDict expands all macros of the given phase within a mapping, in place, and evaluates
// its conditional blocks. The given variables are not modified.
func (e *Engine) ProcessDict(dict core.Map, phase Phase, vars Variables, buildFile string) error {
	return e.processDict(dict, phase, vars, buildFile, "", 0)
}

// ProcessList expands all macros of the given phase within a list. Items that expand to lists
// are spliced in place, so it returns the new list; mappings within it are updated in place.
func (e *Engine) ProcessList(list core.List, phase Phase, vars Variables, buildFile string) (core.List, error) {
	return e.processList(list, phase, vars, buildFile, 0)
}

// processDict implements ProcessDict. dictKey is the key of this mapping in its parent, if it has one.
func (e *Engine) processDict(dict core.Map, phase Phase, varsIn Variables, buildFile, dictKey string, depth int) error {
	vars := varsIn.Copy()
	loadAutomaticVariables(vars, dict)
	if v, present := dict["variables"]; present {
		variables, ok := v.(core.Map)
		if !ok {
			return core.NewSchemaError("variables in %s must be a mapping, not a %s", buildFile, core.TypeName(v))
		}
		// Everything goes in first so the variables can refer to one another.
		for k, x := range variables {
			vars[k] = x
		}
		if err := e.processDict(variables, phase, vars, buildFile, "variables", depth); err != nil {
			return err
		}
	}
	loadVariables(vars, dict, dictKey)
	for _, k := range dict.Keys() {
		s, ok := dict[k].(core.String)
		if !ok || k == "variables" {
			continue
		}
		expanded, err := e.expand(string(s), phase, vars, buildFile, depth, false)
		if err != nil {
			return err
		} else if !core.IsScalar(expanded) {
			return core.NewSchemaError("Variable expansion in this context permits strings and ints only, found a %s for %s in %s", core.TypeName(expanded), k, buildFile)
		}
		dict[k] = expanded
	}
	// Expansion may have changed the automatic variables, so reload them.
	vars = reloadVariables(varsIn, dict, dictKey)
	if err := e.processConditions(dict, phase, vars, buildFile, depth); err != nil {
		return err
	}
	// As may the conditions.
	vars = reloadVariables(varsIn, dict, dictKey)
	for _, k := range dict.Keys() {
		if k == "variables" {
			continue
		}
		switch v := dict[k].(type) {
		case core.Map:
			if err := e.processDict(v, phase, vars, buildFile, k, depth); err != nil {
				return err
			}
		case core.List:
			l, err := e.processList(v, phase, vars, buildFile, depth)
			if err != nil {
				return err
			}
			dict[k] = l
		}
	}
	return nil
}

func (e *Engine) processList(list core.List, phase Phase, vars Variables, buildFile string, depth int) (core.List, error) {
	ret := make(core.List, 0, len(list))
	for _, item := range list {
		switch item := item.(type) {
		case core.Map:
			if err := e.processDict(item, phase, vars, buildFile, "", depth); err != nil {
				return nil, err
			}
			ret = append(ret, item)
		case core.List:
			l, err := e.processList(item, phase, vars, buildFile, depth)
			if err != nil {
				return nil, err
			}
			ret = append(ret, l)
		case core.String:
			expanded, err := e.expand(string(item), phase, vars, buildFile, depth, false)
			if err != nil {
				return nil, err
			} else if l, ok := expanded.(core.List); ok {
				ret = append(ret, l...)
			} else {
				ret = append(ret, expanded)
			}
		default:
			ret = append(ret, item)
		}
	}
	return ret, nil
}

// loadAutomaticVariables adds a variable named _key for each string, int or list value in the mapping.
func loadAutomaticVariables(vars Variables, dict core.Map) {
	for k, v := range dict {
		switch v.(type) {
		case core.String, core.Int, core.List:
			vars["_"+k] = v
		}
	}
}

// loadVariables adds the contents of the mapping's variables section, if it has one.
// Names ending in % are only set if not already present.
func loadVariables(vars Variables, dict core.Map, dictKey string) {
	variables, _ := dict["variables"].(core.Map)
	for _, k := range variables.Keys() {
		v := variables[k]
		if _, ok := v.(core.Map); ok {
			continue
		}
		name := k
		if strings.HasSuffix(k, "%") {
			name = strings.TrimSuffix(k, "%")
			if _, present := vars[name]; present {
				continue
			}
			// Within a variables section of a variables section, a plain definition alongside wins.
			if x, present := dict[name]; present && dictKey == "variables" {
				v = x
			}
		}
		vars[name] = v
	}
}

func reloadVariables(varsIn Variables, dict core.Map, dictKey string) Variables {
	vars := varsIn.Copy()
	loadAutomaticVariables(vars, dict)
	loadVariables(vars, dict, dictKey)
	return vars
}

// processConditions evaluates the conditions of this phase within a mapping, merging the selected
// blocks into it and removing the conditions.
func (e *Engine) processConditions(dict core.Map, phase Phase, vars Variables, buildFile string, depth int) error {
	key := phase.ConditionsKey()
	if key == "" {
		return nil
	}
	v, present := dict[key]
	if !present {
		return nil
	}
	delete(dict, key)
	conditions, ok := v.(core.List)
	if !ok {
		return core.NewSchemaError("%s must be a list in %s, not a %s", key, buildFile, core.TypeName(v))
	}
	for _, c := range conditions {
		block, err := e.selectBlock(c, key, phase, vars, buildFile)
		if err != nil {
			return err
		} else if block == nil {
			continue
		}
		if err := e.processDict(block, phase, vars, buildFile, "", depth); err != nil {
			return err
		} else if err := e.merger.Dicts(dict, block, buildFile, buildFile); err != nil {
			return err
		}
	}
	return nil
}

// selectBlock evaluates one entry of a conditions list, which may be a chain of the form
// [cond1, block1, cond2, block2, ..., else_block], and returns the block to use, or nil if none applies.
func (e *Engine) selectBlock(c core.Value, key string, phase Phase, vars Variables, buildFile string) (core.Map, error) {
	condition, ok := c.(core.List)
	if !ok {
		return nil, core.NewSchemaError("%s must be a list in %s", key, buildFile)
	} else if len(condition) < 2 {
		return nil, core.NewSchemaError("%s entries must be at least length 2, not %d in %s", key, len(condition), buildFile)
	}
	var result core.Map
	matched := false
	for i := 0; i < len(condition); {
		expr, ok := condition[i].(core.String)
		if !ok {
			return nil, core.NewSchemaError("%s %s must be a string in %s", key, render(condition[i]), buildFile)
		} else if i+1 >= len(condition) {
			return nil, core.NewSchemaError("%s %s must be followed by a mapping in %s", key, expr, buildFile)
		}
		trueBlock, ok := condition[i+1].(core.Map)
		if !ok {
			return nil, core.NewSchemaError("%s %s must be followed by a mapping, not a %s in %s", key, expr, core.TypeName(condition[i+1]), buildFile)
		}
		var falseBlock core.Map
		if i+2 < len(condition) {
			if m, ok := condition[i+2].(core.Map); ok {
				falseBlock = m
				i += 3
				if i != len(condition) {
					return nil, core.NewSchemaError("%s %s has %d unexpected trailing items in %s", key, expr, len(condition)-i, buildFile)
				}
			} else {
				i += 2
			}
		} else {
			i += 2
		}
		if matched {
			continue
		}
		b, err := e.evalCondition(string(expr), phase, vars, buildFile)
		if err != nil {
			return nil, err
		} else if b {
			result = trueBlock
			matched = true
		} else if falseBlock != nil {
			result = falseBlock
			matched = true
		}
	}
	return result, nil
}

// evalCondition expands and evaluates a single condition expression.
func (e *Engine) evalCondition(expr string, phase Phase, vars Variables, buildFile string) (bool, error) {
	expanded, err := e.Expand(expr, phase, vars, buildFile)
	if err != nil {
		return false, err
	} else if !core.IsScalar(expanded) {
		return false, core.NewSchemaError("Variable expansion in this context permits strings and ints only, found a %s in condition '%s' in %s", core.TypeName(expanded), expr, buildFile)
	}
	text := render(expanded)
	cond, err := e.conditions.GetOrCompute(text, func() (condition, error) {
		return parseCondition(text)
	})
	if err != nil {
		return false, core.AddContext(err, "while evaluating condition '%s' in %s", text, buildFile)
	}
	e.countCondition()
	v, err := cond.eval(vars)
	if err != nil {
		return false, core.AddContext(err, "while evaluating condition '%s' in %s", text, buildFile)
	}
	return truthy(v), nil
}
