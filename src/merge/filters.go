package merge

import (
	"regexp"

	"golang.org/x/exp/slices"

	"github.com/please-build/descgen/src/core"
)

const (
	noAction = -1
	exclude  = 0
	include  = 1
)

// ProcessListFilters applies exclusion and regex filters to the lists in a mapping, recursively.
//
// A key ending in ! (e.g. sources!) lists items to remove from the base list (sources).
// A key ending in / holds ordered [action, regex] pairs where action is exclude or include;
// for each item the last rule that applies to it wins, and include can bring back an item
// excluded by ! or an earlier rule. Excluded items are collected into K_excluded.
// Filter keys whose base list doesn't exist are simply dropped.
func ProcessListFilters(name string, m core.Map) error {
	lists := []string{}
	for _, key := range m.Keys() {
		op := key[len(key)-1]
		if op != '!' && op != '/' {
			continue
		}
		if _, ok := m[key].(core.List); !ok {
			return core.NewSchemaError("%s key %s must be list, not %s", name, key, core.TypeName(m[key]))
		}
		listKey := key[:len(key)-1]
		base, present := m[listKey]
		if !present {
			delete(m, key)
			continue
		} else if _, ok := base.(core.List); !ok {
			what := "exclusion"
			if op == '/' {
				what = "regex"
			}
			return core.NewSchemaError("%s key %s must be list, not %s when applying %s", name, listKey, core.TypeName(base), what)
		}
		if !slices.Contains(lists, listKey) {
			lists = append(lists, listKey)
		}
	}
	for _, listKey := range lists {
		if err := filterList(name, m, listKey); err != nil {
			return err
		}
	}
	for _, key := range m.Keys() {
		if err := processListFiltersIn(key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

func processListFiltersIn(name string, v core.Value) error {
	switch v := v.(type) {
	case core.Map:
		return ProcessListFilters(name, v)
	case core.List:
		for _, item := range v {
			if err := processListFiltersIn(name, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// filterList applies the filters for a single list.
func filterList(name string, m core.Map, listKey string) error {
	list := m[listKey].(core.List)
	actions := make([]int, len(list))
	for i := range actions {
		actions[i] = noAction
	}
	excludeKey := listKey + "!"
	if excludes, present := m.GetList(excludeKey); present {
		for _, item := range excludes {
			for i, x := range list {
				if core.Equal(item, x) {
					actions[i] = exclude
				}
			}
		}
		delete(m, excludeKey)
	}
	regexKey := listKey + "/"
	if rules, present := m.GetList(regexKey); present {
		for _, rule := range rules {
			action, pattern, err := parseRule(name, regexKey, rule)
			if err != nil {
				return err
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return core.NewSchemaError("Invalid regex %q in %s key %s: %s", pattern, name, regexKey, err)
			}
			for i, item := range list {
				if actions[i] == action {
					continue // Nothing would change
				}
				if s, ok := scalarString(item); ok && re.MatchString(s) {
					actions[i] = action
				}
			}
		}
		delete(m, regexKey)
	}
	excludedKey := listKey + "_excluded"
	if m.Has(excludedKey) {
		return core.NewSchemaError("%s key %s must not be present prior to applying exclusion/regex filters for %s", name, excludedKey, listKey)
	}
	kept := make(core.List, 0, len(list))
	excluded := core.List{}
	for i, item := range list {
		if actions[i] == exclude {
			excluded = append(excluded, item)
		} else {
			kept = append(kept, item)
		}
	}
	m[listKey] = kept
	if len(excluded) > 0 {
		m[excludedKey] = excluded
	}
	return nil
}

// parseRule parses one [action, pattern] regex filter rule.
func parseRule(name, key string, rule core.Value) (int, string, error) {
	l, ok := rule.(core.List)
	if !ok || len(l) != 2 {
		return 0, "", core.NewSchemaError("%s key %s must contain [action, pattern] pairs", name, key)
	}
	action, _ := l[0].(core.String)
	pattern, ok := l[1].(core.String)
	if !ok {
		return 0, "", core.NewSchemaError("%s key %s has a non-string pattern", name, key)
	}
	switch action {
	case "exclude":
		return exclude, string(pattern), nil
	case "include":
		return include, string(pattern), nil
	}
	return 0, "", core.NewSchemaError("Unrecognized action %s in %s key %s", action, name, key)
}

func scalarString(v core.Value) (string, bool) {
	s := core.List{v}.Strings()
	if len(s) == 1 {
		return s[0], true
	}
	return "", false
}
