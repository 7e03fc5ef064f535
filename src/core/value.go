package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A Value is any value that can appear in a description file.
// It is one of String, Int, List or Map; nothing else implements it.
type Value interface {
	isValue()
}

// A String is a string literal.
type String string

// An Int is an integer literal.
type Int int

// A List is an ordered sequence of values. Tuples in description files are also read as Lists.
type List []Value

// A Map is a mapping of string keys to values.
type Map map[string]Value

func (String) isValue() {}
func (Int) isValue()    {}
func (List) isValue()   {}
func (Map) isValue()    {}

// TypeName returns a short human-readable name of the type of v, for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case String:
		return "string"
	case Int:
		return "int"
	case List:
		return "list"
	case Map:
		return "map"
	case nil:
		return "nothing"
	}
	return fmt.Sprintf("%T", v)
}

// IsScalar returns true if the value is a string or an integer.
func IsScalar(v Value) bool {
	switch v.(type) {
	case String, Int:
		return true
	}
	return false
}

// Copy returns a deep copy of the given value.
func Copy(v Value) Value {
	switch v := v.(type) {
	case List:
		return v.Copy()
	case Map:
		return v.Copy()
	}
	return v
}

// Copy returns a deep copy of this list.
func (l List) Copy() List {
	if l == nil {
		return nil
	}
	ret := make(List, len(l))
	for i, v := range l {
		ret[i] = Copy(v)
	}
	return ret
}

// Copy returns a deep copy of this map.
func (m Map) Copy() Map {
	if m == nil {
		return nil
	}
	ret := make(Map, len(m))
	for k, v := range m {
		ret[k] = Copy(v)
	}
	return ret
}

// Keys returns the keys of this map in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has returns true if the map contains the given key.
func (m Map) Has(key string) bool {
	_, present := m[key]
	return present
}

// GetString returns the string value for a key, and whether it was present as a string.
func (m Map) GetString(key string) (string, bool) {
	s, ok := m[key].(String)
	return string(s), ok
}

// StringOr returns the string value for a key, or the default if it isn't a string.
// Integers are rendered as their base 10 form.
func (m Map) StringOr(key, def string) string {
	switch v := m[key].(type) {
	case String:
		return string(v)
	case Int:
		return strconv.Itoa(int(v))
	}
	return def
}

// GetList returns the list value for a key, and whether it was present as a list.
func (m Map) GetList(key string) (List, bool) {
	l, ok := m[key].(List)
	return l, ok
}

// GetMap returns the map value for a key, and whether it was present as a map.
func (m Map) GetMap(key string) (Map, bool) {
	v, ok := m[key].(Map)
	return v, ok
}

// Bool interprets the value of a key as a boolean flag, returning def if absent.
// Integers are true when non-zero, strings when non-empty and not "0".
func (m Map) Bool(key string, def bool) bool {
	v, present := m[key]
	if !present {
		return def
	}
	return Truthy(v)
}

// Truthy returns the truthiness of a value; zero, "", "0" and empty collections are false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case String:
		return v != "" && v != "0"
	case Int:
		return v != 0
	case List:
		return len(v) > 0
	case Map:
		return len(v) > 0
	}
	return false
}

// Strings returns the string items of the list, rendering integers in base 10 and skipping anything else.
func (l List) Strings() []string {
	ret := make([]string, 0, len(l))
	for _, v := range l {
		switch v := v.(type) {
		case String:
			ret = append(ret, string(v))
		case Int:
			ret = append(ret, strconv.Itoa(int(v)))
		}
	}
	return ret
}

// Contains returns true if the list contains a scalar equal to the given one.
func (l List) Contains(v Value) bool {
	return l.Index(v) != -1
}

// Index returns the index of the first item equal to v, or -1 if there is none.
// Only scalars are compared; collections never match.
func (l List) Index(v Value) int {
	for i, x := range l {
		if ScalarEqual(x, v) {
			return i
		}
	}
	return -1
}

// NewStringList returns a List of the given strings.
func NewStringList(s ...string) List {
	ret := make(List, len(s))
	for i, x := range s {
		ret[i] = String(x)
	}
	return ret
}

// ScalarEqual returns true if both values are scalars of the same type and value.
func ScalarEqual(a, b Value) bool {
	switch a := a.(type) {
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	}
	return false
}

// Equal returns true if two values are deeply equal.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Map:
		b, ok := b.(Map)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, v := range a {
			if w, present := b[k]; !present || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return ScalarEqual(a, b)
}

// IsCanonicalInt returns true if s is the canonical base 10 form of an integer,
// i.e. rendering the parsed integer gives back exactly s.
func IsCanonicalInt(s string) bool {
	if s == "0" {
		return true
	}
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" || s[0] < '1' || s[0] > '9' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ToInt converts a canonical integer string to an Int, or returns the string unchanged.
func ToInt(s string) Value {
	if IsCanonicalInt(s) {
		if i, err := strconv.Atoi(s); err == nil {
			return Int(i)
		}
	}
	return String(s)
}

// Interface converts a value into plain Go types (string, int, []interface{}, map[string]interface{}),
// which is convenient for serialisation.
func Interface(v Value) interface{} {
	switch v := v.(type) {
	case String:
		return string(v)
	case Int:
		return int(v)
	case List:
		ret := make([]interface{}, len(v))
		for i, x := range v {
			ret[i] = Interface(x)
		}
		return ret
	case Map:
		ret := make(map[string]interface{}, len(v))
		for k, x := range v {
			ret[k] = Interface(x)
		}
		return ret
	}
	return nil
}
