package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
)

var m = New(core.NewSchema(core.InputInfo{}))

func strs(s ...string) core.List {
	return core.NewStringList(s...)
}

func TestMergePrepend(t *testing.T) {
	to := core.Map{"defines": strs("A")}
	require.NoError(t, m.Dicts(to, core.Map{"defines+": strs("B")}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"defines": strs("B", "A")}, to)
}

func TestMergeReplace(t *testing.T) {
	to := core.Map{"defines": strs("A")}
	require.NoError(t, m.Dicts(to, core.Map{"defines=": strs("B")}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"defines": strs("B")}, to)
}

func TestMergeAppend(t *testing.T) {
	to := core.Map{"defines": strs("A")}
	require.NoError(t, m.Dicts(to, core.Map{"defines": strs("A", "B")}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"defines": strs("A", "B")}, to)
}

func TestMergeSetIfAbsent(t *testing.T) {
	to := core.Map{"defines": strs("A")}
	require.NoError(t, m.Dicts(to, core.Map{"defines?": strs("B"), "cflags?": strs("-O2")}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"defines": strs("A"), "cflags": strs("-O2")}, to)
}

func TestMergeFlagsAreNotSingletons(t *testing.T) {
	to := core.Map{"cflags": strs("-Wall", "-O2")}
	require.NoError(t, m.Dicts(to, core.Map{"cflags": strs("-Wall")}, "x.desc", "x.desc"))
	assert.Equal(t, strs("-Wall", "-O2", "-Wall"), to["cflags"])
}

func TestMergePrependRelocatesSingletons(t *testing.T) {
	to := core.Map{"libs": strs("a", "b", "c")}
	require.NoError(t, m.Dicts(to, core.Map{"libs+": strs("c", "d")}, "x.desc", "x.desc"))
	assert.Equal(t, strs("c", "d", "a", "b"), to["libs"])
}

func TestMergePrependRepeatedSingleton(t *testing.T) {
	to := core.Map{}
	require.NoError(t, m.Dicts(to, core.Map{"defines+": strs("A", "A")}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"defines": strs("A")}, to)

	to = core.Map{"defines": strs("A", "B")}
	require.NoError(t, m.Dicts(to, core.Map{"defines+": strs("B", "X", "B")}, "x.desc", "x.desc"))
	assert.Equal(t, strs("X", "A", "B"), to["defines"])
}

func TestMergeIncompatiblePolicies(t *testing.T) {
	for _, from := range []core.Map{
		{"defines": strs("A"), "defines=": strs("B")},
		{"defines=": strs("A"), "defines?": strs("B")},
		{"defines+": strs("A"), "defines?": strs("B")},
	} {
		err := m.Dicts(core.Map{}, from, "x.desc", "x.desc")
		var serr *core.SchemaError
		assert.True(t, errors.As(err, &serr), "%v", from)
	}
	// Append and prepend can coexist.
	to := core.Map{"defines": strs("A")}
	require.NoError(t, m.Dicts(to, core.Map{"defines": strs("C"), "defines+": strs("B")}, "x.desc", "x.desc"))
	assert.Equal(t, strs("B", "A", "C"), to["defines"])
}

func TestMergeTypeMismatch(t *testing.T) {
	err := m.Dicts(core.Map{"defines": core.String("A")}, core.Map{"defines": strs("B")}, "x.desc", "x.desc")
	var serr *core.SchemaError
	assert.True(t, errors.As(err, &serr))
	err = m.Dicts(core.Map{"a": core.Map{}}, core.Map{"a": strs("B")}, "x.desc", "x.desc")
	assert.Error(t, err)
	err = m.Dicts(core.Map{"a": core.String("x")}, core.Map{"a": core.Map{}}, "x.desc", "x.desc")
	assert.Error(t, err)
	err = m.Dicts(core.Map{"a": core.String("x")}, core.Map{"a+": strs("y")}, "x.desc", "x.desc")
	assert.Error(t, err)
}

func TestMergeScalarsInterchangeable(t *testing.T) {
	to := core.Map{"a": core.String("x")}
	require.NoError(t, m.Dicts(to, core.Map{"a": core.Int(3)}, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"a": core.Int(3)}, to)
}

func TestMergeRecursesAndCopies(t *testing.T) {
	to := core.Map{"settings": core.Map{"a": strs("1")}}
	from := core.Map{"settings": core.Map{"a": strs("2"), "b": core.Map{"c": strs("3")}}}
	require.NoError(t, m.Dicts(to, from, "x.desc", "x.desc"))
	assert.Equal(t, core.Map{"settings": core.Map{"a": strs("1", "2"), "b": core.Map{"c": strs("3")}}}, to)
	to["settings"].(core.Map)["b"].(core.Map)["c"] = strs("changed")
	assert.Equal(t, strs("3"), from["settings"].(core.Map)["b"].(core.Map)["c"])
}

func TestMergeRebasesPaths(t *testing.T) {
	to := core.Map{}
	require.NoError(t, m.Dicts(to, core.Map{"sources": strs("a.cc")}, "build.desc", "sub/build.desc"))
	assert.Equal(t, core.Map{"sources": strs("sub/a.cc")}, to)
}

func TestMergeRebasesNestedPaths(t *testing.T) {
	to := core.Map{}
	from := core.Map{
		"actions":    core.List{core.Map{"inputs": strs("gen.py"), "action_name": core.String("gen")}},
		"output_dir": core.String("out/"),
		"defines":    strs("a.cc"),
	}
	require.NoError(t, m.Dicts(to, from, "build.desc", "sub/build.desc"))
	assert.Equal(t, core.Map{
		"actions":    core.List{core.Map{"inputs": strs("sub/gen.py"), "action_name": core.String("gen")}},
		"output_dir": core.String("sub/out/"),
		"defines":    strs("a.cc"),
	}, to)
}

func TestMakePathRelative(t *testing.T) {
	assert.Equal(t, "a.cc", MakePathRelative("x.desc", "x.desc", "a.cc"))
	assert.Equal(t, "sub/a.cc", MakePathRelative("x.desc", "sub/y.desc", "a.cc"))
	assert.Equal(t, "../a.cc", MakePathRelative("sub/x.desc", "y.desc", "a.cc"))
	assert.Equal(t, "../other/a.cc", MakePathRelative("sub/x.desc", "other/y.desc", "a.cc"))
	assert.Equal(t, "sub/dir/", MakePathRelative("x.desc", "sub/y.desc", "dir/"))
	for _, unchanged := range []string{"/abs/a.cc", "$(SRCDIR)/a.cc", "-lfoo", "<(DEPTH)/a.cc", ">(x)", "^(y)", `"-quoted`, "'/abs"} {
		assert.Equal(t, unchanged, MakePathRelative("x.desc", "sub/y.desc", unchanged))
	}
}
