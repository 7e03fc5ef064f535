package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
)

func processDict(t *testing.T, dict core.Map, phase Phase, vars Variables) core.Map {
	t.Helper()
	require.NoError(t, newEngine().ProcessDict(dict, phase, vars, "test.desc"))
	return dict
}

func TestProcessDictAutomaticVariables(t *testing.T) {
	d := processDict(t, core.Map{
		"target_name": core.String("foo"),
		"product":     core.String("<(_target_name).bin"),
	}, Early, Variables{})
	assert.Equal(t, core.String("foo.bin"), d["product"])
}

func TestProcessDictVariables(t *testing.T) {
	d := processDict(t, core.Map{
		"variables": core.Map{
			"a": core.String("x"),
			"b": core.String("<(a)y"),
		},
		"value": core.String("<(b)"),
	}, Early, Variables{})
	assert.Equal(t, core.String("xy"), d["value"])
	assert.Equal(t, core.String("xy"), d["variables"].(core.Map)["b"])
}

func TestProcessDictDefaultVariables(t *testing.T) {
	dict := func() core.Map {
		return core.Map{
			"variables": core.Map{"a%": core.String("default")},
			"value":     core.String("<(a)"),
		}
	}
	assert.Equal(t, core.String("outer"), processDict(t, dict(), Early, Variables{"a": core.String("outer")})["value"])
	assert.Equal(t, core.String("default"), processDict(t, dict(), Early, Variables{})["value"])
}

func TestProcessDictNestedVariablesSection(t *testing.T) {
	d := processDict(t, core.Map{
		"variables": core.Map{
			"variables": core.Map{"mode%": core.String("fast")},
			"mode%":     core.String("<(mode)"),
			"flag":      core.String("--<(mode)"),
		},
		"value": core.String("<(flag)"),
	}, Early, Variables{})
	assert.Equal(t, core.String("--fast"), d["value"])
}

func TestProcessDictDoesNotModifyVariables(t *testing.T) {
	vars := Variables{"a": core.String("1")}
	processDict(t, core.Map{"variables": core.Map{"a": core.String("2")}}, Early, vars)
	assert.Equal(t, Variables{"a": core.String("1")}, vars)
}

func TestProcessDictConditions(t *testing.T) {
	dict := func() core.Map {
		return core.Map{
			"defines": core.NewStringList("BASE"),
			"conditions": core.List{
				core.List{
					core.String(`OS=="linux"`),
					core.Map{"defines": core.NewStringList("LINUX")},
					core.Map{"defines": core.NewStringList("OTHER")},
				},
			},
		}
	}
	d := processDict(t, dict(), Early, Variables{"OS": core.String("linux")})
	assert.Equal(t, core.Map{"defines": core.NewStringList("BASE", "LINUX")}, d)
	d = processDict(t, dict(), Early, Variables{"OS": core.String("mac")})
	assert.Equal(t, core.Map{"defines": core.NewStringList("BASE", "OTHER")}, d)
}

func TestProcessDictParsesConditionsOnce(t *testing.T) {
	e := newEngine()
	for _, os := range []string{"linux", "mac", "linux"} {
		dict := core.Map{
			"conditions": core.List{
				core.List{core.String(`OS=="linux"`), core.Map{"defines": core.NewStringList("LINUX")}},
			},
		}
		require.NoError(t, e.ProcessDict(dict, Early, Variables{"OS": core.String(os)}, "test.desc"))
	}
	assert.EqualValues(t, 1, e.Stats().ConditionsParsed)
	assert.EqualValues(t, 3, e.Stats().ConditionsChecked)
}

func TestProcessDictChainedConditions(t *testing.T) {
	dict := func() core.Map {
		return core.Map{
			"conditions": core.List{
				core.List{
					core.String(`OS=="win"`), core.Map{"a": core.Int(1)},
					core.String(`OS=="mac"`), core.Map{"a": core.Int(2)},
					core.Map{"a": core.Int(3)},
				},
			},
		}
	}
	for os, expected := range map[string]int{"win": 1, "mac": 2, "linux": 3} {
		d := processDict(t, dict(), Early, Variables{"OS": core.String(os)})
		assert.Equal(t, core.Int(expected), d["a"], os)
	}
}

func TestProcessDictConditionBlocksAreExpanded(t *testing.T) {
	d := processDict(t, core.Map{
		"target_name": core.String("foo"),
		"conditions": core.List{
			core.List{
				core.String(`_target_name=="foo"`),
				core.Map{
					"sources": core.NewStringList("<(_target_name).cc"),
					"conditions": core.List{
						core.List{core.String("1"), core.Map{"nested": core.Int(1)}},
					},
				},
			},
		},
	}, Early, Variables{})
	assert.Equal(t, core.NewStringList("foo.cc"), d["sources"])
	assert.Equal(t, core.Int(1), d["nested"])
}

func TestProcessDictConditionsUseExpandedValues(t *testing.T) {
	d := processDict(t, core.Map{
		"type": core.String("<(library)"),
		"conditions": core.List{
			core.List{core.String(`_type=="static_library"`), core.Map{"static": core.Int(1)}},
		},
	}, Early, Variables{"library": core.String("static_library")})
	assert.Equal(t, core.Int(1), d["static"])
}

func TestProcessDictTargetConditionsByPhase(t *testing.T) {
	dict := core.Map{
		"target_conditions": core.List{
			core.List{core.String(`_type=="executable"`), core.Map{"late": core.String(">(name)")}},
		},
		"type": core.String("executable"),
	}
	processDict(t, dict, Early, Variables{})
	assert.True(t, dict.Has("target_conditions"))
	processDict(t, dict, Late, Variables{"name": core.String("x")})
	assert.False(t, dict.Has("target_conditions"))
	assert.Equal(t, core.String("x"), dict["late"])
}

func TestProcessDictSplicesLists(t *testing.T) {
	d := processDict(t, core.Map{
		"sources": core.NewStringList("<@(srcs)", "c.cc"),
		"nested":  core.List{core.NewStringList("<@(srcs)")},
	}, Early, Variables{"srcs": core.NewStringList("a.cc", "b.cc")})
	assert.Equal(t, core.NewStringList("a.cc", "b.cc", "c.cc"), d["sources"])
	assert.Equal(t, core.List{core.NewStringList("a.cc", "b.cc")}, d["nested"])
}

func TestProcessDictStringCannotBecomeList(t *testing.T) {
	err := newEngine().ProcessDict(core.Map{
		"x": core.String("<@(srcs)"),
	}, Early, Variables{"srcs": core.NewStringList("a.cc")}, "test.desc")
	assert.Error(t, err)
}

func TestProcessDictChildrenSeeParentVariables(t *testing.T) {
	d := processDict(t, core.Map{
		"variables": core.Map{"v": core.String("1")},
		"targets": core.List{
			core.Map{"value": core.String("<(v)")},
		},
	}, Early, Variables{})
	assert.Equal(t, core.Int(1), d["targets"].(core.List)[0].(core.Map)["value"])
}

func TestProcessDictMalformedConditions(t *testing.T) {
	for _, conditions := range []core.Value{
		core.String("nope"),
		core.List{core.String("1")},
		core.List{core.List{core.String("1")}},
		core.List{core.List{core.String("1"), core.String("x")}},
		core.List{core.List{core.String("1"), core.Map{}, core.Map{}, core.Map{}}},
		core.List{core.List{core.String("1 +"), core.Map{}}},
	} {
		err := newEngine().ProcessDict(core.Map{"conditions": conditions}, Early, Variables{}, "test.desc")
		assert.Error(t, err)
	}
}

func TestProcessList(t *testing.T) {
	l, err := newEngine().ProcessList(core.List{
		core.String("<@(srcs)"),
		core.Int(3),
		core.String("<(n)"),
	}, Early, Variables{"srcs": core.NewStringList("a", "b"), "n": core.String("4")}, "test.desc")
	require.NoError(t, err)
	assert.Equal(t, core.List{core.String("a"), core.String("b"), core.Int(3), core.Int(4)}, l)
}
