package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/merge"
)

var r = New(merge.New(core.NewSchema(core.InputInfo{})))

const target = "a/a.desc:a#target"

func TestDefaultConfiguration(t *testing.T) {
	dict := core.Map{
		"target_name": core.String("a"),
		"type":        core.String("executable"),
		"defines":     core.NewStringList("A"),
	}
	require.NoError(t, r.SetUp(target, dict))
	assert.Equal(t, core.Map{
		"target_name":           core.String("a"),
		"type":                  core.String("executable"),
		"default_configuration": core.String("Default"),
		"configurations": core.Map{
			"Default": core.Map{"defines": core.NewStringList("A")},
		},
	}, dict)
}

func TestInheritance(t *testing.T) {
	dict := core.Map{
		"target_name": core.String("a"),
		"type":        core.String("executable"),
		"defines":     core.NewStringList("T"),
		"configurations": core.Map{
			"Common": core.Map{
				"abstract": core.Int(1),
				"defines":  core.NewStringList("COMMON"),
				"cflags":   core.NewStringList("-g"),
			},
			"Debug": core.Map{
				"inherit_from": core.NewStringList("Common"),
				"defines":      core.NewStringList("DEBUG"),
			},
			"Release": core.Map{
				"inherit_from": core.NewStringList("Common"),
				"defines":      core.NewStringList("NDEBUG"),
				"cflags=":      core.NewStringList("-O2"),
			},
		},
	}
	require.NoError(t, r.SetUp(target, dict))
	assert.Equal(t, core.String("Debug"), dict["default_configuration"])
	configs := dict["configurations"].(core.Map)
	assert.Equal(t, []string{"Debug", "Release"}, configs.Keys())
	assert.Equal(t, core.Map{
		"inherit_from": core.NewStringList("Common"),
		"defines":      core.NewStringList("T", "COMMON", "DEBUG"),
		"cflags":       core.NewStringList("-g"),
	}, configs["Debug"])
	assert.Equal(t, core.NewStringList("T", "COMMON", "NDEBUG"), configs["Release"].(core.Map)["defines"])
	assert.Equal(t, core.NewStringList("-O2"), configs["Release"].(core.Map)["cflags"])
	assert.False(t, dict.Has("defines"))
}

func TestDiamondInheritance(t *testing.T) {
	dict := core.Map{
		"configurations": core.Map{
			"Base":  core.Map{"abstract": core.Int(1), "defines": core.NewStringList("BASE")},
			"Left":  core.Map{"abstract": core.Int(1), "inherit_from": core.NewStringList("Base"), "defines": core.NewStringList("LEFT")},
			"Right": core.Map{"abstract": core.Int(1), "inherit_from": core.NewStringList("Base"), "defines": core.NewStringList("RIGHT")},
			"Final": core.Map{"inherit_from": core.NewStringList("Left", "Right")},
		},
	}
	require.NoError(t, r.SetUp(target, dict))
	// BASE is a singleton, so merging it again via Right doesn't duplicate it.
	assert.Equal(t, core.NewStringList("BASE", "LEFT", "RIGHT"), dict["configurations"].(core.Map)["Final"].(core.Map)["defines"])
}

func TestSelfInheritanceIsSkipped(t *testing.T) {
	dict := core.Map{
		"configurations": core.Map{
			"A": core.Map{"inherit_from": core.NewStringList("A"), "x": core.Int(1)},
		},
	}
	require.NoError(t, r.SetUp(target, dict))
	assert.Equal(t, core.Int(1), dict["configurations"].(core.Map)["A"].(core.Map)["x"])
}

func TestExplicitDefaultConfiguration(t *testing.T) {
	dict := core.Map{
		"default_configuration": core.String("Release"),
		"configurations": core.Map{
			"Debug":   core.Map{},
			"Release": core.Map{},
		},
	}
	require.NoError(t, r.SetUp(target, dict))
	assert.Equal(t, core.String("Release"), dict["default_configuration"])
}

func TestMissingParent(t *testing.T) {
	dict := core.Map{
		"configurations": core.Map{
			"Debug": core.Map{"inherit_from": core.NewStringList("Nope")},
		},
	}
	err := r.SetUp(target, dict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Configuration Debug inherits from Nope, which does not exist")
}

func TestOnlyAbstractConfigurations(t *testing.T) {
	dict := core.Map{
		"configurations": core.Map{
			"Common": core.Map{"abstract": core.Int(1)},
		},
	}
	assert.Error(t, r.SetUp(target, dict))
}

func TestInvalidConfigurationKey(t *testing.T) {
	dict := core.Map{
		"configurations": core.Map{
			"Debug": core.Map{"sources": core.NewStringList("a.cc")},
		},
	}
	err := r.SetUp(target, dict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources not allowed in the Debug configuration, found in target "+target)
}

func TestNonConfigurationKeysStay(t *testing.T) {
	dict := core.Map{
		"sources":   core.NewStringList("a.cc"),
		"sources!":  core.NewStringList("b.cc"),
		"cflags+":   core.NewStringList("-x"),
		"variables": core.Map{"v": core.Int(1)},
	}
	require.NoError(t, r.SetUp(target, dict))
	assert.True(t, dict.Has("sources"))
	assert.True(t, dict.Has("sources!"))
	assert.True(t, dict.Has("variables"))
	assert.False(t, dict.Has("cflags+"))
	assert.Equal(t, core.NewStringList("-x"), dict["configurations"].(core.Map)["Default"].(core.Map)["cflags+"])
}

func TestSetUpAll(t *testing.T) {
	targets := map[string]core.Map{
		"a.desc:a#target": {"defines": core.NewStringList("A")},
		"a.desc:b#target": {"configurations": core.String("nope")},
	}
	require.NoError(t, r.SetUpAll([]string{"a.desc:a#target"}, targets))
	err := r.SetUpAll([]string{"a.desc:a#target", "a.desc:b#target"}, targets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "while setting up configurations of a.desc:b#target")
}
