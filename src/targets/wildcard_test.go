package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
)

func TestExpandWildcardDependencies(t *testing.T) {
	x := target("x", "static_library")
	x["suppress_wildcard"] = core.Int(1)
	hostY := target("y", "static_library")
	hostY["toolset"] = core.String("host")
	data := map[string]core.Map{
		"f1.desc": targetFile(target("a", "executable", "f2.desc:*", "f1.desc:b#target")),
		"f2.desc": targetFile(x, target("y", "static_library"), hostY, target("z", "none")),
	}
	targets, err := BuildTargetMap(data)
	require.NoError(t, err)
	require.NoError(t, ExpandWildcardDependencies(targets, data))
	assert.Equal(t, core.NewStringList("f2.desc:y#target", "f2.desc:y#host", "f2.desc:z#target", "f1.desc:b#target"), targets["f1.desc:a#target"]["dependencies"])
}

func TestExpandWildcardToolset(t *testing.T) {
	hostY := target("y", "static_library")
	hostY["toolset"] = core.String("host")
	data := map[string]core.Map{
		"f1.desc": targetFile(target("a", "executable", "f2.desc:y#*")),
		"f2.desc": targetFile(target("y", "static_library"), hostY, target("z", "none")),
	}
	targets, err := BuildTargetMap(data)
	require.NoError(t, err)
	require.NoError(t, ExpandWildcardDependencies(targets, data))
	assert.Equal(t, core.NewStringList("f2.desc:y#target", "f2.desc:y#host"), targets["f1.desc:a#target"]["dependencies"])
}

func TestExpandWildcardSameFile(t *testing.T) {
	data := map[string]core.Map{
		"f1.desc": targetFile(target("a", "executable", "f1.desc:*"), target("b", "none")),
	}
	targets, err := BuildTargetMap(data)
	require.NoError(t, err)
	err = ExpandWildcardDependencies(targets, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referring to same build file")
}

func TestExpandWildcardUnloadedFile(t *testing.T) {
	data := map[string]core.Map{
		"f1.desc": targetFile(target("a", "executable", "f3.desc:*")),
	}
	targets, err := BuildTargetMap(data)
	require.NoError(t, err)
	assert.Error(t, ExpandWildcardDependencies(targets, data))
}
