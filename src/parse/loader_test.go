package parse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/merge"
	"github.com/please-build/descgen/src/process"
)

// writeFiles writes a set of files into a new temporary directory, which it returns.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return dir
}

func newLoader(info core.InputInfo, opts Options) *Loader {
	return NewLoader(expand.NewEngine(merge.New(core.NewSchema(info)), process.Default()), opts)
}

var testFiles = map[string]string{
	"common.descinc": `{
		'variables': {'flag': 'x'},
		'target_defaults': {'defines': ['COMMON']},
	}`,
	"a.desc": `{
		'includes': ['common.descinc'],
		'targets': [{
			'target_name': 'a',
			'type': 'executable',
			'dependencies': ['sub/b.desc:b'],
			'defines': ['A_<(flag)'],
			'depth': '<(DEPTH)',
		}],
	}`,
	"sub/b.desc": `{
		'targets': [{
			'target_name': 'b',
			'type': 'static_library',
			'depth': '<(DEPTH)',
			'dependencies': ['c.desc:c'],
		}],
	}`,
	"sub/c.desc": `{
		'targets': [{'target_name': 'c', 'type': 'none'}],
	}`,
}

func TestLoad(t *testing.T) {
	dir := writeFiles(t, testFiles)
	l := newLoader(core.InputInfo{}, Options{Depth: dir})
	data, err := l.Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
	require.NoError(t, err)
	assert.Len(t, data, 4)

	a := data[filepath.Join(dir, "a.desc")]
	require.NotNil(t, a)
	assert.False(t, a.Has("includes"))
	assert.False(t, a.Has("target_defaults"))
	assert.Equal(t, core.NewStringList("a.desc", "common.descinc"), a["included_files"])
	assert.Equal(t, core.String(dir), a["_DEPTH"])
	target := a["targets"].(core.List)[0].(core.Map)
	assert.Equal(t, core.NewStringList("COMMON", "A_x"), target["defines"])
	assert.Equal(t, core.String("."), target["depth"])
	assert.Equal(t, core.String("target"), target["toolset"])

	b := data[filepath.Join(dir, "sub/b.desc")]
	require.NotNil(t, b)
	assert.Equal(t, core.String(".."), b["targets"].(core.List)[0].(core.Map)["depth"])
	assert.Equal(t, core.NewStringList("b.desc"), b["included_files"])

	// Included files are recorded as they were read.
	assert.Equal(t, core.Map{
		"variables":       core.Map{"flag": core.String("x")},
		"target_defaults": core.Map{"defines": core.NewStringList("COMMON")},
	}, data[filepath.Join(dir, "common.descinc")])
}

func TestLoadParallel(t *testing.T) {
	dir := writeFiles(t, testFiles)
	files := []string{filepath.Join(dir, "a.desc")}
	sequential, err := newLoader(core.InputInfo{}, Options{Depth: dir}).Load(context.Background(), files, expand.Variables{})
	require.NoError(t, err)
	parallel, err := newLoader(core.InputInfo{}, Options{Depth: dir, Parallel: true, NumWorkers: 4}).Load(context.Background(), files, expand.Variables{})
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)
}

func TestLoadWithoutDepth(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.desc": `{'targets': [{'target_name': 'a', 'type': 'none', 'depth': '<(DEPTH)'}]}`,
	})
	_, err := newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable DEPTH")
}

func TestLoadMissingDependencyFile(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		dir := writeFiles(t, map[string]string{
			"a.desc": `{'targets': [{'target_name': 'a', 'type': 'none', 'dependencies': ['missing.desc:x']}]}`,
		})
		_, err := newLoader(core.InputInfo{}, Options{Parallel: parallel, NumWorkers: 2}).Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing.desc not found")
		assert.Contains(t, err.Error(), "while loading dependencies of "+filepath.Join(dir, "a.desc"))
		var schemaErr *core.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	}
}

func TestLoadPreIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"pre.descinc": `{'variables': {'v': 'pre'}}`,
		"a.desc":      `{'targets': [{'target_name': 'a', 'type': 'none', 'value': '<(v)'}]}`,
	})
	l := newLoader(core.InputInfo{}, Options{Includes: []string{filepath.Join(dir, "pre.descinc")}})
	data, err := l.Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
	require.NoError(t, err)
	a := data[filepath.Join(dir, "a.desc")]
	assert.Equal(t, core.String("pre"), a["targets"].(core.List)[0].(core.Map)["value"])
	assert.Equal(t, core.NewStringList("a.desc", "pre.descinc"), a["included_files"])
}

func TestLoadSkipIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.desc": `{'skip_includes': 1, 'includes': ['nope.descinc'], 'targets': []}`,
	})
	data, err := newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
	require.NoError(t, err)
	assert.Equal(t, core.NewStringList("nope.descinc"), data[filepath.Join(dir, "a.desc")]["includes"])
}

func TestLoadNestedIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.desc": `{
			'targets': [{
				'target_name': 'a',
				'type': 'none',
				'includes': ['inc/settings.descinc'],
			}],
		}`,
		"inc/settings.descinc": `{'includes': ['more.descinc'], 'sources': ['x.cc']}`,
		"inc/more.descinc":     `{'include_dirs': ['.']}`,
	})
	data, err := newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
	require.NoError(t, err)
	a := data[filepath.Join(dir, "a.desc")]
	target := a["targets"].(core.List)[0].(core.Map)
	assert.Equal(t, core.NewStringList("inc/x.cc"), target["sources"])
	assert.Equal(t, core.NewStringList("inc"), target["include_dirs"])
	assert.Equal(t, core.NewStringList("a.desc", "inc/settings.descinc", "inc/more.descinc"), a["included_files"])
}

func TestLoadToolsets(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.desc": `{
			'targets': [
				{'target_name': 'a', 'type': 'none', 'toolsets': ['target', 'host']},
				{'target_name': 'b', 'type': 'none', 'toolset': 'host'},
			],
		}`,
	})
	path := filepath.Join(dir, "a.desc")
	data, err := newLoader(core.InputInfo{SupportsMultipleToolsets: true}, Options{}).Load(context.Background(), []string{path}, expand.Variables{})
	require.NoError(t, err)
	targets := data[path]["targets"].(core.List)
	require.Len(t, targets, 3)
	assert.Equal(t, core.String("host"), targets[0].(core.Map)["toolset"])
	assert.Equal(t, core.String("target"), targets[1].(core.Map)["toolset"])
	assert.False(t, targets[1].(core.Map).Has("toolsets"))
	assert.Equal(t, core.String("b"), targets[2].(core.Map)["target_name"])

	// Without multiple toolset support, everything is a target.
	data, err = newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{path}, expand.Variables{})
	require.NoError(t, err)
	assert.Len(t, data[path]["targets"].(core.List), 2)
}

func TestLoadErrors(t *testing.T) {
	for name, contents := range map[string]string{
		"included_files":   `{'included_files': [], 'targets': []}`,
		"no targets":       `{'target_defaults': {}}`,
		"duplicate key":    `{'targets': [], 'targets': []}`,
		"not a mapping":    `['a']`,
		"bad targets":      `{'targets': {}}`,
		"bad target":       `{'targets': ['a']}`,
		"bad dependencies": `{'targets': [{'target_name': 'a', 'dependencies': 'b'}]}`,
		"bad includes":     `{'includes': 'x.descinc'}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"a.desc": contents})
			_, err := newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{filepath.Join(dir, "a.desc")}, expand.Variables{})
			assert.Error(t, err)
		})
	}
}

func TestLoadTargetFileLeavesCacheUntouched(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.desc": `{'targets': [{'target_name': 'a', 'type': 'none', 'value': '<(v)'}]}`,
	})
	path := filepath.Join(dir, "a.desc")
	fl := newLoader(core.InputInfo{}, Options{Depth: dir}).newFileLoader()
	result, err := fl.LoadTargetFile(path, expand.Variables{"v": core.String("x")})
	require.NoError(t, err)
	assert.True(t, result.Data.Has("included_files"))
	assert.False(t, fl.data[path].Has("included_files"))
	target := fl.data[path]["targets"].(core.List)[0].(core.Map)
	assert.Equal(t, core.String("<(v)"), target["value"])
}

func TestLoadDirectoryIsNotAFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sub.desc/x": ""})
	_, err := newLoader(core.InputInfo{}, Options{}).Load(context.Background(), []string{filepath.Join(dir, "sub.desc")}, expand.Variables{})
	var schemaErr *core.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}
