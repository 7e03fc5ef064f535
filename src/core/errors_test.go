package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContext(t *testing.T) {
	assert.NoError(t, AddContext(nil, "while loading %s", "a.desc"))
	err := AddContext(NewSchemaError("Undefined variable foo"), "while loading %s", "a.desc")
	err = AddContext(err, "while loading %s", "a.desc")
	err = AddContext(err, "while loading %s", "b.desc")
	var serr *SchemaError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Undefined variable foo", serr.Msg)
	assert.Equal(t, "Undefined variable foo\n  while loading a.desc\n  while loading b.desc", err.Error())
}

func TestCommandError(t *testing.T) {
	inner := fmt.Errorf("exit status 1")
	err := error(&CommandError{Command: "false", Dir: "src", Err: inner, Stderr: "oops\n"})
	assert.Equal(t, "Call to 'false' in src failed: exit status 1\noops", err.Error())
	assert.True(t, errors.Is(err, inner))
}

func TestDuplicateError(t *testing.T) {
	err := NewDuplicateError("Duplicate target %s", "a:b")
	var derr *DuplicateError
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, "Duplicate target a:b", err.Error())
}
