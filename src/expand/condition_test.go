package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/descgen/src/core"
)

var conditionVars = Variables{
	"OS":     core.String("linux"),
	"arch":   core.String("x64"),
	"use_x":  core.Int(0),
	"n":      core.Int(3),
	"v":      core.String("ab"),
	"shared": core.NewStringList("a", "b"),
}

func evalTestCondition(t *testing.T, expr string) (bool, error) {
	t.Helper()
	c, err := parseCondition(expr)
	if err != nil {
		return false, err
	}
	v, err := c.eval(conditionVars)
	return truthy(v), err
}

func TestConditions(t *testing.T) {
	for _, test := range []struct {
		expr     string
		expected bool
	}{
		{`OS=="linux"`, true},
		{`OS!="linux"`, false},
		{`OS=="linux" and arch=="x64"`, true},
		{`OS=="mac" or arch=="x64"`, true},
		{`not use_x`, true},
		{`use_x`, false},
		{`(n < 5) and n <= 3`, true},
		{`n > 3 or n >= 4`, false},
		{`"0"`, true},
		{`""`, false},
		{`OS in ["mac", "linux"]`, true},
		{`OS not in ("mac", "win")`, true},
		{`OS in ("mac",)`, false},
		{`"lin" in OS`, true},
		{`"a" in shared and "c" not in shared`, true},
		{`1 < n < 5`, true},
		{`1 < n < 2`, false},
		{`v == 'a' 'b'`, true},
		{`True and not False`, true},
		{`n == "3"`, false},
		{`0 and undefined`, false},
		{`1 or undefined`, true},
		{`not (OS == "linux" and use_x)`, true},
		{`n>-1`, true},
		{`n==-3`, false},
		{`-3 in [-3, 4]`, true},
	} {
		t.Run(test.expr, func(t *testing.T) {
			b, err := evalTestCondition(t, test.expr)
			require.NoError(t, err)
			assert.Equal(t, test.expected, b)
		})
	}
}

func TestConditionUndefinedVariable(t *testing.T) {
	_, err := evalTestCondition(t, `arc == "x64"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name 'arc' is not defined")
	assert.Contains(t, err.Error(), "Maybe you meant arch ?")
}

func TestConditionSyntaxErrors(t *testing.T) {
	for _, expr := range []string{
		`OS ==`,
		`OS ==== 1`,
		`foo(1)`,
		`OS == "linux`,
		`OS == linux)`,
		`a.b == 1`,
		`[1, 2`,
		`and`,
		`n > -`,
		`n - 1`,
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := parseCondition(expr)
			assert.Error(t, err)
		})
	}
}

func TestConditionUnorderable(t *testing.T) {
	_, err := evalTestCondition(t, `n < "a"`)
	assert.Error(t, err)
}

func TestConditionInRequiresIterable(t *testing.T) {
	_, err := evalTestCondition(t, `1 in n`)
	assert.Error(t, err)
}
