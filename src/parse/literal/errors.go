package literal

import (
	"fmt"

	"github.com/please-build/descgen/src/core"
)

// fail panics on lex/parse errors in a file. The panic is recovered in Parse and turned into a
// core.SchemaError carrying the position.
func fail(pos Position, message string, args ...interface{}) {
	panic(core.NewSchemaError("%s:%d:%d: %s", pos.Filename, pos.Line, pos.Column, fmt.Sprintf(message, args...)))
}

// handleErrors converts a recovered panic into an error. Anything that isn't one of ours is re-panicked.
func handleErrors(r interface{}) error {
	if err, ok := r.(*core.SchemaError); ok {
		return err
	}
	panic(r)
}
