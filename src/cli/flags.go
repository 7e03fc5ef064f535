// Package cli contains helper functions related to flag parsing and logging.
package cli

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
	cli "github.com/peterebden/go-cli-init/v5/flags"
	"github.com/peterebden/go-deferred-regex"
	"github.com/thought-machine/go-flags"
)

// ParseFlagsOrDie parses the app's flags and dies if unsuccessful.
// Also dies if any unexpected arguments are passed.
// It returns the active command if there is one.
func ParseFlagsOrDie(appname string, data interface{}) string {
	return cli.ParseFlagsOrDie(appname, data, nil)
}

// defineRegex matches a name=value definition. The value is optional.
var defineRegex = deferredregex.DeferredRegex{Re: `^([A-Za-z_][A-Za-z0-9_.%-]*)(?:=(.*))?$`}

// A Define is a flag of the form name=value, defining a variable.
// A bare name is defined as 1.
type Define struct {
	Name, Value string
	// HasValue is false if the definition was a bare name.
	HasValue bool
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (d *Define) UnmarshalFlag(in string) error {
	match := defineRegex.FindStringSubmatch(in)
	if match == nil {
		return flagsError(fmt.Errorf("invalid definition %q, must be in the form name=value", in))
	}
	d.Name = match[1]
	d.Value = match[2]
	d.HasValue = strings.ContainsRune(in, '=')
	return nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (d *Define) UnmarshalText(text []byte) error {
	return d.UnmarshalFlag(string(text))
}

func (d Define) String() string {
	if !d.HasValue {
		return d.Name
	}
	return d.Name + "=" + d.Value
}

// ParseDefines parses a shell-quoted string of name=value definitions, as might be found
// in an environment variable.
func ParseDefines(s string) ([]Define, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return nil, err
	}
	ret := make([]Define, len(words))
	for i, word := range words {
		if err := ret[i].UnmarshalFlag(word); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// flagsError converts an error to a flags.Error, which is required for flag parsing.
func flagsError(err error) error {
	if err == nil {
		return err
	}
	return &flags.Error{Type: flags.ErrMarshal, Message: err.Error()}
}

// A Filepath is a flag naming a file or directory.
type Filepath string

// Filepaths is a convenience type for a slice of Filepath.
type Filepaths []Filepath

// AsStrings returns this slice of filepaths as a slice of strings.
func (f Filepaths) AsStrings() []string {
	ret := make([]string, len(f))
	for i, s := range f {
		ret[i] = string(s)
	}
	return ret
}
