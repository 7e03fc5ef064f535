package expand

import (
	"bytes"
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"

	"github.com/please-build/descgen/src/cmap"
	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/fs"
	"github.com/please-build/descgen/src/merge"
	"github.com/please-build/descgen/src/parse/literal"
	"github.com/please-build/descgen/src/utils"
)

// BuiltinPrefix is the command string that introduces a call to a builtin function, as in <!builtin(name args).
const BuiltinPrefix = "builtin"

// maxDepth bounds how many times a string can be re-expanded, which catches self-referential variables.
const maxDepth = 100

// brackets maps closing brackets to their opening counterpart.
var brackets = map[byte]byte{')': '(', ']': '[', '}': '{'}

// A macro is a single macro reference found within a string.
type macro struct {
	start, end    int // Offsets of the whole reference within its input
	command       bool
	list          bool
	fileList      bool
	commandString string
	contents      string
}

// Expand expands all macros of the given phase within a string.
// The result is a core.String, a core.Int if the result is the canonical form of an integer,
// or a core.List if the input consisted entirely of a list expansion.
func (e *Engine) Expand(input string, phase Phase, vars Variables, buildFile string) (core.Value, error) {
	return e.expand(input, phase, vars, buildFile, 0, false)
}

func (e *Engine) expand(input string, phase Phase, vars Variables, buildFile string, depth int, inlineLists bool) (core.Value, error) {
	if core.IsCanonicalInt(input) {
		return core.ToInt(input), nil
	} else if strings.IndexByte(input, phase.Symbol()) == -1 {
		return core.String(input), nil
	} else if depth > maxDepth {
		return nil, core.NewSchemaError("Too many levels of expansion for '%s' in %s", input, buildFile)
	}
	macros, err := findMacros(input, phase.Symbol())
	if err != nil {
		return nil, core.NewSchemaError("%s in '%s' in %s", err, input, buildFile)
	} else if len(macros) == 0 {
		return core.String(input), nil
	}
	// Replacements happen right to left so the offsets of earlier macros remain valid.
	output := input
	var list core.List
	for i := len(macros) - 1; i >= 0; i-- {
		m := macros[i]
		replacement, err := e.evaluate(m, phase, vars, buildFile, depth)
		if err != nil {
			return nil, err
		}
		if m.list && m.start == 0 && m.end == len(input) {
			if l, ok := replacement.(core.List); ok {
				list = l
			} else {
				words, err := shlex.Split(render(replacement))
				if err != nil {
					return nil, core.NewSchemaError("Failed to split '%s' into a list in %s: %s", render(replacement), buildFile, err)
				}
				list = core.NewStringList(words...)
			}
			return e.reexpandList(list, phase, vars, buildFile, depth+1)
		} else if m.list && !inlineLists {
			return nil, core.NewSchemaError("List expansion %s must make up the whole of '%s' in %s", input[m.start:m.end], input, buildFile)
		}
		output = output[:m.start] + render(replacement) + output[m.end:]
	}
	if output == input {
		// Only identity replacements were found, so looking again would never terminate.
		return core.String(output), nil
	}
	return e.expand(output, phase, vars, buildFile, depth+1, inlineLists)
}

// reexpandList re-expands each item of a list resulting from a list expansion.
func (e *Engine) reexpandList(list core.List, phase Phase, vars Variables, buildFile string, depth int) (core.Value, error) {
	if len(list) > 0 {
		if _, ok := list[0].(core.List); ok {
			return list, nil // Lists of lists are left alone.
		}
	}
	ret := make(core.List, 0, len(list))
	for _, item := range list {
		s, ok := item.(core.String)
		if !ok {
			ret = append(ret, item)
			continue
		}
		v, err := e.expand(string(s), phase, vars, buildFile, depth, false)
		if err != nil {
			return nil, err
		} else if l, ok := v.(core.List); ok {
			ret = append(ret, l...)
		} else {
			ret = append(ret, v)
		}
	}
	return ret, nil
}

// evaluate produces the replacement value for a single macro.
func (e *Engine) evaluate(m macro, phase Phase, vars Variables, buildFile string, depth int) (core.Value, error) {
	contentVars := vars
	if m.fileList {
		// Filters on the variables are applied here since nothing else would ever run them.
		contentVars = Variables(core.Map(vars).Copy())
		if err := merge.ProcessListFilters(m.contents, core.Map(contentVars)); err != nil {
			return nil, err
		}
	}
	contents, err := e.expand(m.contents, phase, contentVars, buildFile, depth+1, m.fileList)
	if err != nil {
		return nil, err
	} else if m.fileList {
		return e.writeFileList(contents, buildFile)
	} else if m.command {
		return e.runCommand(m.commandString, strings.TrimSpace(render(contents)), buildFile)
	}
	return e.lookup(strings.TrimSpace(render(contents)), phase, vars, buildFile, depth)
}

// lookup returns the value of a variable for substitution.
func (e *Engine) lookup(name string, phase Phase, vars Variables, buildFile string, depth int) (core.Value, error) {
	v, present := vars[name]
	if !present {
		if strings.HasSuffix(name, "!") || strings.HasSuffix(name, "/") {
			return core.List{}, nil
		}
		return nil, core.NewSchemaError("Undefined variable %s in %s%s", name, buildFile, utils.PrettyPrintSuggestion(name, vars.Names(), utils.MaxSuggestionDistance))
	}
	switch v := v.(type) {
	case core.String, core.Int:
		return v, nil
	case core.List:
		if !strings.HasSuffix(name, "/") {
			for _, item := range v {
				if !core.IsScalar(item) {
					return nil, core.NewSchemaError("Variable %s must expand to a string or list of strings; list contains a %s", name, core.TypeName(item))
				}
			}
		}
		return e.processList(v.Copy(), phase, vars, buildFile, depth+1)
	}
	return nil, core.NewSchemaError("Variable %s must expand to a string or list of strings; found a %s", name, core.TypeName(v))
}

// writeFileList writes out the items of a file list expansion and returns the name of the file.
func (e *Engine) writeFileList(contents core.Value, buildFile string) (core.Value, error) {
	var items []string
	if l, ok := contents.(core.List); ok {
		items = l.Strings()
	} else {
		items = strings.Split(strings.TrimSpace(render(contents)), " ")
	}
	if len(items) == 0 || items[0] == "" {
		return nil, core.NewSchemaError("File list expansion in %s has no filename", buildFile)
	}
	filename := items[0]
	if filepath.IsAbs(filename) {
		return nil, core.NewSchemaError("| cannot handle absolute paths, got \"%s\" in %s", filename, buildFile)
	}
	var buf bytes.Buffer
	for _, item := range items[1:] {
		buf.WriteString(item)
		buf.WriteByte('\n')
	}
	path := filepath.Join(fs.Dir(buildFile), filename)
	if err := fs.EnsureDir(path); err != nil {
		return nil, err
	}
	written, err := fs.WriteFileIfChanged(path, buf.Bytes(), 0644)
	if err != nil {
		return nil, err
	} else if written {
		log.Debug("Wrote file list %s", path)
		atomic.AddInt64(&e.stats.FileListsWritten, 1)
		atomic.AddInt64(&e.stats.FileListBytes, int64(buf.Len()))
	}
	return core.String(filename), nil
}

// runCommand runs a command (or builtin) and returns its output, consulting the cache first.
func (e *Engine) runCommand(commandString, contents, buildFile string) (core.Value, error) {
	if commandString != "" && commandString != BuiltinPrefix {
		return nil, core.NewSchemaError("Unknown command string '%s' in '%s' in %s", commandString, contents, buildFile)
	}
	dir := fs.Dir(buildFile)
	key := cmap.JoinKey(commandString, dir, contents)
	hit := true
	out, err := e.commands.GetOrCompute(key, func() (string, error) {
		hit = false
		if commandString == BuiltinPrefix {
			return e.callBuiltin(contents, dir)
		}
		return e.execute(contents, dir)
	})
	if err != nil {
		return nil, err
	} else if hit {
		log.Debug("Had cached value for command '%s' in directory '%s'", contents, displayDir(dir))
		atomic.AddInt64(&e.stats.CommandCacheHits, 1)
	}
	return core.String(out), nil
}

// execute runs a command, either through the shell or directly if it is written as a list.
func (e *Engine) execute(command, dir string) (string, error) {
	log.Debug("Executing command '%s' in directory '%s'", command, displayDir(dir))
	atomic.AddInt64(&e.stats.CommandsRun, 1)
	var stdout, stderr []byte
	var err error
	if strings.HasPrefix(command, "[") {
		argv, perr := parseCommandList(command)
		if perr != nil {
			return "", perr
		}
		stdout, stderr, err = e.executor.Exec(dir, argv)
	} else {
		stdout, stderr, err = e.executor.ExecShell(dir, command)
	}
	if err == nil && len(stderr) > 0 {
		err = errors.New("command wrote to stderr")
	}
	if err != nil {
		return "", &core.CommandError{Command: command, Dir: displayDir(dir), Stderr: string(stderr), Err: err}
	}
	return strings.TrimRightFunc(string(stdout), unicode.IsSpace), nil
}

// callBuiltin invokes a registered builtin function.
func (e *Engine) callBuiltin(contents, dir string) (string, error) {
	args, err := shlex.Split(contents)
	if err != nil {
		return "", core.NewSchemaError("Invalid arguments to builtin '%s': %s", contents, err)
	} else if len(args) == 0 {
		return "", core.NewSchemaError("No builtin named in <!%s()", BuiltinPrefix)
	}
	f, present := e.builtins[args[0]]
	if !present {
		names := make([]string, 0, len(e.builtins))
		for name := range e.builtins {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", core.NewSchemaError("Unknown builtin '%s'%s", args[0], utils.PrettyPrintSuggestion(args[0], names, utils.MaxSuggestionDistance))
	}
	log.Debug("Calling builtin %s with %s in directory '%s'", args[0], args[1:], displayDir(dir))
	out, err := f(args[1:], dir)
	if err != nil {
		return "", &core.CommandError{Command: contents, Dir: displayDir(dir), Err: err}
	}
	return strings.TrimRightFunc(out, unicode.IsSpace), nil
}

// parseCommandList parses a command written as a list literal into its arguments.
func parseCommandList(command string) ([]string, error) {
	v, err := literal.ParseValue(command)
	if err != nil {
		return nil, err
	}
	l, ok := v.(core.List)
	if !ok || len(l) == 0 {
		return nil, core.NewSchemaError("Command %s must be a non-empty list", command)
	}
	for _, item := range l {
		if !core.IsScalar(item) {
			return nil, core.NewSchemaError("Command %s must only contain strings", command)
		}
	}
	return l.Strings(), nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// render converts a value to a string for substitution into string context.
// Lists are quoted such that a shell would split them back into the same items.
func render(v core.Value) string {
	switch v := v.(type) {
	case core.String:
		return string(v)
	case core.Int:
		return strconv.Itoa(int(v))
	case core.List:
		return shellescape.QuoteCommand(v.Strings())
	}
	return ""
}

// findMacros finds all the top-level macro references in a string.
// Macros nested within another macro's contents are not returned; they're found when its contents are expanded.
func findMacros(input string, symbol byte) ([]macro, error) {
	var macros []macro
	for i := 0; i < len(input); {
		idx := strings.IndexByte(input[i:], symbol)
		if idx == -1 {
			break
		}
		m := macro{start: i + idx}
		j := m.start + 1
		if j < len(input) && input[j] == '|' {
			m.fileList = true
			j++
		} else {
			if j < len(input) && input[j] == '!' {
				m.command = true
				j++
			}
			if j < len(input) && input[j] == '@' {
				m.list = true
				j++
			}
		}
		k := j
		for j < len(input) && isCommandStringChar(input[j]) {
			j++
		}
		m.commandString = input[k:j]
		if j >= len(input) || input[j] != '(' || (m.commandString != "" && !m.command) {
			i = m.start + 1
			continue
		}
		end := matchBrackets(input, j)
		if end == -1 {
			return nil, errors.New("Unbalanced brackets")
		}
		m.end = end
		m.contents = input[j+1 : end-1]
		macros = append(macros, m)
		i = end
	}
	return macros, nil
}

// matchBrackets returns the offset just past the bracket that closes the one at start, or -1 if there isn't one.
func matchBrackets(s string, start int) int {
	stack := make([]byte, 0, 4)
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != brackets[c] {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func isCommandStringChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' || c == '.'
}
