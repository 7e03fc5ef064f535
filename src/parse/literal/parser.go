// Package literal implements a parser for description files.
//
// Description files consist of a single literal value: strings, integers, lists, tuples and
// mappings with string keys. There are no expressions, calls or names of any kind; a tuple is
// read as a list. Duplicate keys in a mapping are rejected at any depth.
package literal

import (
	"strconv"
	"strings"

	"github.com/please-build/descgen/src/core"
)

// Parse parses the contents of a description file. The top level must be a mapping.
func Parse(filename string, data []byte) (m core.Map, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = handleErrors(r)
		}
	}()
	p := &parser{l: newLexer(filename, data)}
	tok := p.l.Peek()
	v := p.parseValue(nil)
	p.next(EOF)
	m, ok := v.(core.Map)
	if !ok {
		fail(tok.Pos, "%s does not evaluate to a mapping", filename)
	}
	return m, nil
}

// ParseValue parses a single literal value of any type.
func ParseValue(text string) (v core.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = handleErrors(r)
		}
	}()
	p := &parser{l: newLexer("<literal>", []byte(text))}
	v = p.parseValue(nil)
	p.next(EOF)
	return v, nil
}

type parser struct {
	l *lex
}

// next consumes the next token and fails if it's not of the given type.
func (p *parser) next(expected rune) Token {
	tok := p.l.Next()
	if tok.Type != expected {
		fail(tok.Pos, "unexpected %s, expected %s", tok, reverseSymbol(expected))
	}
	return tok
}

// optional consumes the next token if it's of the given type, and returns true if it did.
func (p *parser) optional(t rune) bool {
	if p.l.Peek().Type == t {
		p.l.Next()
		return true
	}
	return false
}

// parseValue parses a single value. path is the chain of keys and list indices leading to it,
// which is used to describe where duplicate keys are.
func (p *parser) parseValue(path []string) core.Value {
	tok := p.l.Next()
	switch tok.Type {
	case String:
		return core.String(tok.Value)
	case Int:
		i, err := strconv.Atoi(tok.Value)
		if err != nil {
			fail(tok.Pos, "Invalid integer literal %s", tok.Value)
		}
		return core.Int(i)
	case '[':
		return p.parseList(path, ']', core.List{})
	case '(':
		return p.parseTuple(path)
	case '{':
		return p.parseMap(path)
	case Ident:
		fail(tok.Pos, "Unexpected name %s; only literal values are allowed", tok.Value)
	}
	fail(tok.Pos, "unexpected %s", tok)
	return nil
}

// parseList parses the items of a list, after its opening bracket, appending them to l.
func (p *parser) parseList(path []string, closer rune, l core.List) core.List {
	for !p.optional(closer) {
		l = append(l, p.parseValue(append(path, strconv.Itoa(len(l)))))
		if !p.optional(',') {
			p.next(closer)
			break
		}
	}
	return l
}

// parseTuple parses either a tuple or a parenthesised value, after the opening paren.
func (p *parser) parseTuple(path []string) core.Value {
	if p.optional(')') {
		return core.List{}
	}
	v := p.parseValue(append(path, "0"))
	if p.optional(')') {
		return v // Just grouping, not a tuple.
	}
	p.next(',')
	return p.parseList(path, ')', core.List{v})
}

// parseMap parses the items of a mapping, after its opening brace.
func (p *parser) parseMap(path []string) core.Map {
	m := core.Map{}
	for !p.optional('}') {
		tok := p.l.Next()
		if tok.Type != String {
			fail(tok.Pos, "Mapping keys must be strings, not %s", tok)
		}
		p.next(':')
		if m.Has(tok.Value) {
			fail(tok.Pos, "Key '%s' repeated at level %d with key path '%s'", tok.Value, len(path)+1, strings.Join(path, "."))
		}
		m[tok.Value] = p.parseValue(append(path, tok.Value))
		if !p.optional(',') {
			p.next('}')
			break
		}
	}
	return m
}
