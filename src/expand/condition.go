package expand

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/utils"
)

// A condition is a parsed condition expression.
//
// The grammar is:
//
//	or_expr    := and_expr ("or" and_expr)*
//	and_expr   := not_expr ("and" not_expr)*
//	not_expr   := "not" not_expr | comparison
//	comparison := atom (op atom)*
//	op         := "==" | "!=" | "<" | "<=" | ">" | ">=" | "in" | "not" "in"
//	atom       := string+ | int | name | "(" or_expr ")" | "(" [items] ")" | "[" [items] "]"
//
// Comparisons chain, so a < b < c means a < b and b < c.
type condition interface {
	eval(vars Variables) (core.Value, error)
}

type literalCondition struct {
	value core.Value
}

type variableCondition struct {
	name string
}

type listCondition struct {
	items []condition
}

type notCondition struct {
	operand condition
}

type boolCondition struct {
	and         bool
	left, right condition
}

type comparisonCondition struct {
	operands []condition
	ops      []string
}

var (
	trueValue  = core.Int(1)
	falseValue = core.Int(0)
)

func boolValue(b bool) core.Value {
	if b {
		return trueValue
	}
	return falseValue
}

// truthy returns the truth of a value in a condition; unlike core.Truthy, "0" is true.
func truthy(v core.Value) bool {
	switch v := v.(type) {
	case core.String:
		return v != ""
	case core.Int:
		return v != 0
	case core.List:
		return len(v) > 0
	case core.Map:
		return len(v) > 0
	}
	return false
}

func (c *literalCondition) eval(vars Variables) (core.Value, error) {
	return c.value, nil
}

func (c *variableCondition) eval(vars Variables) (core.Value, error) {
	if v, present := vars[c.name]; present {
		return v, nil
	}
	return nil, core.NewSchemaError("name '%s' is not defined%s", c.name, utils.PrettyPrintSuggestion(c.name, vars.Names(), utils.MaxSuggestionDistance))
}

func (c *listCondition) eval(vars Variables) (core.Value, error) {
	l := make(core.List, len(c.items))
	for i, item := range c.items {
		v, err := item.eval(vars)
		if err != nil {
			return nil, err
		}
		l[i] = v
	}
	return l, nil
}

func (c *notCondition) eval(vars Variables) (core.Value, error) {
	v, err := c.operand.eval(vars)
	if err != nil {
		return nil, err
	}
	return boolValue(!truthy(v)), nil
}

func (c *boolCondition) eval(vars Variables) (core.Value, error) {
	left, err := c.left.eval(vars)
	if err != nil {
		return nil, err
	} else if truthy(left) != c.and {
		return left, nil // Short-circuit: false for and, true for or.
	}
	return c.right.eval(vars)
}

func (c *comparisonCondition) eval(vars Variables) (core.Value, error) {
	left, err := c.operands[0].eval(vars)
	if err != nil {
		return nil, err
	}
	for i, op := range c.ops {
		right, err := c.operands[i+1].eval(vars)
		if err != nil {
			return nil, err
		}
		b, err := compare(op, left, right)
		if err != nil {
			return nil, err
		} else if !b {
			return falseValue, nil
		}
		left = right
	}
	return trueValue, nil
}

// compare applies a single comparison operator.
func compare(op string, left, right core.Value) (bool, error) {
	switch op {
	case "==":
		return core.Equal(left, right), nil
	case "!=":
		return !core.Equal(left, right), nil
	case "in":
		return contains(left, right)
	case "not in":
		b, err := contains(left, right)
		return !b, err
	}
	cmp, err := order(left, right)
	if err != nil {
		return false, core.NewSchemaError("'%s' not supported between %s and %s", op, core.TypeName(left), core.TypeName(right))
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	}
	return cmp >= 0, nil
}

// contains implements the in operator, over lists or substrings.
func contains(needle, haystack core.Value) (bool, error) {
	switch haystack := haystack.(type) {
	case core.List:
		for _, item := range haystack {
			if core.Equal(needle, item) {
				return true, nil
			}
		}
		return false, nil
	case core.String:
		if s, ok := needle.(core.String); ok {
			return strings.Contains(string(haystack), string(s)), nil
		}
		return false, core.NewSchemaError("'in <string>' requires string as left operand, not %s", core.TypeName(needle))
	case core.Map:
		if s, ok := needle.(core.String); ok {
			return haystack.Has(string(s)), nil
		}
		return false, nil
	}
	return false, core.NewSchemaError("argument of type %s is not iterable", core.TypeName(haystack))
}

// order compares two values of the same orderable type.
func order(left, right core.Value) (int, error) {
	switch l := left.(type) {
	case core.String:
		if r, ok := right.(core.String); ok {
			return strings.Compare(string(l), string(r)), nil
		}
	case core.Int:
		if r, ok := right.(core.Int); ok {
			if l < r {
				return -1, nil
			} else if l > r {
				return 1, nil
			}
			return 0, nil
		}
	case core.List:
		if r, ok := right.(core.List); ok {
			for i := 0; i < len(l) && i < len(r); i++ {
				if core.Equal(l[i], r[i]) {
					continue
				}
				return order(l[i], r[i])
			}
			return len(l) - len(r), nil
		}
	}
	return 0, fmt.Errorf("unorderable")
}

func (e *Engine) countCondition() {
	atomic.AddInt64(&e.stats.ConditionsChecked, 1)
}

// Condition token types.
const (
	condEOF = iota
	condString
	condInt
	condName
	condOp
)

type condToken struct {
	Type  int
	Value string
	Pos   int
}

// condParser is a recursive-descent parser for conditions.
type condParser struct {
	tokens []condToken
	i      int
	expr   string
}

// parseCondition parses a condition expression.
func parseCondition(expr string) (condition, error) {
	tokens, err := tokenizeCondition(expr)
	if err != nil {
		return nil, err
	}
	p := &condParser{tokens: tokens, expr: expr}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	} else if tok := p.peek(); tok.Type != condEOF {
		return nil, p.errorf(tok, "unexpected %s", tok.Value)
	}
	return c, nil
}

func (p *condParser) peek() condToken {
	return p.tokens[p.i]
}

func (p *condParser) next() condToken {
	tok := p.tokens[p.i]
	if tok.Type != condEOF {
		p.i++
	}
	return tok
}

func (p *condParser) isKeyword(tok condToken, kw string) bool {
	return tok.Type == condName && tok.Value == kw
}

func (p *condParser) isOp(tok condToken, op string) bool {
	return tok.Type == condOp && tok.Value == op
}

func (p *condParser) errorf(tok condToken, format string, args ...interface{}) error {
	return core.NewSchemaError("invalid syntax in condition '%s' at column %d: %s", p.expr, tok.Pos+1, fmt.Sprintf(format, args...))
}

func (p *condParser) parseOr() (condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolCondition{left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.peek(), "and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &boolCondition{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseNot() (condition, error) {
	if p.isKeyword(p.peek(), "not") {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notCondition{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *condParser) parseComparison() (condition, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	c := &comparisonCondition{operands: []condition{first}}
	for {
		tok := p.peek()
		var op string
		if tok.Type == condOp && (tok.Value == "==" || tok.Value == "!=" || tok.Value == "<" || tok.Value == "<=" || tok.Value == ">" || tok.Value == ">=") {
			op = tok.Value
		} else if p.isKeyword(tok, "in") {
			op = "in"
		} else if p.isKeyword(tok, "not") && p.isKeyword(p.tokens[p.i+1], "in") {
			p.next()
			op = "not in"
		} else {
			break
		}
		p.next()
		operand, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		c.ops = append(c.ops, op)
		c.operands = append(c.operands, operand)
	}
	if len(c.ops) == 0 {
		return first, nil
	}
	return c, nil
}

func (p *condParser) parseAtom() (condition, error) {
	tok := p.next()
	switch tok.Type {
	case condString:
		s := tok.Value
		for p.peek().Type == condString {
			s += p.next().Value
		}
		return &literalCondition{value: core.String(s)}, nil
	case condInt:
		i, err := strconv.Atoi(tok.Value)
		if err != nil {
			return nil, p.errorf(tok, "invalid integer %s", tok.Value)
		}
		return &literalCondition{value: core.Int(i)}, nil
	case condName:
		switch tok.Value {
		case "True":
			return &literalCondition{value: trueValue}, nil
		case "False":
			return &literalCondition{value: falseValue}, nil
		case "and", "or", "not", "in":
			return nil, p.errorf(tok, "unexpected %s", tok.Value)
		}
		return &variableCondition{name: tok.Value}, nil
	case condOp:
		if tok.Value == "(" {
			return p.parseParens()
		} else if tok.Value == "[" {
			items, err := p.parseItems("]")
			if err != nil {
				return nil, err
			}
			return &listCondition{items: items}, nil
		}
		return nil, p.errorf(tok, "unexpected %s", tok.Value)
	}
	return nil, p.errorf(tok, "unexpected end of expression")
}

// parseParens parses either a parenthesised expression or a tuple, after the opening paren.
func (p *condParser) parseParens() (condition, error) {
	if p.isOp(p.peek(), ")") {
		p.next()
		return &listCondition{}, nil
	}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.next(); p.isOp(tok, ")") {
		return c, nil
	} else if !p.isOp(tok, ",") {
		return nil, p.errorf(tok, "expected ) or ,")
	}
	items, err := p.parseItems(")")
	if err != nil {
		return nil, err
	}
	return &listCondition{items: append([]condition{c}, items...)}, nil
}

// parseItems parses a comma-separated sequence of expressions up to the given closing bracket.
func (p *condParser) parseItems(closer string) ([]condition, error) {
	var items []condition
	for !p.isOp(p.peek(), closer) {
		item, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if tok := p.peek(); p.isOp(tok, ",") {
			p.next()
		} else if !p.isOp(tok, closer) {
			return nil, p.errorf(tok, "expected , or %s", closer)
		}
	}
	p.next()
	return items, nil
}

// tokenizeCondition splits a condition expression into tokens.
func tokenizeCondition(expr string) ([]condToken, error) {
	var tokens []condToken
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"' || c == '\'':
			s, n, err := unquote(expr[i:])
			if err != nil {
				return nil, core.NewSchemaError("invalid syntax in condition '%s' at column %d: %s", expr, i+1, err)
			}
			tokens = append(tokens, condToken{Type: condString, Value: s, Pos: i})
			i += n
		case c >= '0' && c <= '9', c == '-' && i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9':
			j := i + 1
			for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
				j++
			}
			tokens = append(tokens, condToken{Type: condInt, Value: expr[i:j], Pos: i})
			i = j
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			j := i
			for j < len(expr) && isNameChar(expr[j]) {
				j++
			}
			tokens = append(tokens, condToken{Type: condName, Value: expr[i:j], Pos: i})
			i = j
		case strings.HasPrefix(expr[i:], "==") || strings.HasPrefix(expr[i:], "!=") || strings.HasPrefix(expr[i:], "<=") || strings.HasPrefix(expr[i:], ">="):
			tokens = append(tokens, condToken{Type: condOp, Value: expr[i : i+2], Pos: i})
			i += 2
		case strings.IndexByte("<>()[],", c) != -1:
			tokens = append(tokens, condToken{Type: condOp, Value: expr[i : i+1], Pos: i})
			i++
		default:
			return nil, core.NewSchemaError("invalid syntax in condition '%s' at column %d: unexpected character '%c'", expr, i+1, c)
		}
	}
	return append(tokens, condToken{Type: condEOF, Value: "end of expression", Pos: len(expr)}), nil
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// unquote reads a quoted string from the start of s, returning its value and the number of bytes consumed.
func unquote(s string) (string, int, error) {
	quote := s[0]
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case quote:
			return sb.String(), i + 1, nil
		case '\\':
			i++
			if i >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '\'', '"':
				sb.WriteByte(s[i])
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
