package literal

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Token types.
const (
	EOF = -(iota + 1)
	Ident
	Int
	String
)

// A Token describes each individual lexical element emitted by the lexer.
type Token struct {
	// Type of token. If > 0 this is the literal character value; if < 0 it is one of the types above.
	Type rune
	// The literal text of the token. For strings this is the unquoted, unescaped value.
	Value string
	// The position in the input that the token occurred at.
	Pos Position
}

// String implements the fmt.Stringer interface
func (tok Token) String() string {
	switch tok.Type {
	case String:
		return strconv.Quote(tok.Value)
	case Int, Ident:
		return tok.Value
	}
	return reverseSymbol(tok.Type)
}

// A Position describes a position in a source file.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// reverseSymbol looks up a symbol's name from the lexer.
func reverseSymbol(sym rune) string {
	switch sym {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case Int:
		return "integer"
	case String:
		return "string"
	}
	return string(sym) // literal character
}

// A lex is a lexer for a single description file.
type lex struct {
	b    []byte
	i    int
	line int
	col  int
	// The next token. We always look one token ahead in order to facilitate both Peek() and Next().
	next     Token
	filename string
}

// newLexer creates a new lex instance.
func newLexer(filename string, b []byte) *lex {
	l := &lex{
		b:        append(b, 0, 0, 0), // Null-terminating the buffer makes things easier later.
		filename: filename,
	}
	l.Next() // Initial value is zero, this forces it to populate itself.
	return l
}

// Peek at the next token
func (l *lex) Peek() Token {
	return l.next
}

// Next consumes and returns the next token.
func (l *lex) Next() Token {
	ret := l.next
	l.next = l.nextToken()
	return ret
}

func (l *lex) advance() {
	if l.b[l.i] == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	l.i++
}

// skipSpace skips whitespace and comments.
func (l *lex) skipSpace() {
	for {
		switch l.b[l.i] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			l.advance()
		case '\\':
			// Explicit line continuation.
			if l.b[l.i+1] != '\n' {
				return
			}
			l.advance()
			l.advance()
		case '#':
			for l.b[l.i] != '\n' && l.b[l.i] != 0 {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lex) pos() Position {
	return Position{
		Filename: l.filename,
		// These are all 1-indexed for niceness.
		Offset: l.i + 1,
		Line:   l.line + 1,
		Column: l.col + 1,
	}
}

// nextToken consumes and returns the next token.
func (l *lex) nextToken() Token {
	l.skipSpace()
	pos := l.pos()
	b := l.b[l.i]
	if (b == 'r' || b == 'R') && (l.b[l.i+1] == '"' || l.b[l.i+1] == '\'') {
		l.advance()
		return l.consumeStrings(pos, true)
	} else if (b == 'u' || b == 'U') && (l.b[l.i+1] == '"' || l.b[l.i+1] == '\'') {
		l.advance()
		return l.consumeStrings(pos, false)
	} else if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= utf8.RuneSelf {
		return l.consumeIdent(pos)
	}
	switch b {
	case 0:
		if l.i < len(l.b)-3 {
			fail(pos, "Unexpected null byte")
		}
		// End of file (we null terminate it above so this is easy to spot)
		return Token{Type: EOF, Pos: pos}
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return l.consumeInteger(pos)
	case '-', '+':
		if c := l.b[l.i+1]; c >= '0' && c <= '9' {
			return l.consumeInteger(pos)
		}
	case '"', '\'':
		return l.consumeStrings(pos, false)
	case '(', ')', '[', ']', '{', '}', ',', ':':
		l.advance()
		return Token{Type: rune(b), Value: string(b), Pos: pos}
	}
	fail(pos, "Unexpected character '%c'", b)
	panic("unreachable")
}

// consumeInteger consumes all characters until the end of an integer literal is reached.
func (l *lex) consumeInteger(pos Position) Token {
	start := l.i
	if l.b[l.i] == '-' || l.b[l.i] == '+' {
		l.advance()
	}
	if l.b[l.i] == '0' && (l.b[l.i+1] == 'x' || l.b[l.i+1] == 'X') {
		l.advance()
		l.advance()
	}
	for c := l.b[l.i]; isIdentChar(c); c = l.b[l.i] {
		l.advance()
	}
	s := string(l.b[start:l.i])
	i, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 0, 64)
	if err != nil {
		fail(pos, "Invalid integer literal %s", s)
	}
	return Token{Type: Int, Value: strconv.FormatInt(i, 10), Pos: pos}
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// consumeIdent consumes all characters of an identifier.
// Identifiers are never valid values, but lexing them gives a nicer error message.
func (l *lex) consumeIdent(pos Position) Token {
	start := l.i
	for c := l.b[l.i]; isIdentChar(c) || c >= utf8.RuneSelf; c = l.b[l.i] {
		l.advance()
	}
	return Token{Type: Ident, Value: string(l.b[start:l.i]), Pos: pos}
}

// consumeStrings consumes a string literal, plus any immediately following ones, which are
// implicitly concatenated.
func (l *lex) consumeStrings(pos Position, raw bool) Token {
	var sb strings.Builder
	l.consumeString(&sb, pos, raw)
	for {
		// Peek ahead for another string literal; whitespace and comments may separate them.
		i, line, col := l.i, l.line, l.col
		l.skipSpace()
		b := l.b[l.i]
		if b == '"' || b == '\'' {
			l.consumeString(&sb, l.pos(), false)
		} else if (b == 'r' || b == 'R') && (l.b[l.i+1] == '"' || l.b[l.i+1] == '\'') {
			l.advance()
			l.consumeString(&sb, l.pos(), true)
		} else {
			l.i, l.line, l.col = i, line, col
			return Token{Type: String, Value: sb.String(), Pos: pos}
		}
	}
}

// consumeString consumes a single, possibly triple-quoted, string literal.
func (l *lex) consumeString(sb *strings.Builder, pos Position, raw bool) {
	quote := l.b[l.i]
	l.advance()
	multiline := false
	if l.b[l.i] == quote && l.b[l.i+1] == quote {
		multiline = true
		l.advance()
		l.advance()
	}
	for {
		c := l.b[l.i]
		switch {
		case c == 0:
			fail(pos, "Unterminated string literal")
		case c == '\n' && !multiline:
			fail(pos, "Unterminated string literal")
		case c == quote && !multiline:
			l.advance()
			return
		case c == quote && l.b[l.i+1] == quote && l.b[l.i+2] == quote:
			l.advance()
			l.advance()
			l.advance()
			return
		case c == '\\' && raw:
			// Raw strings keep the backslash, but it still stops the next character ending the string.
			sb.WriteByte(c)
			l.advance()
			if l.b[l.i] != 0 {
				sb.WriteByte(l.b[l.i])
				l.advance()
			}
		case c == '\\':
			l.advance()
			l.consumeEscape(sb, pos)
		default:
			sb.WriteByte(c)
			l.advance()
		}
	}
}

// consumeEscape handles a single escape sequence, after the backslash.
func (l *lex) consumeEscape(sb *strings.Builder, pos Position) {
	c := l.b[l.i]
	l.advance()
	switch c {
	case '\n':
		// Line continuation, contributes nothing.
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'x':
		sb.WriteRune(l.consumeHex(pos, 2))
	case 'u':
		sb.WriteRune(l.consumeHex(pos, 4))
	case 'U':
		sb.WriteRune(l.consumeHex(pos, 8))
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && l.b[l.i] >= '0' && l.b[l.i] <= '7'; i++ {
			n = n*8 + int(l.b[l.i]-'0')
			l.advance()
		}
		if n > 0o377 {
			fail(pos, "Octal escape \\%o out of range", n)
		}
		sb.WriteByte(byte(n))
	case 0:
		fail(pos, "Unterminated string literal")
	default:
		// Unknown escapes are left as they are.
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
}

func (l *lex) consumeHex(pos Position, n int) rune {
	start := l.i
	for i := 0; i < n; i++ {
		if l.b[l.i] == 0 {
			fail(pos, "Unterminated escape sequence")
		}
		l.advance()
	}
	r, err := strconv.ParseUint(string(l.b[start:l.i]), 16, 32)
	if err != nil {
		fail(pos, "Invalid escape sequence \\%c%s", l.b[start-1], l.b[start:l.i])
	} else if r > utf8.MaxRune {
		fail(pos, "Escape sequence \\%c%s out of range", l.b[start-1], l.b[start:l.i])
	}
	return rune(r)
}
