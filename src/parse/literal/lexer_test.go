package literal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertNextToken(t *testing.T, l *lex, tokenType rune, value string, line, column, offset int) {
	t.Helper()
	tok := l.Next()
	assert.EqualValues(t, tokenType, tok.Type, "incorrect type")
	assert.Equal(t, value, tok.Value, "incorrect value")
	assert.Equal(t, line, tok.Pos.Line, "incorrect line")
	assert.Equal(t, column, tok.Pos.Column, "incorrect column")
	assert.Equal(t, offset, tok.Pos.Offset, "incorrect offset")
}

func TestLexBasic(t *testing.T) {
	l := newLexer("test.desc", []byte("{'a': 1}"))
	assertNextToken(t, l, '{', "{", 1, 1, 1)
	assertNextToken(t, l, String, "a", 1, 2, 2)
	assertNextToken(t, l, ':', ":", 1, 5, 5)
	assertNextToken(t, l, Int, "1", 1, 7, 7)
	assertNextToken(t, l, '}', "}", 1, 8, 8)
	assertNextToken(t, l, EOF, "", 1, 9, 9)
}

func TestLexMultiline(t *testing.T) {
	l := newLexer("test.desc", []byte("[\n  'x',\n]"))
	assertNextToken(t, l, '[', "[", 1, 1, 1)
	assertNextToken(t, l, String, "x", 2, 3, 5)
	assertNextToken(t, l, ',', ",", 2, 6, 8)
	assertNextToken(t, l, ']', "]", 3, 1, 10)
	assertNextToken(t, l, EOF, "", 3, 2, 11)
}

func TestLexComments(t *testing.T) {
	l := newLexer("test.desc", []byte("# leading comment\n'a' # trailing\n"))
	assertNextToken(t, l, String, "a", 2, 1, 19)
	assertNextToken(t, l, EOF, "", 3, 1, 34)
}

func TestLexImplicitConcatenation(t *testing.T) {
	l := newLexer("test.desc", []byte(`"a" 'b'
	  """c"""`))
	assertNextToken(t, l, String, "abc", 1, 1, 1)
	assertNextToken(t, l, EOF, "", 2, 11, 19)
}

func TestLexTripleQuotedString(t *testing.T) {
	l := newLexer("test.desc", []byte("'''it's\nmultiline'''"))
	assert.Equal(t, "it's\nmultiline", l.Next().Value)
	assert.EqualValues(t, EOF, l.Next().Type)
}

func TestLexEscapes(t *testing.T) {
	l := newLexer("test.desc", []byte(`"\t\x41é\\\"\q"`))
	assert.Equal(t, "\tAé\\\"\\q", l.Next().Value)
}

func TestLexOctalEscapes(t *testing.T) {
	l := newLexer("test.desc", []byte(`'\101\0\12'`))
	assert.Equal(t, "A\x00\n", l.Next().Value)
}

func TestLexRawString(t *testing.T) {
	l := newLexer("test.desc", []byte(`r'\n\'' 'x'`))
	assert.Equal(t, `\n\'x`, l.Next().Value)
}

func TestLexIntegers(t *testing.T) {
	l := newLexer("test.desc", []byte("0 -12 +3 0x10"))
	assertNextToken(t, l, Int, "0", 1, 1, 1)
	assertNextToken(t, l, Int, "-12", 1, 3, 3)
	assertNextToken(t, l, Int, "3", 1, 7, 7)
	assertNextToken(t, l, Int, "16", 1, 10, 10)
}

func TestLexUnterminatedString(t *testing.T) {
	assert.Panics(t, func() { newLexer("test.desc", []byte("'abc\n'")) })
	assert.Panics(t, func() { newLexer("test.desc", []byte(`"""abc`)) })
}

func TestLexUnexpectedCharacter(t *testing.T) {
	assert.Panics(t, func() { newLexer("test.desc", []byte("@")) })
}
