package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bobg/rowfilter/ast"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokString
	tokPlaceholder
	tokPunct
)

// token is one lexical unit.
// For words, text is the identifier or keyword as written (unescaped when quoted).
// For strings, text is the unescaped value.
type token struct {
	kind  tokenKind
	text  string
	quote rune          // quote character of a quoted word
	str   ast.ValueKind // kind of a string
	tag   string        // dollar-quote tag

	start, end int // byte offsets into the source
	line, col  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokWord:
		return ast.Ident{Value: t.text, Quote: t.quote}.String()
	case tokString:
		return t.value(false).String()
	}
	return t.text
}

// value converts a string, number or placeholder token to a literal.
func (t token) value(backslash bool) *ast.Value {
	switch t.kind {
	case tokNumber:
		return ast.NumberValue(t.text)
	case tokPlaceholder:
		return &ast.Value{Kind: ast.Placeholder, Val: t.text}
	}
	v := &ast.Value{Kind: t.str, Val: t.text, Tag: t.tag}
	switch t.str {
	case ast.SingleQuotedString, ast.DoubleQuotedString, ast.NationalString:
		v.Backslash = backslash
	}
	return v
}

// multi-character operators, longest first
var operators = []string{
	"->>", "#>>", "<=>", "!~*",
	"::", "->", "#>", "@>", "<@", "@@", "||", "&&", "<=", ">=", "<>", "!=", "!~", "~*", "<<", ">>", "=>",
}

type tokenizer struct {
	d    ast.Dialect
	src  string
	pos  int
	line int
	col  int
}

func tokenize(src string, d ast.Dialect) ([]token, error) {
	t := &tokenizer{d: d, src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (t *tokenizer) errorf(line, col int, format string, args ...any) error {
	return &TokenizeError{Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
}

func (t *tokenizer) peekByte(offset int) byte {
	if t.pos+offset < len(t.src) {
		return t.src[t.pos+offset]
	}
	return 0
}

func (t *tokenizer) advance(n int) {
	for i := 0; i < n && t.pos < len(t.src); i++ {
		if t.src[t.pos] == '\n' {
			t.line++
			t.col = 1
		} else if t.src[t.pos]&0xC0 != 0x80 {
			t.col++
		}
		t.pos++
	}
}

func (t *tokenizer) next() (token, error) {
	if err := t.skipSpace(); err != nil {
		return token{}, err
	}
	tok := token{start: t.pos, line: t.line, col: t.col}
	finish := func(kind tokenKind, text string) (token, error) {
		tok.kind = kind
		tok.text = text
		tok.end = t.pos
		return tok, nil
	}

	if t.pos >= len(t.src) {
		return finish(tokEOF, "")
	}

	c := t.src[t.pos]
	switch {
	case c == '\'':
		s, err := t.quoted('\'', t.d.BackslashEscapes())
		if err != nil {
			return token{}, err
		}
		tok.str = ast.SingleQuotedString
		return finish(tokString, s)

	case c == '"':
		if t.d == ast.MySQL || t.d == ast.BigQuery {
			s, err := t.quoted('"', true)
			if err != nil {
				return token{}, err
			}
			tok.str = ast.DoubleQuotedString
			return finish(tokString, s)
		}
		s, err := t.quoted('"', false)
		if err != nil {
			return token{}, err
		}
		tok.quote = '"'
		return finish(tokWord, s)

	case c == '`':
		if t.d == ast.Postgres {
			return token{}, t.errorf(t.line, t.col, "unexpected character %q", c)
		}
		s, err := t.quoted('`', false)
		if err != nil {
			return token{}, err
		}
		tok.quote = '`'
		return finish(tokWord, s)

	case isDigit(c) || (c == '.' && isDigit(t.peekByte(1))):
		return finish(tokNumber, t.number())

	case c == '$':
		return t.dollar(tok)

	case c == '?' && t.d != ast.Postgres:
		t.advance(1)
		return finish(tokPlaceholder, "?")

	case c == '@' && (t.d == ast.MySQL || t.d == ast.BigQuery) && (isIdentStart(t.peekByte(1)) || t.peekByte(1) == '@'):
		start := t.pos
		t.advance(1)
		if t.peekByte(0) == '@' {
			t.advance(1)
		}
		for t.pos < len(t.src) && (isIdentPart(t.src[t.pos]) || t.src[t.pos] == '.') {
			t.advance(1)
		}
		return finish(tokPlaceholder, t.src[start:t.pos])

	case c == ':' && t.d == ast.Generic && isIdentStart(t.peekByte(1)):
		start := t.pos
		t.advance(1)
		for t.pos < len(t.src) && isIdentPart(t.src[t.pos]) {
			t.advance(1)
		}
		return finish(tokPlaceholder, t.src[start:t.pos])

	case isIdentStart(c) || c >= utf8.RuneSelf:
		return t.word(tok)
	}

	for _, op := range operators {
		if strings.HasPrefix(t.src[t.pos:], op) {
			t.advance(len(op))
			return finish(tokPunct, op)
		}
	}
	if strings.IndexByte("+-*/%=<>(),.;[]~|&^#!@:", c) >= 0 {
		t.advance(1)
		return finish(tokPunct, string(c))
	}
	return token{}, t.errorf(t.line, t.col, "unexpected character %q", c)
}

func (t *tokenizer) skipSpace() error {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			t.advance(1)

		case c == '-' && t.peekByte(1) == '-',
			c == '#' && (t.d == ast.MySQL || t.d == ast.BigQuery):
			for t.pos < len(t.src) && t.src[t.pos] != '\n' {
				t.advance(1)
			}

		case c == '/' && t.peekByte(1) == '*':
			line, col := t.line, t.col
			t.advance(2)
			depth := 1
			for depth > 0 {
				switch {
				case t.pos >= len(t.src):
					return t.errorf(line, col, "unterminated comment")
				case t.src[t.pos] == '*' && t.peekByte(1) == '/':
					depth--
					t.advance(2)
				case t.src[t.pos] == '/' && t.peekByte(1) == '*' && t.d == ast.Postgres:
					depth++
					t.advance(2)
				default:
					t.advance(1)
				}
			}

		default:
			return nil
		}
	}
	return nil
}

// quoted reads a literal delimited by quote, starting at the opening quote.
// A doubled quote stands for one.
// With backslash set, backslash escapes the next character.
func (t *tokenizer) quoted(quote byte, backslash bool) (string, error) {
	line, col := t.line, t.col
	t.advance(1)
	var b strings.Builder
	for {
		if t.pos >= len(t.src) {
			if quote == '\'' || (quote == '"' && backslash) {
				return "", t.errorf(line, col, "unterminated string literal")
			}
			return "", t.errorf(line, col, "unterminated quoted identifier")
		}
		c := t.src[t.pos]
		switch {
		case c == quote && t.peekByte(1) == quote:
			b.WriteByte(quote)
			t.advance(2)

		case c == quote:
			t.advance(1)
			return b.String(), nil

		case c == '\\' && backslash && t.pos+1 < len(t.src):
			t.advance(1)
			b.WriteString(t.unescape())

		default:
			b.WriteByte(c)
			t.advance(1)
		}
	}
}

// unescape decodes the character after a backslash.
func (t *tokenizer) unescape() string {
	c := t.src[t.pos]
	t.advance(1)
	switch c {
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case '0':
		if t.d == ast.MySQL {
			return "\x00"
		}
	case 'Z':
		if t.d == ast.MySQL {
			return "\x1a"
		}
	case '%', '_':
		if t.d == ast.MySQL {
			return t.src[t.pos-2 : t.pos]
		}
	}
	return t.src[t.pos-1 : t.pos]
}

func (t *tokenizer) number() string {
	start := t.pos
	if t.peekByte(0) == '0' && (t.peekByte(1) == 'x' || t.peekByte(1) == 'X') && isHexDigit(t.peekByte(2)) {
		t.advance(2)
		for isHexDigit(t.peekByte(0)) {
			t.advance(1)
		}
		return t.src[start:t.pos]
	}
	for isDigit(t.peekByte(0)) {
		t.advance(1)
	}
	if t.peekByte(0) == '.' {
		t.advance(1)
		for isDigit(t.peekByte(0)) {
			t.advance(1)
		}
	}
	if e := t.peekByte(0); e == 'e' || e == 'E' {
		n := 1
		if s := t.peekByte(1); s == '+' || s == '-' {
			n++
		}
		if isDigit(t.peekByte(n)) {
			t.advance(n)
			for isDigit(t.peekByte(0)) {
				t.advance(1)
			}
		}
	}
	return t.src[start:t.pos]
}

// dollar reads $1 placeholders and Postgres $tag$...$tag$ strings.
func (t *tokenizer) dollar(tok token) (token, error) {
	start := t.pos
	if isDigit(t.peekByte(1)) && (t.d == ast.Postgres || t.d == ast.Generic) {
		t.advance(1)
		for isDigit(t.peekByte(0)) {
			t.advance(1)
		}
		tok.kind = tokPlaceholder
		tok.text = t.src[start:t.pos]
		tok.end = t.pos
		return tok, nil
	}
	if t.d != ast.Postgres {
		return token{}, t.errorf(t.line, t.col, "unexpected character '$'")
	}

	i := t.pos + 1
	for i < len(t.src) && isIdentPart(t.src[i]) && t.src[i] != '$' {
		i++
	}
	if i >= len(t.src) || t.src[i] != '$' || (i > t.pos+1 && isDigit(t.src[t.pos+1])) {
		return token{}, t.errorf(t.line, t.col, "unexpected character '$'")
	}
	tag := t.src[t.pos+1 : i]
	delim := t.src[t.pos : i+1]
	line, col := t.line, t.col
	t.advance(len(delim))
	end := strings.Index(t.src[t.pos:], delim)
	if end < 0 {
		return token{}, t.errorf(line, col, "unterminated dollar-quoted string")
	}
	body := t.src[t.pos : t.pos+end]
	t.advance(end + len(delim))

	tok.kind = tokString
	tok.str = ast.DollarQuotedString
	tok.text = body
	tok.tag = tag
	tok.end = t.pos
	return tok, nil
}

// word reads a keyword or identifier,
// or a prefixed string such as E'...', N'...', X'...' or B'...'.
func (t *tokenizer) word(tok token) (token, error) {
	if t.peekByte(1) == '\'' {
		var kind ast.ValueKind
		prefixed := true
		switch t.src[t.pos] {
		case 'e', 'E':
			kind = ast.EscapedString
			prefixed = t.d == ast.Postgres || t.d == ast.Generic
		case 'n', 'N':
			kind = ast.NationalString
		case 'x', 'X':
			kind = ast.HexString
		case 'b', 'B':
			kind = ast.BitString
		default:
			prefixed = false
		}
		if prefixed {
			t.advance(1)
			var (
				s   string
				err error
			)
			switch kind {
			case ast.EscapedString:
				s, err = t.quoted('\'', true)
			case ast.NationalString:
				s, err = t.quoted('\'', t.d.BackslashEscapes())
			default:
				s, err = t.quoted('\'', false)
			}
			if err != nil {
				return token{}, err
			}
			tok.kind = tokString
			tok.str = kind
			tok.text = s
			tok.end = t.pos
			return tok, nil
		}
	}

	start := t.pos
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if isIdentPart(c) {
			t.advance(1)
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(t.src[t.pos:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				t.advance(size)
				continue
			}
		}
		break
	}
	if t.pos == start {
		return token{}, t.errorf(t.line, t.col, "unexpected character %q", t.src[t.pos])
	}
	tok.kind = tokWord
	tok.text = t.src[start:t.pos]
	tok.end = t.pos
	return tok, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}
