package ast

import (
	"strings"
)

// ValueKind tells how a literal was written.
type ValueKind int

const (
	Number ValueKind = iota
	SingleQuotedString
	DoubleQuotedString
	EscapedString  // E'...'
	NationalString // N'...'
	HexString      // X'...'
	BitString      // B'...'
	DollarQuotedString
	Boolean
	Null
	Placeholder // $1, ?, @name, :name
)

// Value is a literal.
// Val holds the unescaped text of strings
// and the source text of numbers, booleans and placeholders.
type Value struct {
	Kind ValueKind
	Val  string

	// Tag is the tag of a dollar-quoted string ($tag$...$tag$).
	Tag string

	// Backslash is set when backslash is an escape character
	// in the dialect the literal belongs to.
	Backslash bool
}

// NumberValue returns a numeric literal.
func NumberValue(text string) *Value {
	return &Value{Kind: Number, Val: text}
}

// StringValue returns a single-quoted string literal.
func StringValue(s string, backslash bool) *Value {
	return &Value{Kind: SingleQuotedString, Val: s, Backslash: backslash}
}

func (v *Value) String() string {
	switch v.Kind {
	case Number, Placeholder:
		return v.Val
	case SingleQuotedString:
		return quoteString(v.Val, '\'', v.Backslash, v.Backslash)
	case DoubleQuotedString:
		return quoteString(v.Val, '"', v.Backslash, v.Backslash)
	case EscapedString:
		return "E" + quoteString(v.Val, '\'', true, false)
	case NationalString:
		return "N" + quoteString(v.Val, '\'', v.Backslash, v.Backslash)
	case HexString:
		return "X'" + v.Val + "'"
	case BitString:
		return "B'" + v.Val + "'"
	case DollarQuotedString:
		return "$" + v.Tag + "$" + v.Val + "$" + v.Tag + "$"
	case Boolean:
		return strings.ToUpper(v.Val)
	case Null:
		return "NULL"
	}
	return v.Val
}

// quoteString quotes s for a string literal.
// With backslash set, backslash is an escape character in the output.
// With likeEscapes also set, the pairs \% and \_ are kept as written,
// since MySQL reads them as two characters.
func quoteString(s string, quote rune, backslash, likeEscapes bool) string {
	rs := []rune(s)
	var b strings.Builder
	b.WriteRune(quote)
	for i, c := range rs {
		switch {
		case c == quote && backslash:
			b.WriteRune('\\')
			b.WriteRune(c)
		case c == quote:
			b.WriteRune(c)
			b.WriteRune(c)
		case !backslash:
			b.WriteRune(c)
		case c == '\\' && likeEscapes && i+1 < len(rs) && (rs[i+1] == '%' || rs[i+1] == '_'):
			b.WriteRune(c)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteRune(quote)
	return b.String()
}
