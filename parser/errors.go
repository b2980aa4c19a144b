package parser

import (
	"fmt"

	"github.com/pkg/errors"
)

// TokenizeError records a failure to split the input into tokens,
// such as an unterminated string or an unexpected character.
type TokenizeError struct {
	Msg  string
	Line int
	Col  int
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("tokenize error at line %d col %d: %s", e.Line, e.Col, e.Msg)
}

// ParseError records a grammar failure.
type ParseError struct {
	Msg  string
	Line int
	Col  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d col %d: %s", e.Line, e.Col, e.Msg)
}

// ErrRecursionLimitExceeded is returned when the input nests
// queries, expressions or relations deeper than the parser's limit.
var ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
