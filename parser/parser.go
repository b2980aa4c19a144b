// Package parser turns SQL text into ast trees.
//
// It is a hand-written tokenizer and recursive-descent parser covering the
// query and data-modifying subset of Postgres, MySQL, BigQuery and a generic
// dialect that the row filter needs to see. Statements outside that subset
// parse to *ast.Other, which carries the statement's source text.
package parser

import (
	"fmt"
	"strings"

	"github.com/bobg/rowfilter/ast"
)

// DefaultMaxDepth is the nesting limit used when New is given no MaxDepth option.
const DefaultMaxDepth = 50

// Parser parses SQL text in one dialect.
// A Parser holds no per-call state and may be used concurrently.
type Parser struct {
	dialect  ast.Dialect
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// MaxDepth limits how deeply queries, expressions and relations may nest.
// Deeper input fails with ErrRecursionLimitExceeded.
func MaxDepth(n int) Option {
	return func(p *Parser) {
		p.maxDepth = n
	}
}

// New produces a Parser for dialect d.
func New(d ast.Dialect, opts ...Option) *Parser {
	p := &Parser{dialect: d, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dialect is the dialect p parses.
func (p *Parser) Dialect() ast.Dialect { return p.dialect }

// Parse parses sql, which may hold several semicolon-separated statements,
// with a default Parser for dialect d.
func Parse(sql string, d ast.Dialect) ([]ast.Statement, error) {
	return New(d).Parse(sql)
}

// Parse parses sql, which may hold several semicolon-separated statements.
// Empty statements are skipped.
// The error, if any, is a *TokenizeError, a *ParseError or ErrRecursionLimitExceeded.
func (p *Parser) Parse(sql string) ([]ast.Statement, error) {
	toks, err := tokenize(sql, p.dialect)
	if err != nil {
		return nil, err
	}
	s := &state{d: p.dialect, src: sql, toks: toks, maxDepth: p.maxDepth}

	var stmts []ast.Statement
	for {
		for s.consumePunct(";") {
		}
		if s.peek().kind == tokEOF {
			return stmts, nil
		}
		stmt, err := s.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !s.isPunct(";") && s.peek().kind != tokEOF {
			return nil, s.unexpected("end of statement")
		}
	}
}

// state is the cursor over one input's tokens.
type state struct {
	d        ast.Dialect
	src      string
	toks     []token
	pos      int
	depth    int
	maxDepth int
}

func (s *state) peek() token { return s.peekN(0) }

func (s *state) peekN(n int) token {
	if s.pos+n < len(s.toks) {
		return s.toks[s.pos+n]
	}
	return s.toks[len(s.toks)-1] // EOF
}

func (s *state) next() token {
	tok := s.peek()
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return tok
}

// enter counts one level of nesting; every successful enter is paired with leave.
func (s *state) enter() error {
	if s.depth >= s.maxDepth {
		return ErrRecursionLimitExceeded
	}
	s.depth++
	return nil
}

func (s *state) leave() { s.depth-- }

func (s *state) errorf(format string, args ...any) error {
	tok := s.peek()
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: tok.line, Col: tok.col}
}

func (s *state) unexpected(want string) error {
	return s.errorf("expected %s, found %s", want, s.peek())
}

func isKeyword(tok token, kw string) bool {
	return tok.kind == tokWord && tok.quote == 0 && strings.EqualFold(tok.text, kw)
}

func (s *state) isKeyword(kw string) bool { return isKeyword(s.peek(), kw) }

func (s *state) isKeywordN(n int, kw string) bool { return isKeyword(s.peekN(n), kw) }

// parseKeyword consumes kw if it is next.
func (s *state) parseKeyword(kw string) bool {
	if s.isKeyword(kw) {
		s.next()
		return true
	}
	return false
}

// parseKeywords consumes the sequence kws if it is next, and nothing otherwise.
func (s *state) parseKeywords(kws ...string) bool {
	for i, kw := range kws {
		if !s.isKeywordN(i, kw) {
			return false
		}
	}
	s.pos += len(kws)
	return true
}

func (s *state) expectKeyword(kw string) error {
	if !s.parseKeyword(kw) {
		return s.unexpected(kw)
	}
	return nil
}

func (s *state) expectKeywords(kws ...string) error {
	for _, kw := range kws {
		if err := s.expectKeyword(kw); err != nil {
			return err
		}
	}
	return nil
}

// parseOneOf consumes and returns the first of kws that is next, upper-cased.
func (s *state) parseOneOf(kws ...string) string {
	for _, kw := range kws {
		if s.parseKeyword(kw) {
			return kw
		}
	}
	return ""
}

func isPunct(tok token, p string) bool { return tok.kind == tokPunct && tok.text == p }

func (s *state) isPunct(p string) bool { return isPunct(s.peek(), p) }

func (s *state) consumePunct(p string) bool {
	if s.isPunct(p) {
		s.next()
		return true
	}
	return false
}

func (s *state) expectPunct(p string) error {
	if !s.consumePunct(p) {
		return s.unexpected(fmt.Sprintf("%q", p))
	}
	return nil
}

// reserved words never taken as an implicit alias or a bare column name
var reserved = map[string]bool{
	"ALL": true, "AND": true, "ANY": true, "APPLY": true, "AS": true, "ASC": true,
	"BETWEEN": true, "BY": true, "CASE": true, "CROSS": true, "DEFAULT": true,
	"DESC": true, "DISTINCT": true, "DO": true, "DUPLICATE": true, "ELSE": true, "END": true,
	"EXCEPT": true, "EXISTS": true, "FETCH": true, "FOR": true, "FROM": true, "FULL": true,
	"GROUP": true, "HAVING": true, "ILIKE": true, "IN": true, "INNER": true,
	"INTERSECT": true, "INTO": true, "IS": true, "JOIN": true, "LATERAL": true,
	"LEFT": true, "LIKE": true, "LIMIT": true, "LOCK": true, "NATURAL": true, "NOT": true,
	"NULL": true, "OFFSET": true, "ON": true, "ONLY": true, "OR": true, "ORDER": true, "OUTER": true,
	"PIVOT": true, "QUALIFY": true, "RETURNING": true, "RIGHT": true, "SELECT": true,
	"SET": true, "SIMILAR": true, "SOME": true, "THEN": true, "UNION": true, "UNPIVOT": true,
	"USING": true, "VALUES": true, "WHEN": true, "WHERE": true, "WINDOW": true, "WITH": true,
}

// callable reserved words, when followed by "("
var callable = map[string]bool{
	"LEFT": true, "RIGHT": true, "VALUES": true, "DEFAULT": true, "OFFSET": true,
}

func isReserved(tok token) bool {
	return tok.kind == tokWord && tok.quote == 0 && reserved[strings.ToUpper(tok.text)]
}

func (s *state) parseIdent() (ast.Ident, error) {
	tok := s.peek()
	if tok.kind != tokWord {
		return ast.Ident{}, s.unexpected("identifier")
	}
	s.next()
	return ast.Ident{Value: tok.text, Quote: tok.quote}, nil
}

func (s *state) parseObjectName() (ast.ObjectName, error) {
	var name ast.ObjectName
	for {
		ident, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		name = append(name, ident)
		if !s.isPunct(".") || s.peekN(1).kind != tokWord {
			return name, nil
		}
		s.next()
	}
}

// parseIdentList parses "(a, b, ...)".
func (s *state) parseIdentList() ([]ast.Ident, error) {
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	var idents []ast.Ident
	for {
		ident, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		idents = append(idents, ident)
		if !s.consumePunct(",") {
			break
		}
	}
	return idents, s.expectPunct(")")
}

func (s *state) parseStatement() (ast.Statement, error) {
	switch {
	case s.isQueryStart(0), s.isPunct("("):
		return s.parseQuery()
	case s.isKeyword("INSERT"), s.isKeyword("REPLACE") && s.d == ast.MySQL:
		return s.parseInsert()
	case s.isKeyword("UPDATE"):
		return s.parseUpdate()
	case s.isKeyword("DELETE"):
		return s.parseDelete()
	case s.isKeyword("CREATE") && s.isCreateView():
		return s.parseCreateView()
	case s.isKeyword("COPY") && (s.d == ast.Postgres || s.d == ast.Generic):
		return s.parseCopy()
	}
	return s.parseOther(), nil
}

// parseOther consumes the rest of the statement and keeps its source text.
func (s *state) parseOther() *ast.Other {
	start, end := s.peek().start, s.peek().start
	for !s.isPunct(";") && s.peek().kind != tokEOF {
		end = s.next().end
	}
	return &ast.Other{SQL: s.src[start:end]}
}

// parseCommaList parses one or more items separated by commas.
func parseCommaList[T any](s *state, parse func() (T, error)) ([]T, error) {
	var items []T
	for {
		item, err := parse()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !s.consumePunct(",") {
			return items, nil
		}
	}
}
