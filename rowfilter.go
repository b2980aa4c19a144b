package rowfilter

import (
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
	"github.com/bobg/rowfilter/filter"
	"github.com/bobg/rowfilter/parser"
)

// Dialect selects the SQL grammar used for parsing.
type Dialect = ast.Dialect

const (
	Postgres = ast.Postgres
	MySQL    = ast.MySQL
	Generic  = ast.Generic
	BigQuery = ast.BigQuery
)

// ParseDialect maps a dialect name such as "postgres" or "mysql" to a Dialect.
// The empty name means Postgres.
func ParseDialect(name string) (Dialect, error) { return ast.ParseDialect(name) }

// Operator compares a filter column with its value.
type Operator = filter.Operator

const (
	OpEq    = filter.OpEq
	OpGt    = filter.OpGt
	OpLt    = filter.OpLt
	OpNotEq = filter.OpNotEq
)

type (
	// TokenizeError reports input that could not be split into tokens.
	TokenizeError = parser.TokenizeError

	// ParseError reports input that does not follow the dialect's grammar.
	ParseError = parser.ParseError
)

var (
	ErrUnknownDialect         = ast.ErrUnknownDialect
	ErrRecursionLimitExceeded = parser.ErrRecursionLimitExceeded
	ErrUnsupportedOperator    = filter.ErrUnsupportedOperator
	ErrInvalidValueType       = filter.ErrInvalidValueType
	ErrInvalidColumn          = filter.ErrInvalidColumn
	ErrInvalidPath            = filter.ErrInvalidPath
	ErrTooDeep                = filter.ErrTooDeep

	// ErrUnsupportedStatement reports a statement that filters cannot be applied to,
	// such as EXPLAIN or CREATE TABLE ... AS, when filters are in force.
	ErrUnsupportedStatement = errors.New("unsupported statement")
)

// StatementKind classifies a parsed statement.
type StatementKind int

const (
	KindOther StatementKind = iota
	KindQuery
	KindInsert
	KindUpdate
	KindDelete
	KindCreateView
	KindCopy
)

func (k StatementKind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindQuery:
		return "query"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindCreateView:
		return "create view"
	case KindCopy:
		return "copy"
	}
	return "StatementKind(" + strconv.Itoa(int(k)) + ")"
}

func kindOf(stmt ast.Statement) StatementKind {
	switch stmt.(type) {
	case *ast.Query:
		return KindQuery
	case *ast.Insert:
		return KindInsert
	case *ast.Update:
		return KindUpdate
	case *ast.Delete:
		return KindDelete
	case *ast.CreateView:
		return KindCreateView
	case *ast.Copy:
		return KindCopy
	}
	return KindOther
}

// Summary describes a statement as it was parsed, before any filters.
// Tables lists every name in table position, lowercased and sorted.
type Summary struct {
	Kind   StatementKind
	Tables []string
}

// Parsed pairs a statement's summary with the handle that owns it.
type Parsed struct {
	Summary Summary
	Handle  *Handle
}

// Parse parses sql, which may hold several semicolon-separated statements,
// and wraps each statement in its own Handle.
// The error, if any, is a *TokenizeError, a *ParseError or ErrRecursionLimitExceeded.
func Parse(sql string, d Dialect) ([]Parsed, error) {
	stmts, err := parser.Parse(sql, d)
	if err != nil {
		return nil, err
	}
	return wrap(stmts, d), nil
}

func wrap(stmts []ast.Statement, d Dialect) []Parsed {
	result := make([]Parsed, 0, len(stmts))
	for _, stmt := range stmts {
		h := newHandle(stmt, d)
		result = append(result, Parsed{Summary: h.Summary(), Handle: h})
	}
	return result
}

// Render renders the statement held by h.
// It fails with ErrLockBusy if another call holds h.
func Render(h *Handle) (string, error) {
	return h.Render()
}

// AddTableFilter adds the predicate "column op value" to every query block
// of h's statement that reads from table.
// It fails with ErrLockBusy if another call holds h.
func AddTableFilter(h *Handle, table, column string, op Operator, value any) error {
	return h.AddTableFilter(table, column, op, value)
}

// Rewrite parses sql, applies filters to every statement in order,
// and renders the result.
// Statements are joined with "; ".
// If there are filters, a statement of KindOther fails with ErrUnsupportedStatement.
func Rewrite(sql string, d Dialect, filters ...Filter) (string, error) {
	stmts, err := parser.Parse(sql, d)
	if err != nil {
		return "", err
	}
	return applyFilters(stmts, d, filters, false)
}

// applyFilters filters and renders stmts.
// Unless allowOther is set, statements of unknown shape are rejected when there are filters.
func applyFilters(stmts []ast.Statement, d Dialect, filters []Filter, allowOther bool) (string, error) {
	rendered := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if other, ok := stmt.(*ast.Other); ok && len(filters) > 0 && !allowOther {
			return "", errors.Wrap(ErrUnsupportedStatement, other.SQL)
		}
		h := newHandle(stmt, d)
		for _, f := range filters {
			if err := h.AddFilter(f); err != nil {
				return "", errors.Wrapf(err, "filtering %s on %s", f.Table, f.Column)
			}
		}
		s, err := h.Render()
		if err != nil {
			return "", err
		}
		rendered = append(rendered, s)
	}
	return strings.Join(rendered, "; "), nil
}

// DebugDump returns a dump of the trees parsed from sql.
// It panics if sql does not parse,
// so it is for diagnostics only and never for untrusted input.
func DebugDump(sql string, d Dialect) string {
	stmts, err := parser.Parse(sql, d)
	if err != nil {
		panic(err)
	}
	return spew.Sdump(stmts)
}
