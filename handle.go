package rowfilter

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
	"github.com/bobg/rowfilter/filter"
)

// ErrLockBusy is the error produced when a handle is already in use by another call.
// The caller may retry.
var ErrLockBusy = errors.New("handle is busy")

// Handle owns one parsed statement.
// Filters added to it mutate the statement in place,
// and Render reads it back as SQL.
//
// A Handle admits one call at a time.
// A call that finds it in use fails with ErrLockBusy instead of waiting.
type Handle struct {
	id      uuid.UUID
	dialect Dialect
	summary Summary

	mu   sync.Mutex
	stmt ast.Statement
}

func newHandle(stmt ast.Statement, d Dialect) *Handle {
	return &Handle{
		id:      uuid.New(),
		dialect: d,
		summary: Summary{Kind: kindOf(stmt), Tables: filter.Tables(stmt)},
		stmt:    stmt,
	}
}

// ID is h's identifier, unique across handles.
func (h *Handle) ID() uuid.UUID { return h.id }

// Dialect is the dialect h's statement was parsed in.
func (h *Handle) Dialect() Dialect { return h.dialect }

// Summary describes h's statement as it was parsed.
func (h *Handle) Summary() Summary {
	s := h.summary
	s.Tables = append([]string(nil), s.Tables...)
	return s
}

// withLock runs f on h's statement if no other call holds h.
func (h *Handle) withLock(f func(ast.Statement) error) error {
	if !h.mu.TryLock() {
		return ErrLockBusy
	}
	defer h.mu.Unlock()
	return f(h.stmt)
}

// Render renders h's statement, with any filters added so far.
func (h *Handle) Render() (string, error) {
	var result string
	err := h.withLock(func(stmt ast.Statement) error {
		result = stmt.String()
		return nil
	})
	return result, err
}

// AddTableFilter adds the predicate "column op value" to every query block
// of h's statement that reads from table.
// Table is a name or a dotted path, compared without regard to case.
// Column is a name or dotted path of plain identifiers.
// Value is a Go integer, a finite float or a string.
// Only OpEq is supported.
//
// The arguments are checked before the statement is touched,
// so on error the statement is unchanged.
// A statement that does not read from table is left alone without error.
func (h *Handle) AddTableFilter(table, column string, op Operator, value any) error {
	target, err := filter.ParsePath(table)
	if err != nil {
		return err
	}
	pred, err := filter.Predicate(h.dialect, column, op, value)
	if err != nil {
		return err
	}
	return h.withLock(func(stmt ast.Statement) error {
		return filter.Inject(stmt, target, pred)
	})
}

// AddFilter is AddTableFilter with its arguments taken from f.
func (h *Handle) AddFilter(f Filter) error {
	return h.AddTableFilter(f.Table, f.Column, f.Op, f.Value)
}

// Statement returns a copy of h's statement.
// Changes to the copy do not affect h.
func (h *Handle) Statement() (ast.Statement, error) {
	var result ast.Statement
	err := h.withLock(func(stmt ast.Statement) error {
		result = ast.Clone(stmt)
		return nil
	})
	return result, err
}
