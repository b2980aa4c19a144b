package ast

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownDialect is returned by ParseDialect for names it does not know.
var ErrUnknownDialect = errors.New("unknown dialect")

// Dialect selects the tokenizing and parsing rules for SQL text.
// The zero value is Postgres.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	Generic
	BigQuery
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case Generic:
		return "generic"
	case BigQuery:
		return "bigquery"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// ParseDialect maps a dialect name to a Dialect, ignoring case.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "generic":
		return Generic, nil
	case "bigquery":
		return BigQuery, nil
	}
	return 0, errors.Wrapf(ErrUnknownDialect, "%q", name)
}

// BackslashEscapes reports whether backslash is an escape character
// inside ordinary string literals of d.
func (d Dialect) BackslashEscapes() bool {
	return d == MySQL || d == BigQuery
}

// IdentQuote is the character d uses to quote identifiers.
func (d Dialect) IdentQuote() rune {
	switch d {
	case MySQL, BigQuery:
		return '`'
	}
	return '"'
}
