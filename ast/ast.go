// Package ast defines the SQL syntax tree shared by the parser,
// the filter injector and the renderer.
//
// Every node renders itself back to SQL through its String method.
// Rendering needs no dialect: identifier quote styles and literal kinds
// are kept on the nodes that carry them,
// so a tree renders in the dialect it was parsed from.
//
// The node categories (Statement, SetExpr, TableFactor, Expr and a few
// smaller ones) are closed sets. Each is an interface with an unexported
// marker method, so no type outside this package can join it,
// and Walk knows every member.
package ast

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Node is implemented by every node of the syntax tree.
type Node interface {
	node()
	fmt.Stringer
}

// Statement is a top-level SQL statement.
//
//sumtype:decl
type Statement interface {
	Node
	stmt()
}

func (*Query) stmt()      {}
func (*Insert) stmt()     {}
func (*Update) stmt()     {}
func (*Delete) stmt()     {}
func (*CreateView) stmt() {}
func (*Copy) stmt()       {}
func (*Other) stmt()      {}

// SetExpr is the body of a query: a SELECT, a set operation over two bodies,
// a VALUES list, a parenthesized query,
// or a data-modifying statement used as a CTE body.
//
//sumtype:decl
type SetExpr interface {
	Node
	setExpr()
}

func (*Select) setExpr()       {}
func (*Query) setExpr()        {}
func (*SetOperation) setExpr() {}
func (*Values) setExpr()       {}
func (*Insert) setExpr()       {}
func (*Update) setExpr()       {}
func (*Delete) setExpr()       {}

// TableFactor is a single relation in a FROM clause.
//
//sumtype:decl
type TableFactor interface {
	Node
	tableFactor()
}

func (*Table) tableFactor()         {}
func (*Derived) tableFactor()       {}
func (*TableFunction) tableFactor() {}
func (*Unnest) tableFactor()        {}
func (*NestedJoin) tableFactor()    {}
func (*Pivot) tableFactor()         {}

// CopySource is what a COPY statement reads from or writes to:
// a table (with optional column list) or a query.
//
//sumtype:decl
type CopySource interface {
	Node
	copySource()
}

func (*CopyTable) copySource() {}
func (*Query) copySource()     {}

// OnInsert is the conflict clause of an INSERT.
//
//sumtype:decl
type OnInsert interface {
	Node
	onInsert()
}

func (*OnConflict) onInsert()         {}
func (*DuplicateKeyUpdate) onInsert() {}

func (*Query) node()              {}
func (*With) node()               {}
func (*CTE) node()                {}
func (*Select) node()             {}
func (*SelectItem) node()         {}
func (*SetOperation) node()       {}
func (*Values) node()             {}
func (*OrderByExpr) node()        {}
func (*Fetch) node()              {}
func (*NamedWindow) node()        {}
func (*TableWithJoins) node()     {}
func (*Join) node()               {}
func (*Table) node()              {}
func (*Derived) node()            {}
func (*TableFunction) node()      {}
func (*Unnest) node()             {}
func (*NestedJoin) node()         {}
func (*Pivot) node()              {}
func (*Insert) node()             {}
func (*Update) node()             {}
func (*Delete) node()             {}
func (*CreateView) node()         {}
func (*Copy) node()               {}
func (*CopyTable) node()          {}
func (*Other) node()              {}
func (*Assignment) node()         {}
func (*OnConflict) node()         {}
func (*DuplicateKeyUpdate) node() {}
func (*FunctionArg) node()        {}
func (*WindowSpec) node()         {}

// Ident is a single identifier.
// Quote is the quote character it was written with
// ('"' or '`'), or 0 for a bare identifier.
type Ident struct {
	Value string
	Quote rune
}

// NewIdent returns a bare identifier.
func NewIdent(value string) Ident {
	return Ident{Value: value}
}

func (i Ident) String() string {
	switch i.Quote {
	case 0:
		return i.Value
	case '"':
		return pq.QuoteIdentifier(i.Value)
	default:
		q := string(i.Quote)
		return q + strings.ReplaceAll(i.Value, q, q+q) + q
	}
}

// ObjectName is a possibly qualified name, such as schema.table.
type ObjectName []Ident

// NewObjectName returns a name made of bare identifiers.
func NewObjectName(parts ...string) ObjectName {
	name := make(ObjectName, 0, len(parts))
	for _, p := range parts {
		name = append(name, NewIdent(p))
	}
	return name
}

func (n ObjectName) String() string {
	parts := make([]string, 0, len(n))
	for _, ident := range n {
		parts = append(parts, ident.String())
	}
	return strings.Join(parts, ".")
}

// TableAlias is "AS name [(col, ...)]" after a relation.
type TableAlias struct {
	Name    Ident
	Columns []Ident
}

func (a *TableAlias) String() string {
	s := a.Name.String()
	if len(a.Columns) > 0 {
		s += " (" + identList(a.Columns) + ")"
	}
	return s
}

// DataType is the target type of a cast or typed string.
// Name holds the base type words ("DOUBLE PRECISION", "public.mytype", "ARRAY<INT64>"),
// Args its modifiers, Suffix trailing words such as "WITH TIME ZONE",
// and Array the number of [] dimensions.
type DataType struct {
	Name   string
	Args   []string
	Suffix string
	Array  int
}

func (t DataType) String() string {
	s := t.Name
	if len(t.Args) > 0 {
		s += "(" + strings.Join(t.Args, ", ") + ")"
	}
	if t.Suffix != "" {
		s += " " + t.Suffix
	}
	return s + strings.Repeat("[]", t.Array)
}

func identList(idents []Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		parts = append(parts, ident.String())
	}
	return strings.Join(parts, ", ")
}

func commaSeparated[T fmt.Stringer](items []T) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, ", ")
}
