package ast

import (
	"strings"
)

// Query is a full query expression:
// optional WITH, a body, and the ORDER BY/LIMIT/OFFSET/FETCH/locking tail.
type Query struct {
	With    *With
	Body    SetExpr
	OrderBy []*OrderByExpr
	Limit   Expr
	Offset  Expr
	Fetch   *Fetch
	Locks   []string // e.g. "FOR UPDATE OF t NOWAIT"
}

func (q *Query) String() string {
	var b strings.Builder
	if q.With != nil {
		b.WriteString(q.With.String())
		b.WriteByte(' ')
	}
	b.WriteString(setExprString(q.Body))
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(commaSeparated(q.OrderBy))
	}
	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(q.Limit.String())
	}
	if q.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(q.Offset.String())
	}
	if q.Fetch != nil {
		b.WriteByte(' ')
		b.WriteString(q.Fetch.String())
	}
	for _, lock := range q.Locks {
		b.WriteByte(' ')
		b.WriteString(lock)
	}
	return b.String()
}

// setExprString renders a set expression,
// parenthesizing a nested query.
func setExprString(e SetExpr) string {
	if q, ok := e.(*Query); ok {
		return "(" + q.String() + ")"
	}
	return e.String()
}

// With is a WITH clause.
type With struct {
	Recursive bool
	CTEs      []*CTE
}

func (w *With) String() string {
	s := "WITH "
	if w.Recursive {
		s += "RECURSIVE "
	}
	return s + commaSeparated(w.CTEs)
}

// CTE is one named subquery of a WITH clause.
// Materialized is "", "MATERIALIZED" or "NOT MATERIALIZED".
type CTE struct {
	Name         Ident
	Columns      []Ident
	Materialized string
	Query        *Query
}

func (c *CTE) String() string {
	s := c.Name.String()
	if len(c.Columns) > 0 {
		s += " (" + identList(c.Columns) + ")"
	}
	s += " AS "
	if c.Materialized != "" {
		s += c.Materialized + " "
	}
	return s + "(" + c.Query.String() + ")"
}

// Select is a single SELECT block.
// Selection is the WHERE clause, nil when absent.
type Select struct {
	Distinct     bool
	DistinctOn   []Expr
	Projection   []*SelectItem
	From         []*TableWithJoins
	Selection    Expr
	GroupBy      []Expr
	Having       Expr
	NamedWindows []*NamedWindow
	Qualify      Expr
}

func (s *Select) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
		if len(s.DistinctOn) > 0 {
			b.WriteString("ON (")
			b.WriteString(commaSeparated(s.DistinctOn))
			b.WriteString(") ")
		}
	}
	b.WriteString(commaSeparated(s.Projection))
	if len(s.From) > 0 {
		b.WriteString(" FROM ")
		b.WriteString(commaSeparated(s.From))
	}
	if s.Selection != nil {
		b.WriteString(" WHERE ")
		b.WriteString(s.Selection.String())
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(commaSeparated(s.GroupBy))
	}
	if s.Having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(s.Having.String())
	}
	if len(s.NamedWindows) > 0 {
		b.WriteString(" WINDOW ")
		b.WriteString(commaSeparated(s.NamedWindows))
	}
	if s.Qualify != nil {
		b.WriteString(" QUALIFY ")
		b.WriteString(s.Qualify.String())
	}
	return b.String()
}

// SelectItem is one entry of a projection list.
// Expr may be a *Wildcard.
type SelectItem struct {
	Expr  Expr
	Alias *Ident
}

func (i *SelectItem) String() string {
	if i.Alias != nil {
		return i.Expr.String() + " AS " + i.Alias.String()
	}
	return i.Expr.String()
}

// SetOperator is UNION, INTERSECT or EXCEPT.
type SetOperator string

const (
	Union     SetOperator = "UNION"
	Intersect SetOperator = "INTERSECT"
	Except    SetOperator = "EXCEPT"
)

// SetOperation combines two query bodies.
// Quantifier is "", "ALL" or "DISTINCT".
type SetOperation struct {
	Left       SetExpr
	Op         SetOperator
	Quantifier string
	Right      SetExpr
}

func (s *SetOperation) String() string {
	op := string(s.Op)
	if s.Quantifier != "" {
		op += " " + s.Quantifier
	}
	return setOperand(s.Left, s.Op, false) + " " + op + " " + setOperand(s.Right, s.Op, true)
}

// setOperand parenthesizes a side of a set operation
// whose grouping would otherwise change on re-parse.
func setOperand(e SetExpr, parent SetOperator, right bool) string {
	if child, ok := e.(*SetOperation); ok {
		cp, pp := setPrecedence(child.Op), setPrecedence(parent)
		if cp < pp || (right && cp == pp) {
			return "(" + child.String() + ")"
		}
	}
	return setExprString(e)
}

func setPrecedence(op SetOperator) int {
	if op == Intersect {
		return 20
	}
	return 10
}

// Values is a VALUES list.
// Explicit is set for MySQL's VALUES ROW(...) form.
type Values struct {
	Explicit bool
	Rows     [][]Expr
}

func (v *Values) String() string {
	rows := make([]string, 0, len(v.Rows))
	for _, row := range v.Rows {
		r := "(" + commaSeparated(row) + ")"
		if v.Explicit {
			r = "ROW" + r
		}
		rows = append(rows, r)
	}
	return "VALUES " + strings.Join(rows, ", ")
}

// OrderByExpr is one ORDER BY entry.
// Asc is nil when no direction was given; NullsFirst likewise for NULLS FIRST/LAST.
type OrderByExpr struct {
	Expr       Expr
	Asc        *bool
	NullsFirst *bool
}

func (o *OrderByExpr) String() string {
	s := o.Expr.String()
	if o.Asc != nil {
		if *o.Asc {
			s += " ASC"
		} else {
			s += " DESC"
		}
	}
	if o.NullsFirst != nil {
		if *o.NullsFirst {
			s += " NULLS FIRST"
		} else {
			s += " NULLS LAST"
		}
	}
	return s
}

// Fetch is "FETCH FIRST n [PERCENT] ROWS ONLY|WITH TIES".
type Fetch struct {
	Quantity Expr // nil for "FETCH FIRST ROWS ONLY"
	Percent  bool
	WithTies bool
}

func (f *Fetch) String() string {
	s := "FETCH FIRST "
	if f.Quantity != nil {
		s += f.Quantity.String() + " "
		if f.Percent {
			s += "PERCENT "
		}
	}
	s += "ROWS "
	if f.WithTies {
		return s + "WITH TIES"
	}
	return s + "ONLY"
}

// NamedWindow is "name AS (spec)" in a WINDOW clause.
type NamedWindow struct {
	Name Ident
	Spec *WindowSpec
}

func (w *NamedWindow) String() string {
	return w.Name.String() + " AS (" + w.Spec.String() + ")"
}

// TableWithJoins is a FROM entry: a relation and the joins hanging off it.
type TableWithJoins struct {
	Relation TableFactor
	Joins    []*Join
}

func (t *TableWithJoins) String() string {
	var b strings.Builder
	b.WriteString(t.Relation.String())
	for _, j := range t.Joins {
		b.WriteByte(' ')
		b.WriteString(j.String())
	}
	return b.String()
}

// JoinOperator is the kind of a join.
type JoinOperator string

const (
	InnerJoin  JoinOperator = "JOIN"
	LeftJoin   JoinOperator = "LEFT JOIN"
	RightJoin  JoinOperator = "RIGHT JOIN"
	FullJoin   JoinOperator = "FULL JOIN"
	CrossJoin  JoinOperator = "CROSS JOIN"
	CrossApply JoinOperator = "CROSS APPLY"
	OuterApply JoinOperator = "OUTER APPLY"
)

// Join is one joined relation with its constraint.
// At most one of On, Using and Natural is set.
type Join struct {
	Relation TableFactor
	Operator JoinOperator
	Natural  bool
	On       Expr
	Using    []Ident
}

func (j *Join) String() string {
	s := ""
	if j.Natural {
		s = "NATURAL "
	}
	s += string(j.Operator) + " " + j.Relation.String()
	switch {
	case j.On != nil:
		s += " ON " + j.On.String()
	case len(j.Using) > 0:
		s += " USING (" + identList(j.Using) + ")"
	}
	return s
}

// Table is a named relation, possibly a table-valued function call
// when Args is non-nil.
type Table struct {
	Only        bool // ONLY name: inheriting tables are excluded
	Name        ObjectName
	Descendants bool // name *: inheriting tables are included
	Alias       *TableAlias
	Args        []*FunctionArg
	Hints       []Expr // WITH (...) table hints
}

func (t *Table) String() string {
	s := t.Name.String()
	if t.Only {
		s = "ONLY " + s
	}
	if t.Descendants {
		s += " *"
	}
	if t.Args != nil {
		s += "(" + commaSeparated(t.Args) + ")"
	}
	if t.Alias != nil {
		s += " AS " + t.Alias.String()
	}
	if len(t.Hints) > 0 {
		s += " WITH (" + commaSeparated(t.Hints) + ")"
	}
	return s
}

// Derived is a parenthesized subquery used as a relation.
type Derived struct {
	Lateral  bool
	Subquery *Query
	Alias    *TableAlias
}

func (d *Derived) String() string {
	s := ""
	if d.Lateral {
		s = "LATERAL "
	}
	s += "(" + d.Subquery.String() + ")"
	if d.Alias != nil {
		s += " AS " + d.Alias.String()
	}
	return s
}

// TableFunction is TABLE(expr) in a FROM clause.
type TableFunction struct {
	Expr  Expr
	Alias *TableAlias
}

func (f *TableFunction) String() string {
	s := "TABLE(" + f.Expr.String() + ")"
	if f.Alias != nil {
		s += " AS " + f.Alias.String()
	}
	return s
}

// Unnest is UNNEST(array, ...) in a FROM clause.
type Unnest struct {
	ArrayExprs      []Expr
	Alias           *TableAlias
	WithOrdinality  bool
	WithOffset      bool
	WithOffsetAlias *Ident
}

func (u *Unnest) String() string {
	s := "UNNEST(" + commaSeparated(u.ArrayExprs) + ")"
	if u.WithOrdinality {
		s += " WITH ORDINALITY"
	}
	if u.Alias != nil {
		s += " AS " + u.Alias.String()
	}
	if u.WithOffset {
		s += " WITH OFFSET"
		if u.WithOffsetAlias != nil {
			s += " AS " + u.WithOffsetAlias.String()
		}
	}
	return s
}

// NestedJoin is a parenthesized join used as a relation.
type NestedJoin struct {
	TableWithJoins *TableWithJoins
	Alias          *TableAlias
}

func (n *NestedJoin) String() string {
	s := "(" + n.TableWithJoins.String() + ")"
	if n.Alias != nil {
		s += " AS " + n.Alias.String()
	}
	return s
}

// Pivot is "source PIVOT (agg FOR col IN (values))".
type Pivot struct {
	Source            TableFactor
	AggregateFunction Expr
	ValueColumn       []Ident
	PivotValues       []Expr
	Alias             *TableAlias
}

func (p *Pivot) String() string {
	col := ObjectName(p.ValueColumn).String()
	s := p.Source.String() + " PIVOT (" + p.AggregateFunction.String() +
		" FOR " + col + " IN (" + commaSeparated(p.PivotValues) + "))"
	if p.Alias != nil {
		s += " AS " + p.Alias.String()
	}
	return s
}
