package ast

import (
	"strings"
)

// Insert is INSERT (or MySQL REPLACE) INTO ....
// Exactly one of Source and DefaultValues is set.
type Insert struct {
	Replace       bool
	Ignore        bool
	Table         ObjectName
	Alias         *Ident
	Columns       []Ident
	Source        *Query
	DefaultValues bool
	On            OnInsert
	Returning     []*SelectItem
}

func (ins *Insert) String() string {
	var b strings.Builder
	if ins.Replace {
		b.WriteString("REPLACE ")
	} else {
		b.WriteString("INSERT ")
	}
	if ins.Ignore {
		b.WriteString("IGNORE ")
	}
	b.WriteString("INTO ")
	b.WriteString(ins.Table.String())
	if ins.Alias != nil {
		b.WriteString(" AS ")
		b.WriteString(ins.Alias.String())
	}
	if len(ins.Columns) > 0 {
		b.WriteString(" (")
		b.WriteString(identList(ins.Columns))
		b.WriteByte(')')
	}
	if ins.DefaultValues {
		b.WriteString(" DEFAULT VALUES")
	} else if ins.Source != nil {
		b.WriteByte(' ')
		b.WriteString(ins.Source.String())
	}
	if ins.On != nil {
		b.WriteByte(' ')
		b.WriteString(ins.On.String())
	}
	writeReturning(&b, ins.Returning)
	return b.String()
}

func writeReturning(b *strings.Builder, items []*SelectItem) {
	if len(items) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(commaSeparated(items))
	}
}

// OnConflict is Postgres' ON CONFLICT clause.
// With DoNothing unset it is DO UPDATE SET Assignments [WHERE Selection].
type OnConflict struct {
	Columns    []Ident
	Constraint *Ident

	DoNothing   bool
	Assignments []*Assignment
	Selection   Expr
}

func (o *OnConflict) String() string {
	s := "ON CONFLICT"
	switch {
	case o.Constraint != nil:
		s += " ON CONSTRAINT " + o.Constraint.String()
	case len(o.Columns) > 0:
		s += " (" + identList(o.Columns) + ")"
	}
	if o.DoNothing {
		return s + " DO NOTHING"
	}
	s += " DO UPDATE SET " + commaSeparated(o.Assignments)
	if o.Selection != nil {
		s += " WHERE " + o.Selection.String()
	}
	return s
}

// DuplicateKeyUpdate is MySQL's ON DUPLICATE KEY UPDATE clause.
type DuplicateKeyUpdate struct {
	Assignments []*Assignment
}

func (d *DuplicateKeyUpdate) String() string {
	return "ON DUPLICATE KEY UPDATE " + commaSeparated(d.Assignments)
}

// Assignment is "column = value" in SET lists.
type Assignment struct {
	Target ObjectName
	Value  Expr
}

func (a *Assignment) String() string { return a.Target.String() + " = " + a.Value.String() }

// Update is an UPDATE statement.
// OrderBy and Limit are MySQL extensions.
type Update struct {
	Table       *TableWithJoins
	Assignments []*Assignment
	From        []*TableWithJoins
	Selection   Expr
	OrderBy     []*OrderByExpr
	Limit       Expr
	Returning   []*SelectItem
}

func (u *Update) String() string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(u.Table.String())
	b.WriteString(" SET ")
	b.WriteString(commaSeparated(u.Assignments))
	if len(u.From) > 0 {
		b.WriteString(" FROM ")
		b.WriteString(commaSeparated(u.From))
	}
	if u.Selection != nil {
		b.WriteString(" WHERE ")
		b.WriteString(u.Selection.String())
	}
	writeOrderLimit(&b, u.OrderBy, u.Limit)
	writeReturning(&b, u.Returning)
	return b.String()
}

func writeOrderLimit(b *strings.Builder, orderBy []*OrderByExpr, limit Expr) {
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(commaSeparated(orderBy))
	}
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(limit.String())
	}
}

// Delete is a DELETE statement.
// Tables lists the targets of MySQL's multi-table form (DELETE t1, t2 FROM ...).
type Delete struct {
	Tables    []ObjectName
	From      []*TableWithJoins
	Using     []*TableWithJoins
	Selection Expr
	OrderBy   []*OrderByExpr
	Limit     Expr
	Returning []*SelectItem
}

func (d *Delete) String() string {
	var b strings.Builder
	b.WriteString("DELETE ")
	if len(d.Tables) > 0 {
		b.WriteString(commaSeparated(d.Tables))
		b.WriteByte(' ')
	}
	b.WriteString("FROM ")
	b.WriteString(commaSeparated(d.From))
	if len(d.Using) > 0 {
		b.WriteString(" USING ")
		b.WriteString(commaSeparated(d.Using))
	}
	if d.Selection != nil {
		b.WriteString(" WHERE ")
		b.WriteString(d.Selection.String())
	}
	writeOrderLimit(&b, d.OrderBy, d.Limit)
	writeReturning(&b, d.Returning)
	return b.String()
}

// CreateView is CREATE [OR REPLACE] [TEMPORARY] [MATERIALIZED] VIEW.
type CreateView struct {
	OrReplace    bool
	Temporary    bool
	Materialized bool
	IfNotExists  bool
	Name         ObjectName
	Columns      []Ident
	Query        *Query
}

func (c *CreateView) String() string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if c.OrReplace {
		b.WriteString("OR REPLACE ")
	}
	if c.Temporary {
		b.WriteString("TEMPORARY ")
	}
	if c.Materialized {
		b.WriteString("MATERIALIZED ")
	}
	b.WriteString("VIEW ")
	if c.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(c.Name.String())
	if len(c.Columns) > 0 {
		b.WriteString(" (")
		b.WriteString(identList(c.Columns))
		b.WriteByte(')')
	}
	b.WriteString(" AS ")
	b.WriteString(c.Query.String())
	return b.String()
}

// Copy is Postgres' COPY statement.
// Target is STDIN, STDOUT or a quoted file name, as rendered.
// Options holds the normalized entries of the WITH (...) list.
type Copy struct {
	Source  CopySource
	To      bool
	Target  string
	Options []string
}

func (c *Copy) String() string {
	var b strings.Builder
	b.WriteString("COPY ")
	if q, ok := c.Source.(*Query); ok {
		b.WriteString("(" + q.String() + ")")
	} else {
		b.WriteString(c.Source.String())
	}
	if c.To {
		b.WriteString(" TO ")
	} else {
		b.WriteString(" FROM ")
	}
	b.WriteString(c.Target)
	if len(c.Options) > 0 {
		b.WriteString(" WITH (")
		b.WriteString(strings.Join(c.Options, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// CopyTable is a table and optional column list as a COPY source.
type CopyTable struct {
	Name    ObjectName
	Columns []Ident
}

func (c *CopyTable) String() string {
	if len(c.Columns) == 0 {
		return c.Name.String()
	}
	return c.Name.String() + " (" + identList(c.Columns) + ")"
}

// Other is any statement outside the handled set,
// kept as its source text and never modified.
type Other struct {
	SQL string
}

func (o *Other) String() string { return o.SQL }
