package ast

import (
	"strings"
)

// Expr is a scalar or boolean expression.
//
//sumtype:decl
type Expr interface {
	Node
	expr()
}

func (*Identifier) expr()         {}
func (*CompoundIdentifier) expr() {}
func (*Wildcard) expr()           {}
func (*Value) expr()              {}
func (*TypedString) expr()        {}
func (*BinaryOp) expr()           {}
func (*UnaryOp) expr()            {}
func (*IsExpr) expr()             {}
func (*IsDistinctFrom) expr()     {}
func (*InList) expr()             {}
func (*InSubquery) expr()         {}
func (*InUnnest) expr()           {}
func (*Between) expr()            {}
func (*Like) expr()               {}
func (*AnyOp) expr()              {}
func (*Cast) expr()               {}
func (*AtTimeZone) expr()         {}
func (*Extract) expr()            {}
func (*Position) expr()           {}
func (*Substring) expr()          {}
func (*Trim) expr()               {}
func (*Overlay) expr()            {}
func (*Collate) expr()            {}
func (*Nested) expr()             {}
func (*CompositeAccess) expr()    {}
func (*Case) expr()               {}
func (*Exists) expr()             {}
func (*Subquery) expr()           {}
func (*ArraySubquery) expr()      {}
func (*ListAgg) expr()            {}
func (*ArrayAgg) expr()           {}
func (*GroupingSets) expr()       {}
func (*Cube) expr()               {}
func (*Rollup) expr()             {}
func (*Tuple) expr()              {}
func (*Array) expr()              {}
func (*ArrayIndex) expr()         {}
func (*Interval) expr()           {}
func (*Function) expr()           {}

func (*Identifier) node()         {}
func (*CompoundIdentifier) node() {}
func (*Wildcard) node()           {}
func (*Value) node()              {}
func (*TypedString) node()        {}
func (*BinaryOp) node()           {}
func (*UnaryOp) node()            {}
func (*IsExpr) node()             {}
func (*IsDistinctFrom) node()     {}
func (*InList) node()             {}
func (*InSubquery) node()         {}
func (*InUnnest) node()           {}
func (*Between) node()            {}
func (*Like) node()               {}
func (*AnyOp) node()              {}
func (*Cast) node()               {}
func (*AtTimeZone) node()         {}
func (*Extract) node()            {}
func (*Position) node()           {}
func (*Substring) node()          {}
func (*Trim) node()               {}
func (*Overlay) node()            {}
func (*Collate) node()            {}
func (*Nested) node()             {}
func (*CompositeAccess) node()    {}
func (*Case) node()               {}
func (*Exists) node()             {}
func (*Subquery) node()           {}
func (*ArraySubquery) node()      {}
func (*ListAgg) node()            {}
func (*ArrayAgg) node()           {}
func (*GroupingSets) node()       {}
func (*Cube) node()               {}
func (*Rollup) node()             {}
func (*Tuple) node()              {}
func (*Array) node()              {}
func (*ArrayIndex) node()         {}
func (*Interval) node()           {}
func (*Function) node()           {}
func (*WindowFrame) node()        {}

// Binding strengths, loosest first.
// The parser and the renderer share them,
// so rendered text re-parses into the tree it came from.
const (
	PrecOr         = 5
	PrecXor        = 7
	PrecAnd        = 10
	PrecNot        = 15
	PrecIs         = 17
	PrecCompare    = 20 // also LIKE, IN, BETWEEN
	PrecBitOr      = 21
	PrecBitShift   = 22
	PrecBitAnd     = 23
	PrecOther      = 25 // Postgres operators such as @>, ~ and ->
	PrecAdd        = 30
	PrecMul        = 40
	PrecUnary      = 45
	PrecAtTimeZone = 48
	PrecPostfix    = 50 // ::, COLLATE, [...]
	PrecAtom       = 100
)

// BinaryOperator is an infix operator, spelled as it renders.
type BinaryOperator string

const (
	Plus          BinaryOperator = "+"
	Minus         BinaryOperator = "-"
	Multiply      BinaryOperator = "*"
	Divide        BinaryOperator = "/"
	Modulo        BinaryOperator = "%"
	StringConcat  BinaryOperator = "||"
	Gt            BinaryOperator = ">"
	Lt            BinaryOperator = "<"
	GtEq          BinaryOperator = ">="
	LtEq          BinaryOperator = "<="
	Spaceship     BinaryOperator = "<=>"
	Eq            BinaryOperator = "="
	NotEq         BinaryOperator = "<>"
	BangNotEq     BinaryOperator = "!="
	And           BinaryOperator = "AND"
	Or            BinaryOperator = "OR"
	Xor           BinaryOperator = "XOR"
	BitwiseOr     BinaryOperator = "|"
	BitwiseAnd    BinaryOperator = "&"
	BitwiseXor    BinaryOperator = "^"
	PGBitwiseXor  BinaryOperator = "#"
	ShiftLeft     BinaryOperator = "<<"
	ShiftRight    BinaryOperator = ">>"
	IntDiv        BinaryOperator = "DIV"
	Mod           BinaryOperator = "MOD"
	RegexMatch    BinaryOperator = "~"
	RegexIMatch   BinaryOperator = "~*"
	RegexNotMatch BinaryOperator = "!~"
	RegexNotIMat  BinaryOperator = "!~*"
	Contains      BinaryOperator = "@>"
	ContainedBy   BinaryOperator = "<@"
	Overlaps      BinaryOperator = "&&"
	TextSearch    BinaryOperator = "@@"
	Arrow         BinaryOperator = "->"
	LongArrow     BinaryOperator = "->>"
	HashArrow     BinaryOperator = "#>"
	HashLongArrow BinaryOperator = "#>>"
)

// Precedence is the binding strength of op.
func (op BinaryOperator) Precedence() int {
	switch op {
	case Or:
		return PrecOr
	case Xor:
		return PrecXor
	case And:
		return PrecAnd
	case Gt, Lt, GtEq, LtEq, Spaceship, Eq, NotEq, BangNotEq:
		return PrecCompare
	case BitwiseOr:
		return PrecBitOr
	case BitwiseXor, PGBitwiseXor, ShiftLeft, ShiftRight:
		return PrecBitShift
	case BitwiseAnd:
		return PrecBitAnd
	case Plus, Minus:
		return PrecAdd
	case Multiply, Divide, Modulo, StringConcat, IntDiv, Mod:
		return PrecMul
	}
	return PrecOther
}

// Precedence returns how tightly e binds when it appears
// as the operand of an operator.
func Precedence(e Expr) int {
	switch e := e.(type) {
	case *BinaryOp:
		return e.Op.Precedence()
	case *UnaryOp:
		if e.Op == Not {
			return PrecNot
		}
		return PrecUnary
	case *Exists:
		if e.Negated {
			return PrecNot
		}
	case *IsExpr, *IsDistinctFrom:
		return PrecIs
	case *InList, *InSubquery, *InUnnest, *Between, *Like:
		return PrecCompare
	case *AtTimeZone:
		return PrecAtTimeZone
	case *Cast:
		if e.Kind == DoubleColon {
			return PrecPostfix
		}
	case *Collate, *ArrayIndex:
		return PrecPostfix
	case *Value:
		if e.Kind == Number && strings.HasPrefix(e.Val, "-") {
			return PrecUnary
		}
	}
	return PrecAtom
}

// left renders the left operand of an operator with precedence prec.
func left(e Expr, prec int) string {
	if Precedence(e) < prec {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// right renders the right operand of a left-associative operator with precedence prec.
func right(e Expr, prec int) string {
	if Precedence(e) <= prec {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Identifier is a bare column or variable reference.
type Identifier struct {
	Name Ident
}

func (i *Identifier) String() string { return i.Name.String() }

// CompoundIdentifier is a qualified reference such as t.col.
type CompoundIdentifier struct {
	Parts []Ident
}

func (c *CompoundIdentifier) String() string { return ObjectName(c.Parts).String() }

// Wildcard is * or qualifier.*.
type Wildcard struct {
	Qualifier ObjectName
}

func (w *Wildcard) String() string {
	if len(w.Qualifier) == 0 {
		return "*"
	}
	return w.Qualifier.String() + ".*"
}

// TypedString is a literal prefixed by its type, as in DATE '2024-01-01'.
type TypedString struct {
	Type  DataType
	Value *Value
}

func (t *TypedString) String() string { return t.Type.String() + " " + t.Value.String() }

// BinaryOp is "left op right".
type BinaryOp struct {
	Left  Expr
	Op    BinaryOperator
	Right Expr
}

func (b *BinaryOp) String() string {
	p := b.Op.Precedence()
	return left(b.Left, p) + " " + string(b.Op) + " " + right(b.Right, p)
}

// UnaryOperator is a prefix operator.
type UnaryOperator string

const (
	Not        UnaryOperator = "NOT"
	UnaryMinus UnaryOperator = "-"
	UnaryPlus  UnaryOperator = "+"
	BitwiseNot UnaryOperator = "~"
)

// UnaryOp is "op expr".
type UnaryOp struct {
	Op   UnaryOperator
	Expr Expr
}

func (u *UnaryOp) String() string {
	if u.Op == Not {
		return "NOT " + left(u.Expr, PrecNot)
	}
	operand := left(u.Expr, PrecUnary)
	if strings.HasPrefix(operand, "-") || strings.HasPrefix(operand, "+") {
		// "--" would start a comment.
		operand = "(" + operand + ")"
	}
	return string(u.Op) + operand
}

// IsExpr is "expr IS [NOT] TRUE|FALSE|UNKNOWN|NULL".
type IsExpr struct {
	Expr Expr
	Not  bool
	Test string
}

func (i *IsExpr) String() string {
	s := left(i.Expr, PrecIs) + " IS "
	if i.Not {
		s += "NOT "
	}
	return s + i.Test
}

// IsDistinctFrom is "left IS [NOT] DISTINCT FROM right".
type IsDistinctFrom struct {
	Left  Expr
	Not   bool
	Right Expr
}

func (i *IsDistinctFrom) String() string {
	op := " IS DISTINCT FROM "
	if i.Not {
		op = " IS NOT DISTINCT FROM "
	}
	return left(i.Left, PrecIs) + op + right(i.Right, PrecIs)
}

func notPrefix(negated bool) string {
	if negated {
		return "NOT "
	}
	return ""
}

// InList is "expr [NOT] IN (list)".
type InList struct {
	Expr    Expr
	Negated bool
	List    []Expr
}

func (i *InList) String() string {
	return left(i.Expr, PrecCompare) + " " + notPrefix(i.Negated) + "IN (" + commaSeparated(i.List) + ")"
}

// InSubquery is "expr [NOT] IN (subquery)".
type InSubquery struct {
	Expr     Expr
	Negated  bool
	Subquery *Query
}

func (i *InSubquery) String() string {
	return left(i.Expr, PrecCompare) + " " + notPrefix(i.Negated) + "IN (" + i.Subquery.String() + ")"
}

// InUnnest is "expr [NOT] IN UNNEST(array)".
type InUnnest struct {
	Expr    Expr
	Negated bool
	Array   Expr
}

func (i *InUnnest) String() string {
	return left(i.Expr, PrecCompare) + " " + notPrefix(i.Negated) + "IN UNNEST(" + i.Array.String() + ")"
}

// Between is "expr [NOT] BETWEEN low AND high".
type Between struct {
	Expr    Expr
	Negated bool
	Low     Expr
	High    Expr
}

func (b *Between) String() string {
	return left(b.Expr, PrecCompare) + " " + notPrefix(b.Negated) + "BETWEEN " +
		right(b.Low, PrecCompare) + " AND " + right(b.High, PrecCompare)
}

// LikeKind distinguishes the pattern-matching operators.
type LikeKind string

const (
	LikeOp    LikeKind = "LIKE"
	ILikeOp   LikeKind = "ILIKE"
	SimilarTo LikeKind = "SIMILAR TO"
)

// Like is "expr [NOT] LIKE|ILIKE|SIMILAR TO pattern [ESCAPE esc]".
type Like struct {
	Expr    Expr
	Negated bool
	Kind    LikeKind
	Pattern Expr
	Escape  Expr
}

func (l *Like) String() string {
	s := left(l.Expr, PrecCompare) + " " + notPrefix(l.Negated) + string(l.Kind) + " " + right(l.Pattern, PrecCompare)
	if l.Escape != nil {
		s += " ESCAPE " + right(l.Escape, PrecCompare)
	}
	return s
}

// AnyOp is ANY(...) or ALL(...) on the right of a comparison.
// Exactly one of Subquery and Expr is set.
type AnyOp struct {
	All      bool
	Subquery *Query
	Expr     Expr
}

func (a *AnyOp) String() string {
	s := "ANY("
	if a.All {
		s = "ALL("
	}
	if a.Subquery != nil {
		return s + a.Subquery.String() + ")"
	}
	return s + a.Expr.String() + ")"
}

// CastKind is the spelling of a cast.
type CastKind int

const (
	CastFunc CastKind = iota // CAST(x AS t)
	TryCast
	SafeCast
	DoubleColon // x::t
)

// Cast converts Expr to Type.
type Cast struct {
	Kind CastKind
	Expr Expr
	Type DataType
}

func (c *Cast) String() string {
	switch c.Kind {
	case DoubleColon:
		return left(c.Expr, PrecPostfix) + "::" + c.Type.String()
	case TryCast:
		return "TRY_CAST(" + c.Expr.String() + " AS " + c.Type.String() + ")"
	case SafeCast:
		return "SAFE_CAST(" + c.Expr.String() + " AS " + c.Type.String() + ")"
	}
	return "CAST(" + c.Expr.String() + " AS " + c.Type.String() + ")"
}

// AtTimeZone is "timestamp AT TIME ZONE zone".
type AtTimeZone struct {
	Timestamp Expr
	TimeZone  Expr
}

func (a *AtTimeZone) String() string {
	return left(a.Timestamp, PrecAtTimeZone) + " AT TIME ZONE " + right(a.TimeZone, PrecAtTimeZone)
}

// Extract is EXTRACT(field FROM expr).
type Extract struct {
	Field string
	Expr  Expr
}

func (e *Extract) String() string { return "EXTRACT(" + e.Field + " FROM " + e.Expr.String() + ")" }

// Position is POSITION(expr IN in).
type Position struct {
	Expr Expr
	In   Expr
}

func (p *Position) String() string {
	return "POSITION(" + right(p.Expr, PrecCompare) + " IN " + p.In.String() + ")"
}

// Substring is SUBSTRING(expr FROM from FOR for),
// or the comma-separated call form when Commas is set.
type Substring struct {
	Expr   Expr
	From   Expr
	For    Expr
	Commas bool
}

func (s *Substring) String() string {
	out := "SUBSTRING(" + s.Expr.String()
	if s.Commas {
		if s.From != nil {
			out += ", " + s.From.String()
		}
		if s.For != nil {
			out += ", " + s.For.String()
		}
		return out + ")"
	}
	if s.From != nil {
		out += " FROM " + s.From.String()
	}
	if s.For != nil {
		out += " FOR " + s.For.String()
	}
	return out + ")"
}

// Trim is TRIM([BOTH|LEADING|TRAILING] [what] [FROM] expr).
type Trim struct {
	Where string
	What  Expr
	Expr  Expr
}

func (t *Trim) String() string {
	if t.Where == "" && t.What == nil {
		return "TRIM(" + t.Expr.String() + ")"
	}
	var parts []string
	if t.Where != "" {
		parts = append(parts, t.Where)
	}
	if t.What != nil {
		parts = append(parts, t.What.String())
	}
	parts = append(parts, "FROM", t.Expr.String())
	return "TRIM(" + strings.Join(parts, " ") + ")"
}

// Overlay is OVERLAY(expr PLACING what FROM from [FOR for]).
type Overlay struct {
	Expr Expr
	What Expr
	From Expr
	For  Expr
}

func (o *Overlay) String() string {
	s := "OVERLAY(" + o.Expr.String() + " PLACING " + o.What.String() + " FROM " + o.From.String()
	if o.For != nil {
		s += " FOR " + o.For.String()
	}
	return s + ")"
}

// Collate is "expr COLLATE collation".
type Collate struct {
	Expr      Expr
	Collation ObjectName
}

func (c *Collate) String() string {
	return left(c.Expr, PrecPostfix) + " COLLATE " + c.Collation.String()
}

// Nested is a parenthesized expression.
type Nested struct {
	Expr Expr
}

func (n *Nested) String() string { return "(" + n.Expr.String() + ")" }

// CompositeAccess is "(expr).field".
type CompositeAccess struct {
	Expr Expr
	Key  Ident
}

func (c *CompositeAccess) String() string { return "(" + c.Expr.String() + ")." + c.Key.String() }

// Case is a CASE expression.
// Conditions and Results are parallel.
type Case struct {
	Operand    Expr
	Conditions []Expr
	Results    []Expr
	Else       Expr
}

func (c *Case) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	if c.Operand != nil {
		b.WriteByte(' ')
		b.WriteString(c.Operand.String())
	}
	for i, cond := range c.Conditions {
		b.WriteString(" WHEN ")
		b.WriteString(cond.String())
		b.WriteString(" THEN ")
		b.WriteString(c.Results[i].String())
	}
	if c.Else != nil {
		b.WriteString(" ELSE ")
		b.WriteString(c.Else.String())
	}
	b.WriteString(" END")
	return b.String()
}

// Exists is "[NOT] EXISTS (subquery)".
type Exists struct {
	Negated  bool
	Subquery *Query
}

func (e *Exists) String() string {
	return notPrefix(e.Negated) + "EXISTS (" + e.Subquery.String() + ")"
}

// Subquery is a parenthesized query used as a scalar value.
type Subquery struct {
	Query *Query
}

func (s *Subquery) String() string { return "(" + s.Query.String() + ")" }

// ArraySubquery is ARRAY(subquery).
type ArraySubquery struct {
	Query *Query
}

func (a *ArraySubquery) String() string { return "ARRAY(" + a.Query.String() + ")" }

// ListAgg is LISTAGG([DISTINCT] expr [, separator]) [WITHIN GROUP (ORDER BY ...)].
type ListAgg struct {
	Distinct    bool
	Expr        Expr
	Separator   Expr
	WithinGroup []*OrderByExpr
}

func (l *ListAgg) String() string {
	s := "LISTAGG("
	if l.Distinct {
		s += "DISTINCT "
	}
	s += l.Expr.String()
	if l.Separator != nil {
		s += ", " + l.Separator.String()
	}
	s += ")"
	if len(l.WithinGroup) > 0 {
		s += " WITHIN GROUP (ORDER BY " + commaSeparated(l.WithinGroup) + ")"
	}
	return s
}

// ArrayAgg is ARRAY_AGG([DISTINCT] expr [ORDER BY ...] [LIMIT n]).
type ArrayAgg struct {
	Distinct bool
	Expr     Expr
	OrderBy  []*OrderByExpr
	Limit    Expr
}

func (a *ArrayAgg) String() string {
	s := "ARRAY_AGG("
	if a.Distinct {
		s += "DISTINCT "
	}
	s += a.Expr.String()
	if len(a.OrderBy) > 0 {
		s += " ORDER BY " + commaSeparated(a.OrderBy)
	}
	if a.Limit != nil {
		s += " LIMIT " + a.Limit.String()
	}
	return s + ")"
}

func groupingSets(keyword string, sets [][]Expr) string {
	parts := make([]string, 0, len(sets))
	for _, set := range sets {
		if len(set) == 1 {
			parts = append(parts, set[0].String())
			continue
		}
		parts = append(parts, "("+commaSeparated(set)+")")
	}
	return keyword + " (" + strings.Join(parts, ", ") + ")"
}

// GroupingSets is GROUPING SETS (...).
type GroupingSets struct {
	Sets [][]Expr
}

func (g *GroupingSets) String() string { return groupingSets("GROUPING SETS", g.Sets) }

// Cube is CUBE (...).
type Cube struct {
	Sets [][]Expr
}

func (c *Cube) String() string { return groupingSets("CUBE", c.Sets) }

// Rollup is ROLLUP (...).
type Rollup struct {
	Sets [][]Expr
}

func (r *Rollup) String() string { return groupingSets("ROLLUP", r.Sets) }

// Tuple is a parenthesized list of two or more expressions.
type Tuple struct {
	Exprs []Expr
}

func (t *Tuple) String() string { return "(" + commaSeparated(t.Exprs) + ")" }

// Array is an array literal, ARRAY[...] when Named, else [...].
type Array struct {
	Elems []Expr
	Named bool
}

func (a *Array) String() string {
	s := "[" + commaSeparated(a.Elems) + "]"
	if a.Named {
		return "ARRAY" + s
	}
	return s
}

// ArrayIndex is "expr[i][j]...".
type ArrayIndex struct {
	Expr    Expr
	Indexes []Expr
}

func (a *ArrayIndex) String() string {
	s := left(a.Expr, PrecPostfix)
	for _, idx := range a.Indexes {
		s += "[" + idx.String() + "]"
	}
	return s
}

// Interval is INTERVAL value [unit].
type Interval struct {
	Value Expr
	Unit  string
}

func (i *Interval) String() string {
	s := "INTERVAL " + left(i.Value, PrecUnary)
	if i.Unit != "" {
		s += " " + i.Unit
	}
	return s
}

// Function is a function call.
// Special marks niladic keywords written without parentheses, such as CURRENT_TIMESTAMP.
// At most one of Over and OverRef is set.
type Function struct {
	Name        ObjectName
	Args        []*FunctionArg
	Distinct    bool
	OrderBy     []*OrderByExpr
	WithinGroup []*OrderByExpr
	Filter      Expr
	Over        *WindowSpec
	OverRef     *Ident
	Special     bool
}

func (f *Function) String() string {
	if f.Special {
		return f.Name.String()
	}
	var b strings.Builder
	b.WriteString(f.Name.String())
	b.WriteByte('(')
	if f.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(commaSeparated(f.Args))
	if len(f.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(commaSeparated(f.OrderBy))
	}
	b.WriteByte(')')
	if len(f.WithinGroup) > 0 {
		b.WriteString(" WITHIN GROUP (ORDER BY ")
		b.WriteString(commaSeparated(f.WithinGroup))
		b.WriteByte(')')
	}
	if f.Filter != nil {
		b.WriteString(" FILTER (WHERE ")
		b.WriteString(f.Filter.String())
		b.WriteByte(')')
	}
	switch {
	case f.Over != nil:
		b.WriteString(" OVER (")
		b.WriteString(f.Over.String())
		b.WriteByte(')')
	case f.OverRef != nil:
		b.WriteString(" OVER ")
		b.WriteString(f.OverRef.String())
	}
	return b.String()
}

// FunctionArg is a positional or named ("name => value") argument.
type FunctionArg struct {
	Name *Ident
	Arg  Expr
}

func (a *FunctionArg) String() string {
	if a.Name != nil {
		return a.Name.String() + " => " + a.Arg.String()
	}
	return a.Arg.String()
}

// WindowSpec is the body of OVER (...) or of a named window.
type WindowSpec struct {
	Ref         *Ident
	PartitionBy []Expr
	OrderBy     []*OrderByExpr
	Frame       *WindowFrame
}

func (w *WindowSpec) String() string {
	var parts []string
	if w.Ref != nil {
		parts = append(parts, w.Ref.String())
	}
	if len(w.PartitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+commaSeparated(w.PartitionBy))
	}
	if len(w.OrderBy) > 0 {
		parts = append(parts, "ORDER BY "+commaSeparated(w.OrderBy))
	}
	if w.Frame != nil {
		parts = append(parts, w.Frame.String())
	}
	return strings.Join(parts, " ")
}

// WindowFrame is "ROWS|RANGE|GROUPS start" or "... BETWEEN start AND end".
type WindowFrame struct {
	Units string
	Start FrameBound
	End   *FrameBound
}

func (f *WindowFrame) String() string {
	if f.End == nil {
		return f.Units + " " + f.Start.String()
	}
	return f.Units + " BETWEEN " + f.Start.String() + " AND " + f.End.String()
}

// FrameBound is one end of a window frame.
// Bound is "PRECEDING", "FOLLOWING" or "CURRENT ROW";
// a nil Offset with PRECEDING or FOLLOWING means UNBOUNDED.
type FrameBound struct {
	Bound  string
	Offset Expr
}

func (b FrameBound) String() string {
	switch {
	case b.Bound == "CURRENT ROW":
		return b.Bound
	case b.Offset == nil:
		return "UNBOUNDED " + b.Bound
	}
	return b.Offset.String() + " " + b.Bound
}
