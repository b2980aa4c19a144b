package ast

import (
	"fmt"
)

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses a syntax tree in depth-first order.
// It starts by calling v.Visit(node); node must not be nil.
// If the visitor w returned by v.Visit(node) is not nil,
// Walk is invoked recursively with visitor w for each of the non-nil children of node,
// followed by a call of w.Visit(nil).
//
// Within a Select the FROM list is walked first, then the WHERE clause,
// then the projection, then the remaining clauses.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	// Statements and query bodies
	case *Query:
		if n.With != nil {
			Walk(v, n.With)
		}
		walkOpt(v, n.Body)
		walkList(v, n.OrderBy)
		walkOpt(v, n.Limit)
		walkOpt(v, n.Offset)
		if n.Fetch != nil {
			Walk(v, n.Fetch)
		}

	case *With:
		walkList(v, n.CTEs)

	case *CTE:
		Walk(v, n.Query)

	case *Select:
		walkList(v, n.From)
		walkOpt(v, n.Selection)
		walkList(v, n.Projection)
		walkList(v, n.DistinctOn)
		walkList(v, n.GroupBy)
		walkOpt(v, n.Having)
		walkList(v, n.NamedWindows)
		walkOpt(v, n.Qualify)

	case *SelectItem:
		walkOpt(v, n.Expr)

	case *SetOperation:
		walkOpt(v, n.Left)
		walkOpt(v, n.Right)

	case *Values:
		for _, row := range n.Rows {
			walkList(v, row)
		}

	case *OrderByExpr:
		walkOpt(v, n.Expr)

	case *Fetch:
		walkOpt(v, n.Quantity)

	case *NamedWindow:
		Walk(v, n.Spec)

	case *Insert:
		if n.Source != nil {
			Walk(v, n.Source)
		}
		walkOpt(v, n.On)
		walkList(v, n.Returning)

	case *OnConflict:
		walkList(v, n.Assignments)
		walkOpt(v, n.Selection)

	case *DuplicateKeyUpdate:
		walkList(v, n.Assignments)

	case *Assignment:
		walkOpt(v, n.Value)

	case *Update:
		Walk(v, n.Table)
		walkList(v, n.Assignments)
		walkList(v, n.From)
		walkOpt(v, n.Selection)
		walkList(v, n.OrderBy)
		walkOpt(v, n.Limit)
		walkList(v, n.Returning)

	case *Delete:
		walkList(v, n.From)
		walkList(v, n.Using)
		walkOpt(v, n.Selection)
		walkList(v, n.OrderBy)
		walkOpt(v, n.Limit)
		walkList(v, n.Returning)

	case *CreateView:
		Walk(v, n.Query)

	case *Copy:
		walkOpt(v, n.Source)

	case *CopyTable, *Other:
		// nothing to do

	// Relations
	case *TableWithJoins:
		walkOpt(v, n.Relation)
		walkList(v, n.Joins)

	case *Join:
		walkOpt(v, n.Relation)
		walkOpt(v, n.On)

	case *Table:
		walkList(v, n.Args)
		walkList(v, n.Hints)

	case *Derived:
		Walk(v, n.Subquery)

	case *TableFunction:
		walkOpt(v, n.Expr)

	case *Unnest:
		walkList(v, n.ArrayExprs)

	case *NestedJoin:
		Walk(v, n.TableWithJoins)

	case *Pivot:
		walkOpt(v, n.Source)
		walkOpt(v, n.AggregateFunction)
		walkList(v, n.PivotValues)

	// Expressions
	case *Identifier, *CompoundIdentifier, *Wildcard, *Value:
		// nothing to do

	case *TypedString:
		Walk(v, n.Value)

	case *BinaryOp:
		walkOpt(v, n.Left)
		walkOpt(v, n.Right)

	case *UnaryOp:
		walkOpt(v, n.Expr)

	case *IsExpr:
		walkOpt(v, n.Expr)

	case *IsDistinctFrom:
		walkOpt(v, n.Left)
		walkOpt(v, n.Right)

	case *InList:
		walkOpt(v, n.Expr)
		walkList(v, n.List)

	case *InSubquery:
		walkOpt(v, n.Expr)
		Walk(v, n.Subquery)

	case *InUnnest:
		walkOpt(v, n.Expr)
		walkOpt(v, n.Array)

	case *Between:
		walkOpt(v, n.Expr)
		walkOpt(v, n.Low)
		walkOpt(v, n.High)

	case *Like:
		walkOpt(v, n.Expr)
		walkOpt(v, n.Pattern)
		walkOpt(v, n.Escape)

	case *AnyOp:
		if n.Subquery != nil {
			Walk(v, n.Subquery)
		}
		walkOpt(v, n.Expr)

	case *Cast:
		walkOpt(v, n.Expr)

	case *AtTimeZone:
		walkOpt(v, n.Timestamp)
		walkOpt(v, n.TimeZone)

	case *Extract:
		walkOpt(v, n.Expr)

	case *Position:
		walkOpt(v, n.Expr)
		walkOpt(v, n.In)

	case *Substring:
		walkOpt(v, n.Expr)
		walkOpt(v, n.From)
		walkOpt(v, n.For)

	case *Trim:
		walkOpt(v, n.What)
		walkOpt(v, n.Expr)

	case *Overlay:
		walkOpt(v, n.Expr)
		walkOpt(v, n.What)
		walkOpt(v, n.From)
		walkOpt(v, n.For)

	case *Collate:
		walkOpt(v, n.Expr)

	case *Nested:
		walkOpt(v, n.Expr)

	case *CompositeAccess:
		walkOpt(v, n.Expr)

	case *Case:
		walkOpt(v, n.Operand)
		walkList(v, n.Conditions)
		walkList(v, n.Results)
		walkOpt(v, n.Else)

	case *Exists:
		Walk(v, n.Subquery)

	case *Subquery:
		Walk(v, n.Query)

	case *ArraySubquery:
		Walk(v, n.Query)

	case *ListAgg:
		walkOpt(v, n.Expr)
		walkOpt(v, n.Separator)
		walkList(v, n.WithinGroup)

	case *ArrayAgg:
		walkOpt(v, n.Expr)
		walkList(v, n.OrderBy)
		walkOpt(v, n.Limit)

	case *GroupingSets:
		walkSets(v, n.Sets)

	case *Cube:
		walkSets(v, n.Sets)

	case *Rollup:
		walkSets(v, n.Sets)

	case *Tuple:
		walkList(v, n.Exprs)

	case *Array:
		walkList(v, n.Elems)

	case *ArrayIndex:
		walkOpt(v, n.Expr)
		walkList(v, n.Indexes)

	case *Interval:
		walkOpt(v, n.Value)

	case *Function:
		walkList(v, n.Args)
		walkList(v, n.OrderBy)
		walkList(v, n.WithinGroup)
		walkOpt(v, n.Filter)
		if n.Over != nil {
			Walk(v, n.Over)
		}

	case *FunctionArg:
		walkOpt(v, n.Arg)

	case *WindowSpec:
		walkList(v, n.PartitionBy)
		walkList(v, n.OrderBy)
		if n.Frame != nil {
			Walk(v, n.Frame)
		}

	case *WindowFrame:
		walkOpt(v, n.Start.Offset)
		if n.End != nil {
			walkOpt(v, n.End.Offset)
		}

	default:
		panic(fmt.Sprintf("ast.Walk: unexpected node type %T", n))
	}

	v.Visit(nil)
}

// walkOpt walks n unless it is a nil interface.
// Interface-typed fields only; pointer fields are checked by the caller.
func walkOpt[N Node](v Visitor, n N) {
	var node Node = n
	if node != nil {
		Walk(v, n)
	}
}

func walkList[N Node](v Visitor, list []N) {
	for _, n := range list {
		walkOpt(v, n)
	}
}

func walkSets(v Visitor, sets [][]Expr) {
	for _, set := range sets {
		walkList(v, set)
	}
}

// Inspect traverses a syntax tree in depth-first order:
// it starts by calling f(node); if f returns true,
// Inspect invokes f recursively for each of the non-nil children of node,
// followed by a call of f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}
