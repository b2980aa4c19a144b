// Package filter adds row-level predicates to parsed SQL statements.
//
// Inject finds every query block of a statement that reads from a given table,
// however deeply it is nested (joins, CTEs, derived tables, subqueries in
// expressions, UPDATE and DELETE targets, COPY sources),
// and ANDs a predicate into that block's WHERE clause.
package filter

import (
	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
)

// MaxDepth is the deepest statement tree Inject will modify.
const MaxDepth = 1000

var (
	// ErrTooDeep is returned by Inject for a tree nested deeper than MaxDepth.
	// The tree is left unchanged.
	ErrTooDeep = errors.New("statement nested too deeply to filter")

	// ErrNilPredicate is returned by Inject when given no predicate.
	ErrNilPredicate = errors.New("nil predicate")
)

// Inject ANDs pred into the selection of every query block in stmt
// whose FROM scope includes the table target.
// A statement that never reads target is left as it is.
//
// Each query block receives its own deep copy of pred.
// An existing selection stays on the left of the new conjunction,
// so repeated calls accumulate predicates in call order.
//
// Beyond SELECT blocks, the predicate is merged into
// the WHERE clause of an UPDATE or DELETE on target,
// the WHERE clause of an INSERT ... ON CONFLICT DO UPDATE into target
// (qualified with the insert's alias or table name),
// and a COPY out of target,
// whose table source becomes SELECT <columns> FROM target WHERE pred.
func Inject(stmt ast.Statement, target Path, pred ast.Expr) error {
	if pred == nil {
		return ErrNilPredicate
	}
	if stmt == nil {
		return nil
	}
	if tooDeep(stmt, MaxDepth) {
		return errors.Wrapf(ErrTooDeep, "filtering %s", target)
	}
	in := &injector{
		target: target,
		pred:   pred,
		added:  make(map[ast.Node]bool),
	}
	ast.Walk(in, stmt)
	return nil
}

type injector struct {
	target Path
	pred   ast.Expr

	// added holds the predicate copies placed in the tree by this call,
	// which the walk must not descend into.
	added map[ast.Node]bool
}

func (in *injector) fresh() ast.Expr {
	p := ast.Clone(in.pred)
	in.added[p] = true
	return p
}

func (in *injector) Visit(node ast.Node) ast.Visitor {
	if node == nil || in.added[node] {
		return nil
	}

	switch n := node.(type) {
	case *ast.Select:
		if in.target.Matches(n) {
			n.Selection = merge(n.Selection, in.fresh())
		}

	case *ast.Update:
		if in.target.Matches(n.Table) || in.target.matchesAny(n.From) {
			n.Selection = merge(n.Selection, in.fresh())
		}

	case *ast.Delete:
		if in.target.matchesAnyName(n.Tables) || in.target.matchesAny(n.From) || in.target.matchesAny(n.Using) {
			n.Selection = merge(n.Selection, in.fresh())
		}

	case *ast.Insert:
		if oc, ok := n.On.(*ast.OnConflict); ok && !oc.DoNothing && in.target.MatchesName(n.Table) {
			qualifier := n.Table
			if n.Alias != nil {
				qualifier = ast.ObjectName{*n.Alias}
			}
			p := qualify(in.fresh(), qualifier)
			in.added[p] = true
			oc.Selection = merge(oc.Selection, p)
		}

	case *ast.Copy:
		if t, ok := n.Source.(*ast.CopyTable); ok {
			if in.target.MatchesName(t.Name) {
				n.Source = in.copyQuery(t)
			}
			return nil
		}
	}
	return in
}

// merge is the AND-merge of pred into an optional existing selection.
func merge(selection, pred ast.Expr) ast.Expr {
	if selection == nil {
		return pred
	}
	return &ast.BinaryOp{Left: selection, Op: ast.And, Right: pred}
}

// copyQuery builds the filtered query that replaces a COPY's table source.
func (in *injector) copyQuery(t *ast.CopyTable) *ast.Query {
	var projection []*ast.SelectItem
	for _, col := range t.Columns {
		projection = append(projection, &ast.SelectItem{Expr: &ast.Identifier{Name: col}})
	}
	if len(projection) == 0 {
		projection = []*ast.SelectItem{{Expr: &ast.Wildcard{}}}
	}
	return &ast.Query{
		Body: &ast.Select{
			Projection: projection,
			From:       []*ast.TableWithJoins{{Relation: &ast.Table{Name: t.Name}}},
			Selection:  in.fresh(),
		},
	}
}

// qualify prefixes the bare column references of a predicate with q.
// Subqueries are left alone.
func qualify(e ast.Expr, q ast.ObjectName) ast.Expr {
	switch e := e.(type) {
	case *ast.Identifier:
		parts := append(append([]ast.Ident{}, q...), e.Name)
		return &ast.CompoundIdentifier{Parts: parts}
	case *ast.BinaryOp:
		e.Left = qualify(e.Left, q)
		e.Right = qualify(e.Right, q)
	case *ast.UnaryOp:
		e.Expr = qualify(e.Expr, q)
	case *ast.Nested:
		e.Expr = qualify(e.Expr, q)
	case *ast.IsExpr:
		e.Expr = qualify(e.Expr, q)
	case *ast.IsDistinctFrom:
		e.Left = qualify(e.Left, q)
		e.Right = qualify(e.Right, q)
	case *ast.InList:
		e.Expr = qualify(e.Expr, q)
		for i, item := range e.List {
			e.List[i] = qualify(item, q)
		}
	case *ast.Between:
		e.Expr = qualify(e.Expr, q)
		e.Low = qualify(e.Low, q)
		e.High = qualify(e.High, q)
	case *ast.Like:
		e.Expr = qualify(e.Expr, q)
		e.Pattern = qualify(e.Pattern, q)
	case *ast.Cast:
		e.Expr = qualify(e.Expr, q)
	}
	return e
}

// tooDeep reports whether the tree under node is more than max levels deep.
// The walk stops at the limit, so it is bounded however deep the tree is.
func tooDeep(node ast.Node, max int) bool {
	m := &depthMeter{max: max}
	ast.Walk(m, node)
	return m.exceeded
}

type depthMeter struct {
	depth, max int
	exceeded   bool
}

func (m *depthMeter) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		m.depth--
		return nil
	}
	if m.exceeded || m.depth >= m.max {
		m.exceeded = true
		return nil
	}
	m.depth++
	return m
}
