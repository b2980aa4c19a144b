package filter

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
)

// ErrInvalidPath is returned by ParsePath for an empty name or an empty dotted segment.
var ErrInvalidPath = errors.New("invalid table path")

// Path names a table as an ordered list of lowercase segments,
// such as ["orders"] or ["public", "orders"].
//
// A Path matches a table reference only when the reference has exactly the
// same segments, compared case-insensitively.
// No schema or catalog default is applied:
// the path ["orders"] does not match the reference public.orders,
// and ["public", "orders"] does not match a bare orders.
type Path []string

// NewPath produces a Path from its segments, lowercasing each.
func NewPath(segments ...string) Path {
	p := make(Path, 0, len(segments))
	for _, s := range segments {
		p = append(p, strings.ToLower(s))
	}
	return p
}

// ParsePath splits a dotted name such as "public.orders" into a Path.
func ParsePath(name string) (Path, error) {
	segments := strings.Split(name, ".")
	for _, s := range segments {
		if s == "" {
			return nil, errors.Wrapf(ErrInvalidPath, "%q", name)
		}
	}
	return NewPath(segments...), nil
}

func (p Path) String() string { return strings.Join(p, ".") }

// MatchesName tells whether the table reference name denotes p.
func (p Path) MatchesName(name ast.ObjectName) bool {
	if len(name) != len(p) {
		return false
	}
	for i, ident := range name {
		if strings.ToLower(ident.Value) != p[i] {
			return false
		}
	}
	return true
}

// Matches tells whether node, a relation or a SELECT,
// draws rows directly from the table p.
// It does not look inside subqueries:
// a derived table, table function or UNNEST never matches,
// and a SELECT matches only through its own FROM list.
func (p Path) Matches(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.Table:
		return p.MatchesName(n.Name)

	case *ast.NestedJoin:
		return p.Matches(n.TableWithJoins)

	case *ast.Pivot:
		return n.Source != nil && p.Matches(n.Source)

	case *ast.TableWithJoins:
		if n == nil {
			return false
		}
		if n.Relation != nil && p.Matches(n.Relation) {
			return true
		}
		for _, j := range n.Joins {
			if j.Relation != nil && p.Matches(j.Relation) {
				return true
			}
		}

	case *ast.Select:
		return p.matchesAny(n.From)
	}
	return false
}

func (p Path) matchesAny(list []*ast.TableWithJoins) bool {
	for _, twj := range list {
		if p.Matches(twj) {
			return true
		}
	}
	return false
}

func (p Path) matchesAnyName(names []ast.ObjectName) bool {
	for _, name := range names {
		if p.MatchesName(name) {
			return true
		}
	}
	return false
}
