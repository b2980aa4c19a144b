package ast

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

func ident(name string) Expr { return &Identifier{Name: NewIdent(name)} }

func TestRenderPrecedence(t *testing.T) {
	a, b, c := ident("a"), ident("b"), ident("c")
	cases := []struct {
		expr Expr
		want string
	}{
		{&BinaryOp{Left: &BinaryOp{Left: a, Op: Or, Right: b}, Op: And, Right: c}, "(a OR b) AND c"},
		{&BinaryOp{Left: a, Op: Or, Right: &BinaryOp{Left: b, Op: And, Right: c}}, "a OR b AND c"},
		{&BinaryOp{Left: &BinaryOp{Left: a, Op: Minus, Right: b}, Op: Minus, Right: c}, "a - b - c"},
		{&BinaryOp{Left: a, Op: Minus, Right: &BinaryOp{Left: b, Op: Minus, Right: c}}, "a - (b - c)"},
		{&BinaryOp{Left: a, Op: Multiply, Right: &BinaryOp{Left: b, Op: Plus, Right: c}}, "a * (b + c)"},
		{&BinaryOp{Left: a, Op: Eq, Right: &BinaryOp{Left: b, Op: Eq, Right: c}}, "a = (b = c)"},
		{&UnaryOp{Op: Not, Expr: &BinaryOp{Left: a, Op: Or, Right: b}}, "NOT (a OR b)"},
		{&UnaryOp{Op: Not, Expr: &BinaryOp{Left: a, Op: Eq, Right: b}}, "NOT a = b"},
		{&UnaryOp{Op: UnaryMinus, Expr: &UnaryOp{Op: UnaryMinus, Expr: a}}, "-(-a)"},
		{&UnaryOp{Op: UnaryMinus, Expr: NumberValue("-1")}, "-(-1)"},
		{&UnaryOp{Op: UnaryMinus, Expr: &BinaryOp{Left: a, Op: Plus, Right: b}}, "-(a + b)"},
		{&Cast{Kind: DoubleColon, Expr: &BinaryOp{Left: a, Op: Plus, Right: b}, Type: DataType{Name: "INTEGER"}}, "(a + b)::INTEGER"},
		{&Cast{Kind: DoubleColon, Expr: NumberValue("-1"), Type: DataType{Name: "INTEGER"}}, "(-1)::INTEGER"},
		{&Cast{Kind: CastFunc, Expr: &BinaryOp{Left: a, Op: Plus, Right: b}, Type: DataType{Name: "TEXT", Array: 1}}, "CAST(a + b AS TEXT[])"},
		{&IsExpr{Expr: &BinaryOp{Left: a, Op: And, Right: b}, Not: true, Test: "NULL"}, "(a AND b) IS NOT NULL"},
		{&BinaryOp{Left: &BinaryOp{Left: a, Op: And, Right: b}, Op: And, Right: &BinaryOp{Left: b, Op: Or, Right: c}}, "a AND b AND (b OR c)"},
	}
	for _, c := range cases {
		if got := c.expr.String(); got != c.want {
			t.Errorf("got %s, want %s\n%s", got, c.want, spew.Sdump(c.expr))
		}
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    *Value
		want string
	}{
		{StringValue("it's", false), `'it''s'`},
		{StringValue(`a\b`, false), `'a\b'`},
		{StringValue("it's", true), `'it\'s'`},
		{StringValue("a\\b\n\t\x00", true), `'a\\b\n\t\0'`},
		{StringValue(`x\%y\_`, true), `'x\%y\_'`},
		{&Value{Kind: EscapedString, Val: "a'b\n"}, `E'a\'b\n'`},
		{&Value{Kind: DoubleQuotedString, Val: `say "hi"`, Backslash: true}, `"say \"hi\""`},
		{&Value{Kind: DollarQuotedString, Val: "it's", Tag: "q"}, "$q$it's$q$"},
		{&Value{Kind: HexString, Val: "ff"}, "X'ff'"},
		{&Value{Kind: Boolean, Val: "true"}, "TRUE"},
		{&Value{Kind: Null}, "NULL"},
		{&Value{Kind: Placeholder, Val: "$1"}, "$1"},
		{NumberValue("1.5e3"), "1.5e3"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("got %s, want %s", got, c.want)
		}
	}
}

func TestIdentString(t *testing.T) {
	cases := []struct {
		ident Ident
		want  string
	}{
		{NewIdent("abc"), "abc"},
		{Ident{Value: "My Table", Quote: '"'}, `"My Table"`},
		{Ident{Value: `a"b`, Quote: '"'}, `"a""b"`},
		{Ident{Value: "a`b", Quote: '`'}, "`a``b`"},
		{Ident{Value: "proj.ds.t", Quote: '`'}, "`proj.ds.t`"},
	}
	for _, c := range cases {
		if got := c.ident.String(); got != c.want {
			t.Errorf("got %s, want %s", got, c.want)
		}
	}
	if got := NewObjectName("public", "orders").String(); got != "public.orders" {
		t.Errorf("got %s, want public.orders", got)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":           Postgres,
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		"mysql":      MySQL,
		" BigQuery ": BigQuery,
		"generic":    Generic,
	}
	for name, want := range cases {
		got, err := ParseDialect(name)
		if err != nil {
			t.Errorf("%q: %s", name, err)
			continue
		}
		if got != want {
			t.Errorf("%q: got %s, want %s", name, got, want)
		}
		if again, _ := ParseDialect(got.String()); again != got {
			t.Errorf("%s does not parse back to itself", got)
		}
	}
	if _, err := ParseDialect("oracle"); errors.Cause(err) != ErrUnknownDialect {
		t.Errorf("got error %v, want ErrUnknownDialect", err)
	}
}

func testQuery() *Query {
	return &Query{
		Body: &Select{
			Projection: []*SelectItem{{Expr: ident("a")}},
			From: []*TableWithJoins{{
				Relation: &Table{Name: NewObjectName("t"), Alias: &TableAlias{Name: NewIdent("x")}},
			}},
			Selection: &BinaryOp{Left: ident("a"), Op: Eq, Right: NumberValue("1")},
		},
	}
}

func TestClone(t *testing.T) {
	orig := testQuery()
	const want = "SELECT a FROM t AS x WHERE a = 1"
	if got := orig.String(); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	cpy := Clone(orig)
	if cpy == orig {
		t.Fatal("clone is the original pointer")
	}
	sel := cpy.Body.(*Select)
	sel.Selection = &BinaryOp{Left: sel.Selection, Op: And, Right: ident("b")}
	sel.From[0].Relation.(*Table).Name[0].Value = "u"
	sel.From[0].Relation.(*Table).Alias.Name.Value = "y"
	sel.Projection = append(sel.Projection, &SelectItem{Expr: ident("c")})

	if got := orig.String(); got != want {
		t.Errorf("original changed to %s", got)
	}
	if got := cpy.String(); got != "SELECT a, c FROM u AS y WHERE a = 1 AND b" {
		t.Errorf("got clone %s", got)
	}

	var stmt Statement
	if Clone(stmt) != nil {
		t.Error("clone of nil statement is not nil")
	}
	stmt = orig
	if got := Clone(stmt).String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestInspect(t *testing.T) {
	var idents, tables int
	Inspect(testQuery(), func(node Node) bool {
		switch node.(type) {
		case *Identifier:
			idents++
		case *Table:
			tables++
		}
		return true
	})
	if idents != 2 || tables != 1 {
		t.Errorf("got %d identifiers and %d tables, want 2 and 1", idents, tables)
	}

	// Returning false prunes the subtree.
	var visited int
	Inspect(testQuery(), func(node Node) bool {
		if node == nil {
			return false
		}
		visited++
		_, isSelect := node.(*Select)
		return !isSelect
	})
	if visited != 2 {
		t.Errorf("visited %d nodes, want 2", visited)
	}
}

type strayNode struct{}

func (strayNode) node()          {}
func (strayNode) String() string { return "stray" }

func TestWalkUnknownNode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Walk did not panic on an unknown node type")
		}
	}()
	Inspect(strayNode{}, func(Node) bool { return true })
}
