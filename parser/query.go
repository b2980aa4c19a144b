package parser

import (
	"strings"

	"github.com/bobg/rowfilter/ast"
)

// isQueryStart reports whether the token n ahead begins a query.
func (s *state) isQueryStart(n int) bool {
	return s.isKeywordN(n, "SELECT") || s.isKeywordN(n, "WITH") || s.isKeywordN(n, "VALUES") || s.isTableQuery(n)
}

func (s *state) parseQuery() (*ast.Query, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	q := &ast.Query{}
	if s.parseKeyword("WITH") {
		with, err := s.parseWith()
		if err != nil {
			return nil, err
		}
		q.With = with

		// Postgres allows a data-modifying statement as the main body.
		var (
			body ast.SetExpr
			err2 error
		)
		switch {
		case s.isKeyword("INSERT"):
			body, err2 = s.parseInsert()
		case s.isKeyword("UPDATE"):
			body, err2 = s.parseUpdate()
		case s.isKeyword("DELETE"):
			body, err2 = s.parseDelete()
		}
		if err2 != nil {
			return nil, err2
		}
		if body != nil {
			q.Body = body
			return q, nil
		}
	}

	body, err := s.parseSetExpr(0)
	if err != nil {
		return nil, err
	}
	q.Body = body

	if s.parseKeywords("ORDER", "BY") {
		if q.OrderBy, err = s.parseOrderByList(); err != nil {
			return nil, err
		}
	}
	if err := s.parseLimitOffset(q); err != nil {
		return nil, err
	}
	if s.isKeyword("FETCH") {
		if q.Fetch, err = s.parseFetch(); err != nil {
			return nil, err
		}
	}
	q.Locks, err = s.parseLocks()
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *state) parseWith() (*ast.With, error) {
	with := &ast.With{Recursive: s.parseKeyword("RECURSIVE")}
	ctes, err := parseCommaList(s, s.parseCTE)
	if err != nil {
		return nil, err
	}
	with.CTEs = ctes
	return with, nil
}

func (s *state) parseCTE() (*ast.CTE, error) {
	name, err := s.parseIdent()
	if err != nil {
		return nil, err
	}
	cte := &ast.CTE{Name: name}
	if s.isPunct("(") {
		if cte.Columns, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	}
	if err := s.expectKeyword("AS"); err != nil {
		return nil, err
	}
	switch {
	case s.parseKeyword("MATERIALIZED"):
		cte.Materialized = "MATERIALIZED"
	case s.parseKeywords("NOT", "MATERIALIZED"):
		cte.Materialized = "NOT MATERIALIZED"
	}
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}

	var body ast.SetExpr
	switch {
	case s.isKeyword("INSERT"):
		body, err = s.parseInsert()
	case s.isKeyword("UPDATE"):
		body, err = s.parseUpdate()
	case s.isKeyword("DELETE"):
		body, err = s.parseDelete()
	default:
		cte.Query, err = s.parseQuery()
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		cte.Query = &ast.Query{Body: body}
	}
	return cte, s.expectPunct(")")
}

func setOperatorPrecedence(tok token) (ast.SetOperator, int) {
	switch {
	case isKeyword(tok, "UNION"):
		return ast.Union, 10
	case isKeyword(tok, "EXCEPT"):
		return ast.Except, 10
	case isKeyword(tok, "INTERSECT"):
		return ast.Intersect, 20
	}
	return "", 0
}

func (s *state) parseSetExpr(minPrec int) (ast.SetExpr, error) {
	left, err := s.parseSetPrimary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec := setOperatorPrecedence(s.peek())
		if prec == 0 || prec <= minPrec {
			return left, nil
		}
		s.next()
		quantifier := s.parseOneOf("ALL", "DISTINCT")
		right, err := s.parseSetExpr(prec)
		if err != nil {
			return nil, err
		}
		left = &ast.SetOperation{Left: left, Op: op, Quantifier: quantifier, Right: right}
	}
}

func (s *state) parseSetPrimary() (ast.SetExpr, error) {
	switch {
	case s.isKeyword("SELECT"):
		return s.parseSelect()
	case s.isKeyword("VALUES"):
		return s.parseValues()
	case s.isTableQuery(0):
		return s.parseTableQuery()
	case s.consumePunct("("):
		q, err := s.parseQuery()
		if err != nil {
			return nil, err
		}
		return q, s.expectPunct(")")
	}
	return nil, s.unexpected("SELECT, VALUES or a parenthesized query")
}

// isTableQuery reports whether TABLE name, short for SELECT * FROM name, is at token n.
func (s *state) isTableQuery(n int) bool {
	if (s.d != ast.Postgres && s.d != ast.Generic) || !s.isKeywordN(n, "TABLE") {
		return false
	}
	next := s.peekN(n + 1)
	return next.kind == tokWord && (!isReserved(next) || isKeyword(next, "ONLY"))
}

// parseTableQuery parses TABLE [ONLY] name as the equivalent SELECT.
func (s *state) parseTableQuery() (*ast.Select, error) {
	s.next() // TABLE
	only := s.parseKeyword("ONLY")
	name, err := s.parseObjectName()
	if err != nil {
		return nil, err
	}
	table := &ast.Table{Only: only, Name: name}
	if !only && s.consumePunct("*") {
		table.Descendants = true
	}
	return &ast.Select{
		Projection: []*ast.SelectItem{{Expr: &ast.Wildcard{}}},
		From:       []*ast.TableWithJoins{{Relation: table}},
	}, nil
}

func (s *state) parseSelect() (*ast.Select, error) {
	if err := s.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	sel := &ast.Select{}
	var err error
	switch {
	case s.parseKeyword("ALL"):
	case s.parseKeyword("DISTINCT"):
		sel.Distinct = true
		if s.parseKeyword("ON") {
			if err := s.expectPunct("("); err != nil {
				return nil, err
			}
			if sel.DistinctOn, err = parseCommaList(s, s.parseExpr); err != nil {
				return nil, err
			}
			if err := s.expectPunct(")"); err != nil {
				return nil, err
			}
		}
	}

	if sel.Projection, err = parseCommaList(s, s.parseSelectItem); err != nil {
		return nil, err
	}
	if s.parseKeyword("FROM") {
		if sel.From, err = parseCommaList(s, s.parseTableWithJoins); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("WHERE") {
		if sel.Selection, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	if s.parseKeywords("GROUP", "BY") {
		if sel.GroupBy, err = parseCommaList(s, s.parseExpr); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("HAVING") {
		if sel.Having, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("WINDOW") {
		if sel.NamedWindows, err = parseCommaList(s, s.parseNamedWindow); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("QUALIFY") {
		if sel.Qualify, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func (s *state) parseSelectItem() (*ast.SelectItem, error) {
	expr, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	item := &ast.SelectItem{Expr: expr}
	if _, ok := expr.(*ast.Wildcard); ok {
		return item, nil
	}
	alias, ok, err := s.parseOptionalAlias()
	if err != nil {
		return nil, err
	}
	if ok {
		item.Alias = &alias
	}
	return item, nil
}

// parseOptionalAlias parses "[AS] name".
// Without AS, a reserved word is not taken as an alias.
func (s *state) parseOptionalAlias() (ast.Ident, bool, error) {
	if s.parseKeyword("AS") {
		ident, err := s.parseIdent()
		return ident, err == nil, err
	}
	if tok := s.peek(); tok.kind == tokWord && !isReserved(tok) {
		ident, err := s.parseIdent()
		return ident, err == nil, err
	}
	return ast.Ident{}, false, nil
}

func (s *state) parseTableAlias() (*ast.TableAlias, error) {
	name, ok, err := s.parseOptionalAlias()
	if err != nil || !ok {
		return nil, err
	}
	alias := &ast.TableAlias{Name: name}
	if s.isPunct("(") {
		if alias.Columns, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	}
	return alias, nil
}

func (s *state) parseNamedWindow() (*ast.NamedWindow, error) {
	name, err := s.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("AS"); err != nil {
		return nil, err
	}
	spec, err := s.parseWindowSpec()
	if err != nil {
		return nil, err
	}
	return &ast.NamedWindow{Name: name, Spec: spec}, nil
}

func (s *state) parseValues() (*ast.Values, error) {
	if err := s.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	values := &ast.Values{}
	rows, err := parseCommaList(s, func() ([]ast.Expr, error) {
		if s.parseKeyword("ROW") {
			values.Explicit = true
		}
		if err := s.expectPunct("("); err != nil {
			return nil, err
		}
		if s.consumePunct(")") {
			return []ast.Expr{}, nil
		}
		row, err := parseCommaList(s, s.parseExpr)
		if err != nil {
			return nil, err
		}
		return row, s.expectPunct(")")
	})
	if err != nil {
		return nil, err
	}
	values.Rows = rows
	return values, nil
}

func (s *state) parseOrderByList() ([]*ast.OrderByExpr, error) {
	return parseCommaList(s, s.parseOrderByExpr)
}

func (s *state) parseOrderByExpr() (*ast.OrderByExpr, error) {
	expr, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	o := &ast.OrderByExpr{Expr: expr}
	switch {
	case s.parseKeyword("ASC"):
		asc := true
		o.Asc = &asc
	case s.parseKeyword("DESC"):
		asc := false
		o.Asc = &asc
	}
	switch {
	case s.parseKeywords("NULLS", "FIRST"):
		first := true
		o.NullsFirst = &first
	case s.parseKeywords("NULLS", "LAST"):
		first := false
		o.NullsFirst = &first
	}
	return o, nil
}

// parseLimitOffset parses LIMIT and OFFSET in either order,
// and MySQL's "LIMIT offset, count".
func (s *state) parseLimitOffset(q *ast.Query) error {
	for {
		switch {
		case q.Limit == nil && s.parseKeyword("LIMIT"):
			if s.parseKeyword("ALL") {
				continue
			}
			limit, err := s.parseExpr()
			if err != nil {
				return err
			}
			q.Limit = limit
			if s.d == ast.MySQL && q.Offset == nil && s.consumePunct(",") {
				q.Offset = limit
				if q.Limit, err = s.parseExpr(); err != nil {
					return err
				}
			}

		case q.Offset == nil && s.parseKeyword("OFFSET"):
			offset, err := s.parseExpr()
			if err != nil {
				return err
			}
			q.Offset = offset
			_ = s.parseOneOf("ROWS", "ROW")

		default:
			return nil
		}
	}
}

func (s *state) parseFetch() (*ast.Fetch, error) {
	if err := s.expectKeyword("FETCH"); err != nil {
		return nil, err
	}
	if s.parseOneOf("FIRST", "NEXT") == "" {
		return nil, s.unexpected("FIRST or NEXT")
	}
	f := &ast.Fetch{}
	if !s.isKeyword("ROW") && !s.isKeyword("ROWS") {
		quantity, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		f.Quantity = quantity
		f.Percent = s.parseKeyword("PERCENT")
	}
	if s.parseOneOf("ROWS", "ROW") == "" {
		return nil, s.unexpected("ROW or ROWS")
	}
	switch {
	case s.parseKeyword("ONLY"):
	case s.parseKeywords("WITH", "TIES"):
		f.WithTies = true
	default:
		return nil, s.unexpected("ONLY or WITH TIES")
	}
	return f, nil
}

// parseLocks parses locking clauses into their normalized text.
func (s *state) parseLocks() ([]string, error) {
	var locks []string
	for {
		var words []string
		switch {
		case s.parseKeywords("LOCK", "IN", "SHARE", "MODE"):
			locks = append(locks, "LOCK IN SHARE MODE")
			continue
		case s.parseKeywords("FOR", "UPDATE"):
			words = []string{"FOR UPDATE"}
		case s.parseKeywords("FOR", "SHARE"):
			words = []string{"FOR SHARE"}
		case s.parseKeywords("FOR", "NO", "KEY", "UPDATE"):
			words = []string{"FOR NO KEY UPDATE"}
		case s.parseKeywords("FOR", "KEY", "SHARE"):
			words = []string{"FOR KEY SHARE"}
		default:
			return locks, nil
		}
		if s.parseKeyword("OF") {
			names, err := parseCommaList(s, s.parseObjectName)
			if err != nil {
				return nil, err
			}
			parts := make([]string, 0, len(names))
			for _, n := range names {
				parts = append(parts, n.String())
			}
			words = append(words, "OF", strings.Join(parts, ", "))
		}
		switch {
		case s.parseKeyword("NOWAIT"):
			words = append(words, "NOWAIT")
		case s.parseKeywords("SKIP", "LOCKED"):
			words = append(words, "SKIP LOCKED")
		}
		locks = append(locks, strings.Join(words, " "))
	}
}

func (s *state) parseTableWithJoins() (*ast.TableWithJoins, error) {
	relation, err := s.parseTableFactor()
	if err != nil {
		return nil, err
	}
	twj := &ast.TableWithJoins{Relation: relation}
	for {
		join, err := s.parseJoin()
		if err != nil {
			return nil, err
		}
		if join == nil {
			return twj, nil
		}
		twj.Joins = append(twj.Joins, join)
	}
}

// parseJoin parses one join, or returns nil if no join follows.
func (s *state) parseJoin() (*ast.Join, error) {
	join := &ast.Join{Natural: s.parseKeyword("NATURAL")}
	switch {
	case s.parseKeyword("JOIN"), s.parseKeywords("INNER", "JOIN"):
		join.Operator = ast.InnerJoin
	case s.parseKeywords("LEFT", "JOIN"), s.parseKeywords("LEFT", "OUTER", "JOIN"):
		join.Operator = ast.LeftJoin
	case s.parseKeywords("RIGHT", "JOIN"), s.parseKeywords("RIGHT", "OUTER", "JOIN"):
		join.Operator = ast.RightJoin
	case s.parseKeywords("FULL", "JOIN"), s.parseKeywords("FULL", "OUTER", "JOIN"):
		join.Operator = ast.FullJoin
	case s.parseKeywords("CROSS", "JOIN"):
		join.Operator = ast.CrossJoin
	case s.parseKeywords("CROSS", "APPLY"):
		join.Operator = ast.CrossApply
	case s.parseKeywords("OUTER", "APPLY"):
		join.Operator = ast.OuterApply
	default:
		if join.Natural {
			return nil, s.unexpected("JOIN")
		}
		return nil, nil
	}

	relation, err := s.parseTableFactor()
	if err != nil {
		return nil, err
	}
	join.Relation = relation

	switch join.Operator {
	case ast.CrossJoin, ast.CrossApply, ast.OuterApply:
		return join, nil
	}
	if join.Natural {
		return join, nil
	}
	switch {
	case s.parseKeyword("ON"):
		if join.On, err = s.parseExpr(); err != nil {
			return nil, err
		}
	case s.parseKeyword("USING"):
		if join.Using, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	default:
		return nil, s.unexpected("ON or USING")
	}
	return join, nil
}

func (s *state) parseTableFactor() (ast.TableFactor, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	factor, err := s.parseTableFactorBody()
	if err != nil {
		return nil, err
	}
	for s.isKeyword("PIVOT") && isPunct(s.peekN(1), "(") {
		if factor, err = s.parsePivot(factor); err != nil {
			return nil, err
		}
	}
	return factor, nil
}

func (s *state) parseTableFactorBody() (ast.TableFactor, error) {
	switch {
	case s.parseKeyword("LATERAL"):
		if !s.isPunct("(") {
			return nil, s.unexpected(`"(" after LATERAL`)
		}
		return s.parseDerived(true)

	case s.isPunct("("):
		if s.isQueryStart(1) {
			return s.parseDerived(false)
		}
		// Either a parenthesized join or a parenthesized query such as ((SELECT ...) UNION ...).
		save := s.pos
		nested, err := s.parseNestedJoin()
		if err == nil {
			return nested, nil
		}
		if err == ErrRecursionLimitExceeded {
			return nil, err
		}
		s.pos = save
		return s.parseDerived(false)

	case s.isKeyword("UNNEST") && isPunct(s.peekN(1), "("):
		return s.parseUnnest()

	case s.isKeyword("TABLE") && isPunct(s.peekN(1), "("):
		s.next()
		s.next()
		expr, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := s.expectPunct(")"); err != nil {
			return nil, err
		}
		alias, err := s.parseTableAlias()
		if err != nil {
			return nil, err
		}
		return &ast.TableFunction{Expr: expr, Alias: alias}, nil
	}

	only := s.parseKeyword("ONLY")
	name, err := s.parseObjectName()
	if err != nil {
		return nil, err
	}
	table := &ast.Table{Only: only, Name: name}
	if !only && s.consumePunct("*") {
		table.Descendants = true
	}
	if s.consumePunct("(") {
		table.Args = []*ast.FunctionArg{}
		if !s.consumePunct(")") {
			if table.Args, err = parseCommaList(s, s.parseFunctionArg); err != nil {
				return nil, err
			}
			if err := s.expectPunct(")"); err != nil {
				return nil, err
			}
		}
	}
	if table.Alias, err = s.parseTableAlias(); err != nil {
		return nil, err
	}
	if s.isKeyword("WITH") && isPunct(s.peekN(1), "(") {
		s.next()
		s.next()
		if table.Hints, err = parseCommaList(s, s.parseExpr); err != nil {
			return nil, err
		}
		if err := s.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (s *state) parseDerived(lateral bool) (*ast.Derived, error) {
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	q, err := s.parseQuery()
	if err != nil {
		return nil, err
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	alias, err := s.parseTableAlias()
	if err != nil {
		return nil, err
	}
	return &ast.Derived{Lateral: lateral, Subquery: q, Alias: alias}, nil
}

func (s *state) parseNestedJoin() (*ast.NestedJoin, error) {
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	twj, err := s.parseTableWithJoins()
	if err != nil {
		return nil, err
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	alias, err := s.parseTableAlias()
	if err != nil {
		return nil, err
	}
	return &ast.NestedJoin{TableWithJoins: twj, Alias: alias}, nil
}

func (s *state) parseUnnest() (*ast.Unnest, error) {
	s.next() // UNNEST
	s.next() // (
	exprs, err := parseCommaList(s, s.parseExpr)
	if err != nil {
		return nil, err
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	u := &ast.Unnest{ArrayExprs: exprs}
	u.WithOrdinality = s.parseKeywords("WITH", "ORDINALITY")
	if u.Alias, err = s.parseTableAlias(); err != nil {
		return nil, err
	}
	if s.parseKeywords("WITH", "OFFSET") {
		u.WithOffset = true
		alias, ok, err := s.parseOptionalAlias()
		if err != nil {
			return nil, err
		}
		if ok {
			u.WithOffsetAlias = &alias
		}
	}
	return u, nil
}

func (s *state) parsePivot(source ast.TableFactor) (*ast.Pivot, error) {
	s.next() // PIVOT
	s.next() // (
	agg, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("FOR"); err != nil {
		return nil, err
	}
	col, err := s.parseObjectName()
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("IN"); err != nil {
		return nil, err
	}
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	values, err := parseCommaList(s, s.parseExpr)
	if err != nil {
		return nil, err
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	alias, err := s.parseTableAlias()
	if err != nil {
		return nil, err
	}
	return &ast.Pivot{
		Source:            source,
		AggregateFunction: agg,
		ValueColumn:       col,
		PivotValues:       values,
		Alias:             alias,
	}, nil
}
