package parser

import (
	"strings"

	"github.com/bobg/rowfilter/ast"
)

func (s *state) parseExpr() (ast.Expr, error) {
	return s.parseSubexpr(0)
}

// parseSubexpr parses an expression whose operators all bind tighter than minPrec.
func (s *state) parseSubexpr(minPrec int) (ast.Expr, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	left, err := s.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		prec := s.nextPrecedence()
		if prec <= minPrec {
			return left, nil
		}
		if left, err = s.parseInfix(left, prec); err != nil {
			return nil, err
		}
	}
}

// binaryOperator maps an operator token to its meaning in the current dialect.
func (s *state) binaryOperator(text string) (ast.BinaryOperator, bool) {
	switch text {
	case "+", "-", "*", "/", "%", ">", "<", ">=", "<=", "=", "<>", "!=", "<=>", "|", "&", "^", "<<", ">>":
		return ast.BinaryOperator(text), true
	case "||":
		if s.d == ast.MySQL {
			return ast.Or, true
		}
		return ast.StringConcat, true
	case "&&":
		if s.d == ast.MySQL {
			return ast.And, true
		}
		return ast.Overlaps, true
	case "#", "~", "~*", "!~", "!~*", "@>", "<@", "@@", "->", "->>", "#>", "#>>":
		if s.d == ast.Postgres || s.d == ast.Generic {
			return ast.BinaryOperator(text), true
		}
	}
	return "", false
}

func (s *state) nextPrecedence() int {
	tok := s.peek()
	switch tok.kind {
	case tokWord:
		if tok.quote != 0 {
			return 0
		}
		switch strings.ToUpper(tok.text) {
		case "OR":
			return ast.PrecOr
		case "XOR":
			if s.d == ast.MySQL {
				return ast.PrecXor
			}
		case "AND":
			return ast.PrecAnd
		case "NOT":
			next := s.peekN(1)
			for _, kw := range []string{"IN", "LIKE", "ILIKE", "BETWEEN", "SIMILAR"} {
				if isKeyword(next, kw) {
					return ast.PrecCompare
				}
			}
		case "IS":
			return ast.PrecIs
		case "IN", "LIKE", "ILIKE", "BETWEEN", "SIMILAR":
			return ast.PrecCompare
		case "DIV", "MOD":
			if s.d == ast.MySQL {
				return ast.PrecMul
			}
		case "AT":
			if s.isKeywordN(1, "TIME") {
				return ast.PrecAtTimeZone
			}
		case "COLLATE":
			return ast.PrecPostfix
		}

	case tokPunct:
		if op, ok := s.binaryOperator(tok.text); ok {
			return op.Precedence()
		}
		if tok.text == "::" || tok.text == "[" {
			return ast.PrecPostfix
		}
	}
	return 0
}

func (s *state) parseInfix(left ast.Expr, prec int) (ast.Expr, error) {
	tok := s.next()
	if tok.kind == tokPunct {
		switch tok.text {
		case "::":
			typ, err := s.parseDataType()
			if err != nil {
				return nil, err
			}
			return &ast.Cast{Kind: ast.DoubleColon, Expr: left, Type: typ}, nil
		case "[":
			return s.parseArrayIndex(left)
		}
		op, _ := s.binaryOperator(tok.text)
		right, err := s.parseSubexpr(prec)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Left: left, Op: op, Right: right}, nil
	}

	kw := strings.ToUpper(tok.text)
	switch kw {
	case "OR", "AND", "XOR", "DIV", "MOD":
		op := ast.BinaryOperator(kw)
		if kw == "DIV" {
			op = ast.IntDiv
		}
		right, err := s.parseSubexpr(prec)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Left: left, Op: op, Right: right}, nil

	case "IS":
		return s.parseIs(left)

	case "AT":
		if err := s.expectKeywords("TIME", "ZONE"); err != nil {
			return nil, err
		}
		tz, err := s.parseSubexpr(ast.PrecAtTimeZone)
		if err != nil {
			return nil, err
		}
		return &ast.AtTimeZone{Timestamp: left, TimeZone: tz}, nil

	case "COLLATE":
		name, err := s.parseObjectName()
		if err != nil {
			return nil, err
		}
		return &ast.Collate{Expr: left, Collation: name}, nil
	}

	negated := kw == "NOT"
	if negated {
		kw = strings.ToUpper(s.next().text)
	}
	switch kw {
	case "IN":
		return s.parseIn(left, negated)

	case "BETWEEN":
		low, err := s.parseSubexpr(ast.PrecCompare)
		if err != nil {
			return nil, err
		}
		if err := s.expectKeyword("AND"); err != nil {
			return nil, err
		}
		high, err := s.parseSubexpr(ast.PrecCompare)
		if err != nil {
			return nil, err
		}
		return &ast.Between{Expr: left, Negated: negated, Low: low, High: high}, nil

	case "LIKE":
		return s.parseLike(left, negated, ast.LikeOp)
	case "ILIKE":
		return s.parseLike(left, negated, ast.ILikeOp)
	case "SIMILAR":
		if err := s.expectKeyword("TO"); err != nil {
			return nil, err
		}
		return s.parseLike(left, negated, ast.SimilarTo)
	}
	return nil, s.errorf("unexpected %s", tok)
}

func (s *state) parseIs(left ast.Expr) (ast.Expr, error) {
	not := s.parseKeyword("NOT")
	if test := s.parseOneOf("NULL", "TRUE", "FALSE", "UNKNOWN"); test != "" {
		return &ast.IsExpr{Expr: left, Not: not, Test: test}, nil
	}
	if s.parseKeywords("DISTINCT", "FROM") {
		right, err := s.parseSubexpr(ast.PrecIs)
		if err != nil {
			return nil, err
		}
		return &ast.IsDistinctFrom{Left: left, Not: not, Right: right}, nil
	}
	return nil, s.unexpected("NULL, TRUE, FALSE, UNKNOWN or DISTINCT FROM")
}

func (s *state) parseIn(left ast.Expr, negated bool) (ast.Expr, error) {
	if s.isKeyword("UNNEST") && isPunct(s.peekN(1), "(") {
		s.next()
		s.next()
		array, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.InUnnest{Expr: left, Negated: negated, Array: array}, s.expectPunct(")")
	}
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	if s.isQueryStart(0) {
		q, err := s.parseQuery()
		if err != nil {
			return nil, err
		}
		return &ast.InSubquery{Expr: left, Negated: negated, Subquery: q}, s.expectPunct(")")
	}
	list, err := parseCommaList(s, s.parseExpr)
	if err != nil {
		return nil, err
	}
	return &ast.InList{Expr: left, Negated: negated, List: list}, s.expectPunct(")")
}

func (s *state) parseLike(left ast.Expr, negated bool, kind ast.LikeKind) (ast.Expr, error) {
	pattern, err := s.parseSubexpr(ast.PrecCompare)
	if err != nil {
		return nil, err
	}
	like := &ast.Like{Expr: left, Negated: negated, Kind: kind, Pattern: pattern}
	if s.parseKeyword("ESCAPE") {
		if like.Escape, err = s.parseSubexpr(ast.PrecCompare); err != nil {
			return nil, err
		}
	}
	return like, nil
}

func (s *state) parseArrayIndex(left ast.Expr) (ast.Expr, error) {
	idx := &ast.ArrayIndex{Expr: left}
	for {
		e, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		idx.Indexes = append(idx.Indexes, e)
		if err := s.expectPunct("]"); err != nil {
			return nil, err
		}
		if !s.consumePunct("[") {
			return idx, nil
		}
	}
}

func (s *state) parsePrefix() (ast.Expr, error) {
	tok := s.peek()
	switch tok.kind {
	case tokNumber, tokPlaceholder:
		s.next()
		return tok.value(false), nil

	case tokString:
		s.next()
		return tok.value(s.d.BackslashEscapes()), nil

	case tokPunct:
		switch tok.text {
		case "-", "+", "~":
			s.next()
			operand, err := s.parseSubexpr(ast.PrecUnary)
			if err != nil {
				return nil, err
			}
			return &ast.UnaryOp{Op: ast.UnaryOperator(tok.text), Expr: operand}, nil

		case "!":
			if s.d != ast.MySQL {
				break
			}
			s.next()
			operand, err := s.parseSubexpr(ast.PrecUnary)
			if err != nil {
				return nil, err
			}
			return &ast.UnaryOp{Op: ast.Not, Expr: operand}, nil

		case "*":
			s.next()
			return &ast.Wildcard{}, nil

		case "(":
			return s.parseParenExpr()

		case "[":
			s.next()
			elems, err := s.parseExprsUntil("]")
			if err != nil {
				return nil, err
			}
			return &ast.Array{Elems: elems}, nil
		}

	case tokWord:
		if tok.quote != 0 {
			return s.parseIdentExpr()
		}
		return s.parseWordExpr()
	}
	return nil, s.unexpected("expression")
}

// parseExprsUntil parses a possibly empty comma-separated list and the closing punctuation.
func (s *state) parseExprsUntil(closing string) ([]ast.Expr, error) {
	if s.consumePunct(closing) {
		return []ast.Expr{}, nil
	}
	exprs, err := parseCommaList(s, s.parseExpr)
	if err != nil {
		return nil, err
	}
	return exprs, s.expectPunct(closing)
}

// parseParenExpr parses a scalar subquery, a nested expression or a tuple.
func (s *state) parseParenExpr() (ast.Expr, error) {
	if s.isQueryStart(1) {
		s.next()
		return s.parseSubqueryRest()
	}

	save := s.pos
	s.next()
	exprs, err := parseCommaList(s, s.parseExpr)
	if err == nil {
		err = s.expectPunct(")")
	}
	if err != nil {
		// ((SELECT ...) UNION (SELECT ...)) is a query, not an expression.
		if err == ErrRecursionLimitExceeded || !isPunct(s.toks[save+1], "(") {
			return nil, err
		}
		s.pos = save + 1
		return s.parseSubqueryRest()
	}

	if len(exprs) > 1 {
		return &ast.Tuple{Exprs: exprs}, nil
	}
	if s.d == ast.Postgres && s.isPunct(".") && s.peekN(1).kind == tokWord {
		s.next()
		key, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		return &ast.CompositeAccess{Expr: exprs[0], Key: key}, nil
	}
	return &ast.Nested{Expr: exprs[0]}, nil
}

// parseSubqueryRest parses "query)" after an opening parenthesis.
func (s *state) parseSubqueryRest() (ast.Expr, error) {
	q, err := s.parseQuery()
	if err != nil {
		return nil, err
	}
	return &ast.Subquery{Query: q}, s.expectPunct(")")
}

var typedStringTypes = map[string]bool{
	"DATE": true, "TIME": true, "TIMESTAMP": true, "TIMESTAMPTZ": true, "DATETIME": true,
	"JSON": true, "NUMERIC": true, "BIGNUMERIC": true,
}

var specialFunctions = map[string]bool{
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
	"LOCALTIME": true, "LOCALTIMESTAMP": true, "CURRENT_USER": true,
	"SESSION_USER": true, "CURRENT_ROLE": true, "CURRENT_CATALOG": true, "CURRENT_SCHEMA": true,
}

// parseWordExpr parses an expression starting with an unquoted word.
func (s *state) parseWordExpr() (ast.Expr, error) {
	tok := s.peek()
	upper := strings.ToUpper(tok.text)
	call := isPunct(s.peekN(1), "(")

	switch upper {
	case "NULL":
		s.next()
		return &ast.Value{Kind: ast.Null, Val: "NULL"}, nil

	case "TRUE", "FALSE":
		s.next()
		return &ast.Value{Kind: ast.Boolean, Val: upper}, nil

	case "DEFAULT":
		if !call {
			s.next()
			return &ast.Identifier{Name: ast.NewIdent("DEFAULT")}, nil
		}

	case "NOT":
		s.next()
		if s.isKeyword("EXISTS") && isPunct(s.peekN(1), "(") {
			return s.parseExists(true)
		}
		operand, err := s.parseSubexpr(ast.PrecNot)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: ast.Not, Expr: operand}, nil

	case "EXISTS":
		if call {
			return s.parseExists(false)
		}

	case "CASE":
		return s.parseCase()

	case "CAST", "TRY_CAST", "SAFE_CAST":
		if call {
			return s.parseCast(upper)
		}

	case "EXTRACT":
		if call {
			return s.parseExtract()
		}

	case "POSITION":
		if call {
			return s.parsePosition()
		}

	case "SUBSTRING":
		if call {
			return s.parseSubstring()
		}

	case "TRIM":
		if call {
			return s.parseTrim()
		}

	case "OVERLAY":
		if call {
			return s.parseOverlay()
		}

	case "INTERVAL":
		return s.parseInterval()

	case "ARRAY":
		if isPunct(s.peekN(1), "[") {
			s.next()
			s.next()
			elems, err := s.parseExprsUntil("]")
			if err != nil {
				return nil, err
			}
			return &ast.Array{Elems: elems, Named: true}, nil
		}
		if call && s.isQueryStart(2) {
			s.next()
			s.next()
			q, err := s.parseQuery()
			if err != nil {
				return nil, err
			}
			return &ast.ArraySubquery{Query: q}, s.expectPunct(")")
		}

	case "ANY", "SOME", "ALL":
		if call {
			return s.parseAnyOp(upper == "ALL")
		}

	case "LISTAGG":
		if call {
			return s.parseListAgg()
		}

	case "GROUPING":
		if s.isKeywordN(1, "SETS") {
			s.next()
			s.next()
			sets, err := s.parseSets()
			if err != nil {
				return nil, err
			}
			return &ast.GroupingSets{Sets: sets}, nil
		}

	case "CUBE", "ROLLUP":
		if call {
			s.next()
			sets, err := s.parseSets()
			if err != nil {
				return nil, err
			}
			if upper == "CUBE" {
				return &ast.Cube{Sets: sets}, nil
			}
			return &ast.Rollup{Sets: sets}, nil
		}
	}

	if typedStringTypes[upper] && s.peekN(1).kind == tokString {
		s.next()
		str := s.next()
		return &ast.TypedString{Type: ast.DataType{Name: upper}, Value: str.value(s.d.BackslashEscapes())}, nil
	}
	if specialFunctions[upper] && !call {
		s.next()
		return &ast.Function{Name: ast.NewObjectName(upper), Special: true}, nil
	}
	if isReserved(tok) && !(call && callable[upper]) {
		return nil, s.errorf("unexpected keyword %s", upper)
	}
	return s.parseIdentExpr()
}

// parseIdentExpr parses a column reference, a qualified wildcard or a function call.
func (s *state) parseIdentExpr() (ast.Expr, error) {
	var parts []ast.Ident
	for {
		ident, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		parts = append(parts, ident)
		if !s.isPunct(".") {
			break
		}
		next := s.peekN(1)
		if isPunct(next, "*") {
			s.next()
			s.next()
			return &ast.Wildcard{Qualifier: parts}, nil
		}
		if next.kind != tokWord {
			break
		}
		s.next()
	}
	if s.isPunct("(") {
		return s.parseFunction(parts)
	}
	if len(parts) == 1 {
		return &ast.Identifier{Name: parts[0]}, nil
	}
	return &ast.CompoundIdentifier{Parts: parts}, nil
}

func (s *state) parseFunction(name ast.ObjectName) (ast.Expr, error) {
	s.next() // (
	f := &ast.Function{Name: name}
	var (
		limit ast.Expr
		err   error
	)
	if !s.isPunct(")") {
		f.Distinct = s.parseKeyword("DISTINCT")
		if f.Args, err = parseCommaList(s, s.parseFunctionArg); err != nil {
			return nil, err
		}
		if s.parseKeywords("ORDER", "BY") {
			if f.OrderBy, err = s.parseOrderByList(); err != nil {
				return nil, err
			}
		}
		if s.parseKeyword("LIMIT") {
			if limit, err = s.parseExpr(); err != nil {
				return nil, err
			}
		}
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}

	if s.isKeyword("WITHIN") {
		if f.WithinGroup, err = s.parseWithinGroup(); err != nil {
			return nil, err
		}
	}
	if s.isKeyword("FILTER") && isPunct(s.peekN(1), "(") {
		s.next()
		s.next()
		if err := s.expectKeyword("WHERE"); err != nil {
			return nil, err
		}
		if f.Filter, err = s.parseExpr(); err != nil {
			return nil, err
		}
		if err := s.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("OVER") {
		if s.isPunct("(") {
			if f.Over, err = s.parseWindowSpec(); err != nil {
				return nil, err
			}
		} else {
			ref, err := s.parseIdent()
			if err != nil {
				return nil, err
			}
			f.OverRef = &ref
		}
	}

	if len(name) == 1 && strings.EqualFold(name[0].Value, "ARRAY_AGG") && name[0].Quote == 0 &&
		len(f.Args) == 1 && f.Args[0].Name == nil &&
		f.WithinGroup == nil && f.Filter == nil && f.Over == nil && f.OverRef == nil {
		return &ast.ArrayAgg{Distinct: f.Distinct, Expr: f.Args[0].Arg, OrderBy: f.OrderBy, Limit: limit}, nil
	}
	if limit != nil {
		return nil, s.errorf("LIMIT inside a call is only supported for ARRAY_AGG")
	}
	return f, nil
}

func (s *state) parseFunctionArg() (*ast.FunctionArg, error) {
	if s.peek().kind == tokWord && isPunct(s.peekN(1), "=>") {
		name, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		s.next()
		arg, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionArg{Name: &name, Arg: arg}, nil
	}
	arg, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionArg{Arg: arg}, nil
}

func (s *state) parseWithinGroup() ([]*ast.OrderByExpr, error) {
	if err := s.expectKeywords("WITHIN", "GROUP"); err != nil {
		return nil, err
	}
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	if err := s.expectKeywords("ORDER", "BY"); err != nil {
		return nil, err
	}
	list, err := s.parseOrderByList()
	if err != nil {
		return nil, err
	}
	return list, s.expectPunct(")")
}

func (s *state) parseWindowSpec() (*ast.WindowSpec, error) {
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	spec := &ast.WindowSpec{}
	if tok := s.peek(); tok.kind == tokWord &&
		!isKeyword(tok, "PARTITION") && !isKeyword(tok, "ORDER") &&
		!isKeyword(tok, "ROWS") && !isKeyword(tok, "RANGE") && !isKeyword(tok, "GROUPS") {
		ref, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		spec.Ref = &ref
	}
	var err error
	if s.parseKeywords("PARTITION", "BY") {
		if spec.PartitionBy, err = parseCommaList(s, s.parseExpr); err != nil {
			return nil, err
		}
	}
	if s.parseKeywords("ORDER", "BY") {
		if spec.OrderBy, err = s.parseOrderByList(); err != nil {
			return nil, err
		}
	}
	if units := s.parseOneOf("ROWS", "RANGE", "GROUPS"); units != "" {
		frame := &ast.WindowFrame{Units: units}
		if s.parseKeyword("BETWEEN") {
			if frame.Start, err = s.parseFrameBound(); err != nil {
				return nil, err
			}
			if err := s.expectKeyword("AND"); err != nil {
				return nil, err
			}
			end, err := s.parseFrameBound()
			if err != nil {
				return nil, err
			}
			frame.End = &end
		} else if frame.Start, err = s.parseFrameBound(); err != nil {
			return nil, err
		}
		spec.Frame = frame
	}
	return spec, s.expectPunct(")")
}

func (s *state) parseFrameBound() (ast.FrameBound, error) {
	if s.parseKeywords("CURRENT", "ROW") {
		return ast.FrameBound{Bound: "CURRENT ROW"}, nil
	}
	var b ast.FrameBound
	if !s.parseKeyword("UNBOUNDED") {
		offset, err := s.parseSubexpr(ast.PrecAnd)
		if err != nil {
			return b, err
		}
		b.Offset = offset
	}
	if b.Bound = s.parseOneOf("PRECEDING", "FOLLOWING"); b.Bound == "" {
		return b, s.unexpected("PRECEDING or FOLLOWING")
	}
	return b, nil
}

func (s *state) parseExists(negated bool) (ast.Expr, error) {
	s.next() // EXISTS
	s.next() // (
	q, err := s.parseQuery()
	if err != nil {
		return nil, err
	}
	return &ast.Exists{Negated: negated, Subquery: q}, s.expectPunct(")")
}

func (s *state) parseCase() (ast.Expr, error) {
	s.next() // CASE
	c := &ast.Case{}
	var err error
	if !s.isKeyword("WHEN") {
		if c.Operand, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	for s.parseKeyword("WHEN") {
		cond, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := s.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Conditions = append(c.Conditions, cond)
		c.Results = append(c.Results, result)
	}
	if len(c.Conditions) == 0 {
		return nil, s.unexpected("WHEN")
	}
	if s.parseKeyword("ELSE") {
		if c.Else, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	return c, s.expectKeyword("END")
}

func (s *state) parseCast(name string) (ast.Expr, error) {
	s.next() // CAST
	s.next() // (
	expr, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("AS"); err != nil {
		return nil, err
	}
	typ, err := s.parseDataType()
	if err != nil {
		return nil, err
	}
	kind := ast.CastFunc
	switch name {
	case "TRY_CAST":
		kind = ast.TryCast
	case "SAFE_CAST":
		kind = ast.SafeCast
	}
	return &ast.Cast{Kind: kind, Expr: expr, Type: typ}, s.expectPunct(")")
}

func (s *state) parseExtract() (ast.Expr, error) {
	s.next() // EXTRACT
	s.next() // (
	tok := s.next()
	var field string
	switch tok.kind {
	case tokWord:
		field = strings.ToUpper(tok.text)
	case tokString:
		field = tok.String()
	default:
		return nil, s.errorf("expected date part, found %s", tok)
	}
	if err := s.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	expr, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Extract{Field: field, Expr: expr}, s.expectPunct(")")
}

func (s *state) parsePosition() (ast.Expr, error) {
	s.next() // POSITION
	s.next() // (
	expr, err := s.parseSubexpr(ast.PrecCompare)
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("IN"); err != nil {
		return nil, err
	}
	in, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Position{Expr: expr, In: in}, s.expectPunct(")")
}

func (s *state) parseSubstring() (ast.Expr, error) {
	s.next() // SUBSTRING
	s.next() // (
	expr, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	sub := &ast.Substring{Expr: expr}
	if s.consumePunct(",") {
		sub.Commas = true
		if sub.From, err = s.parseExpr(); err != nil {
			return nil, err
		}
		if s.consumePunct(",") {
			if sub.For, err = s.parseExpr(); err != nil {
				return nil, err
			}
		}
		return sub, s.expectPunct(")")
	}
	if s.parseKeyword("FROM") {
		if sub.From, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	if s.parseKeyword("FOR") {
		if sub.For, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	return sub, s.expectPunct(")")
}

func (s *state) parseTrim() (ast.Expr, error) {
	s.next() // TRIM
	s.next() // (
	t := &ast.Trim{Where: s.parseOneOf("BOTH", "LEADING", "TRAILING")}
	var err error
	if s.parseKeyword("FROM") {
		if t.Expr, err = s.parseExpr(); err != nil {
			return nil, err
		}
		return t, s.expectPunct(")")
	}
	first, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	switch {
	case s.parseKeyword("FROM"):
		t.What = first
		if t.Expr, err = s.parseExpr(); err != nil {
			return nil, err
		}
	case t.Where != "":
		return nil, s.unexpected("FROM")
	case s.consumePunct(","):
		// TRIM(str, chars) is an ordinary call in BigQuery and Snowflake.
		rest, err := parseCommaList(s, s.parseFunctionArg)
		if err != nil {
			return nil, err
		}
		args := append([]*ast.FunctionArg{{Arg: first}}, rest...)
		return &ast.Function{Name: ast.NewObjectName("TRIM"), Args: args}, s.expectPunct(")")
	default:
		t.Expr = first
	}
	return t, s.expectPunct(")")
}

func (s *state) parseOverlay() (ast.Expr, error) {
	s.next() // OVERLAY
	s.next() // (
	o := &ast.Overlay{}
	var err error
	if o.Expr, err = s.parseExpr(); err != nil {
		return nil, err
	}
	if err := s.expectKeyword("PLACING"); err != nil {
		return nil, err
	}
	if o.What, err = s.parseExpr(); err != nil {
		return nil, err
	}
	if err := s.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if o.From, err = s.parseExpr(); err != nil {
		return nil, err
	}
	if s.parseKeyword("FOR") {
		if o.For, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	return o, s.expectPunct(")")
}

var intervalUnits = map[string]bool{
	"YEAR": true, "QUARTER": true, "MONTH": true, "WEEK": true, "DAY": true,
	"HOUR": true, "MINUTE": true, "SECOND": true, "MILLISECOND": true, "MICROSECOND": true,
	"YEAR_MONTH": true, "DAY_HOUR": true, "DAY_MINUTE": true, "DAY_SECOND": true,
	"HOUR_MINUTE": true, "HOUR_SECOND": true, "MINUTE_SECOND": true,
}

func (s *state) parseInterval() (ast.Expr, error) {
	s.next() // INTERVAL
	value, err := s.parseSubexpr(ast.PrecUnary)
	if err != nil {
		return nil, err
	}
	iv := &ast.Interval{Value: value}
	if tok := s.peek(); tok.kind == tokWord && tok.quote == 0 && intervalUnits[strings.ToUpper(tok.text)] {
		s.next()
		iv.Unit = strings.ToUpper(tok.text)
		if s.isKeyword("TO") {
			if end := s.peekN(1); end.kind == tokWord && intervalUnits[strings.ToUpper(end.text)] {
				s.next()
				s.next()
				iv.Unit += " TO " + strings.ToUpper(end.text)
			}
		}
	}
	return iv, nil
}

func (s *state) parseAnyOp(all bool) (ast.Expr, error) {
	s.next() // ANY, SOME or ALL
	s.next() // (
	a := &ast.AnyOp{All: all}
	var err error
	if s.isQueryStart(0) {
		a.Subquery, err = s.parseQuery()
	} else {
		a.Expr, err = s.parseExpr()
	}
	if err != nil {
		return nil, err
	}
	return a, s.expectPunct(")")
}

func (s *state) parseListAgg() (ast.Expr, error) {
	s.next() // LISTAGG
	s.next() // (
	l := &ast.ListAgg{Distinct: s.parseKeyword("DISTINCT")}
	var err error
	if l.Expr, err = s.parseExpr(); err != nil {
		return nil, err
	}
	if s.consumePunct(",") {
		if l.Separator, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := s.expectPunct(")"); err != nil {
		return nil, err
	}
	if s.isKeyword("WITHIN") {
		if l.WithinGroup, err = s.parseWithinGroup(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// parseSets parses the parenthesized list of GROUPING SETS, CUBE or ROLLUP.
func (s *state) parseSets() ([][]ast.Expr, error) {
	if err := s.expectPunct("("); err != nil {
		return nil, err
	}
	sets, err := parseCommaList(s, func() ([]ast.Expr, error) {
		if s.consumePunct("(") {
			return s.parseExprsUntil(")")
		}
		e, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		return []ast.Expr{e}, nil
	})
	if err != nil {
		return nil, err
	}
	return sets, s.expectPunct(")")
}

func (s *state) parseDataType() (ast.DataType, error) {
	tok := s.peek()
	if tok.kind != tokWord {
		return ast.DataType{}, s.unexpected("data type")
	}
	s.next()
	name := tok.String()
	if tok.quote == 0 {
		name = strings.ToUpper(tok.text)
	}
	switch name {
	case "DOUBLE":
		if s.parseKeyword("PRECISION") {
			name += " PRECISION"
		}
	case "CHARACTER", "CHAR", "BIT":
		if s.parseKeyword("VARYING") {
			name += " VARYING"
		}
	case "SIGNED", "UNSIGNED":
		if w := s.parseOneOf("INTEGER", "INT"); w != "" {
			name += " " + w
		}
	case "ARRAY", "STRUCT":
		if s.isPunct("<") {
			inner, err := s.parseAngleType()
			if err != nil {
				return ast.DataType{}, err
			}
			name += inner
		}
	}
	for s.isPunct(".") && s.peekN(1).kind == tokWord {
		s.next()
		name += "." + s.next().String()
	}

	t := ast.DataType{Name: name}
	if s.consumePunct("(") {
		args, err := s.parseTypeArgs()
		if err != nil {
			return t, err
		}
		t.Args = args
	}
	switch {
	case s.parseKeywords("WITH", "TIME", "ZONE"):
		t.Suffix = "WITH TIME ZONE"
	case s.parseKeywords("WITHOUT", "TIME", "ZONE"):
		t.Suffix = "WITHOUT TIME ZONE"
	}
	for s.isPunct("[") && isPunct(s.peekN(1), "]") {
		s.next()
		s.next()
		t.Array++
	}
	return t, nil
}

// parseTypeArgs parses type arguments such as "10, 2)", keeping each argument's text.
func (s *state) parseTypeArgs() ([]string, error) {
	var (
		args []string
		arg  []string
	)
	for depth := 0; ; {
		tok := s.next()
		switch {
		case tok.kind == tokEOF:
			return nil, s.unexpected(`")"`)
		case isPunct(tok, ")") && depth == 0:
			return append(args, strings.Join(arg, " ")), nil
		case isPunct(tok, ",") && depth == 0:
			args = append(args, strings.Join(arg, " "))
			arg = nil
			continue
		case isPunct(tok, "("):
			depth++
		case isPunct(tok, ")"):
			depth--
		}
		arg = append(arg, tok.String())
	}
}

// parseAngleType parses BigQuery's <...> type parameters.
func (s *state) parseAngleType() (string, error) {
	s.next() // <
	var parts []string
	for depth := 1; depth > 0; {
		tok := s.next()
		switch {
		case tok.kind == tokEOF:
			return "", s.unexpected(`">"`)
		case isPunct(tok, "<"):
			depth++
		case isPunct(tok, ">"):
			depth--
		case isPunct(tok, ">>"):
			depth -= 2
			if depth < 0 {
				return "", s.errorf("unbalanced type parameters")
			}
			if depth > 0 {
				parts = append(parts, ">", ">")
				continue
			}
			parts = append(parts, ">")
			continue
		}
		if depth > 0 {
			parts = append(parts, tok.String())
		}
	}
	return "<" + strings.Join(parts, " ") + ">", nil
}
