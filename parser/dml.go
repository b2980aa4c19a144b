package parser

import (
	"strings"

	"github.com/bobg/rowfilter/ast"
)

func (s *state) parseInsert() (*ast.Insert, error) {
	ins := &ast.Insert{Replace: isKeyword(s.next(), "REPLACE")}
	ins.Ignore = s.d == ast.MySQL && s.parseKeyword("IGNORE")
	if !s.parseKeyword("INTO") && s.d != ast.MySQL && s.d != ast.BigQuery {
		return nil, s.unexpected("INTO")
	}

	var err error
	if ins.Table, err = s.parseObjectName(); err != nil {
		return nil, err
	}
	if s.parseKeyword("AS") {
		alias, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		ins.Alias = &alias
	}
	if s.isPunct("(") && !s.isQueryStart(1) && !isPunct(s.peekN(1), "(") {
		if ins.Columns, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	}

	switch {
	case s.parseKeywords("DEFAULT", "VALUES"):
		ins.DefaultValues = true
	case s.isQueryStart(0), s.isPunct("("):
		if ins.Source, err = s.parseQuery(); err != nil {
			return nil, err
		}
	default:
		return nil, s.unexpected("VALUES, SELECT or DEFAULT VALUES")
	}

	switch {
	case s.parseKeywords("ON", "CONFLICT"):
		if ins.On, err = s.parseOnConflict(); err != nil {
			return nil, err
		}
	case s.parseKeywords("ON", "DUPLICATE", "KEY", "UPDATE"):
		assignments, err := parseCommaList(s, s.parseAssignment)
		if err != nil {
			return nil, err
		}
		ins.On = &ast.DuplicateKeyUpdate{Assignments: assignments}
	}

	if ins.Returning, err = s.parseReturning(); err != nil {
		return nil, err
	}
	return ins, nil
}

func (s *state) parseOnConflict() (*ast.OnConflict, error) {
	oc := &ast.OnConflict{}
	var err error
	switch {
	case s.parseKeywords("ON", "CONSTRAINT"):
		name, err := s.parseIdent()
		if err != nil {
			return nil, err
		}
		oc.Constraint = &name
	case s.isPunct("("):
		if oc.Columns, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	}
	if err := s.expectKeyword("DO"); err != nil {
		return nil, err
	}
	if s.parseKeyword("NOTHING") {
		oc.DoNothing = true
		return oc, nil
	}
	if err := s.expectKeywords("UPDATE", "SET"); err != nil {
		return nil, err
	}
	if oc.Assignments, err = parseCommaList(s, s.parseAssignment); err != nil {
		return nil, err
	}
	if s.parseKeyword("WHERE") {
		if oc.Selection, err = s.parseExpr(); err != nil {
			return nil, err
		}
	}
	return oc, nil
}

func (s *state) parseAssignment() (*ast.Assignment, error) {
	target, err := s.parseObjectName()
	if err != nil {
		return nil, err
	}
	if err := s.expectPunct("="); err != nil {
		return nil, err
	}
	value, err := s.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Target: target, Value: value}, nil
}

func (s *state) parseReturning() ([]*ast.SelectItem, error) {
	if !s.parseKeyword("RETURNING") {
		return nil, nil
	}
	return parseCommaList(s, s.parseSelectItem)
}

// parseWhere parses an optional WHERE clause.
func (s *state) parseWhere() (ast.Expr, error) {
	if !s.parseKeyword("WHERE") {
		return nil, nil
	}
	return s.parseExpr()
}

// parseOrderLimit parses the ORDER BY and LIMIT that MySQL allows on UPDATE and DELETE.
func (s *state) parseOrderLimit() (orderBy []*ast.OrderByExpr, limit ast.Expr, err error) {
	if s.parseKeywords("ORDER", "BY") {
		if orderBy, err = s.parseOrderByList(); err != nil {
			return nil, nil, err
		}
	}
	if s.parseKeyword("LIMIT") {
		if limit, err = s.parseExpr(); err != nil {
			return nil, nil, err
		}
	}
	return orderBy, limit, nil
}

func (s *state) parseUpdate() (*ast.Update, error) {
	s.next() // UPDATE
	table, err := s.parseTableWithJoins()
	if err != nil {
		return nil, err
	}
	u := &ast.Update{Table: table}
	if err := s.expectKeyword("SET"); err != nil {
		return nil, err
	}
	if u.Assignments, err = parseCommaList(s, s.parseAssignment); err != nil {
		return nil, err
	}
	if s.parseKeyword("FROM") {
		if u.From, err = parseCommaList(s, s.parseTableWithJoins); err != nil {
			return nil, err
		}
	}
	if u.Selection, err = s.parseWhere(); err != nil {
		return nil, err
	}
	if u.OrderBy, u.Limit, err = s.parseOrderLimit(); err != nil {
		return nil, err
	}
	if u.Returning, err = s.parseReturning(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *state) parseDelete() (*ast.Delete, error) {
	s.next() // DELETE
	d := &ast.Delete{}
	var err error
	switch {
	case s.parseKeyword("FROM"):
	case s.d == ast.BigQuery:
		// FROM is optional in BigQuery.
	default:
		if d.Tables, err = parseCommaList(s, s.parseObjectName); err != nil {
			return nil, err
		}
		if err := s.expectKeyword("FROM"); err != nil {
			return nil, err
		}
	}
	if d.From, err = parseCommaList(s, s.parseTableWithJoins); err != nil {
		return nil, err
	}
	if s.parseKeyword("USING") {
		if d.Using, err = parseCommaList(s, s.parseTableWithJoins); err != nil {
			return nil, err
		}
	}
	if d.Selection, err = s.parseWhere(); err != nil {
		return nil, err
	}
	if d.OrderBy, d.Limit, err = s.parseOrderLimit(); err != nil {
		return nil, err
	}
	if d.Returning, err = s.parseReturning(); err != nil {
		return nil, err
	}
	return d, nil
}

// isCreateView reports whether the CREATE at the cursor begins a view definition.
func (s *state) isCreateView() bool {
	i := 1
	if s.isKeywordN(i, "OR") && s.isKeywordN(i+1, "REPLACE") {
		i += 2
	}
	if s.isKeywordN(i, "TEMPORARY") || s.isKeywordN(i, "TEMP") {
		i++
	}
	if s.isKeywordN(i, "MATERIALIZED") {
		i++
	}
	return s.isKeywordN(i, "VIEW")
}

func (s *state) parseCreateView() (*ast.CreateView, error) {
	s.next() // CREATE
	cv := &ast.CreateView{OrReplace: s.parseKeywords("OR", "REPLACE")}
	cv.Temporary = s.parseOneOf("TEMPORARY", "TEMP") != ""
	cv.Materialized = s.parseKeyword("MATERIALIZED")
	if err := s.expectKeyword("VIEW"); err != nil {
		return nil, err
	}
	cv.IfNotExists = s.parseKeywords("IF", "NOT", "EXISTS")

	var err error
	if cv.Name, err = s.parseObjectName(); err != nil {
		return nil, err
	}
	if s.isPunct("(") {
		if cv.Columns, err = s.parseIdentList(); err != nil {
			return nil, err
		}
	}
	if err := s.expectKeyword("AS"); err != nil {
		return nil, err
	}
	if cv.Query, err = s.parseQuery(); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *state) parseCopy() (*ast.Copy, error) {
	s.next() // COPY
	c := &ast.Copy{}
	if s.consumePunct("(") {
		q, err := s.parseQuery()
		if err != nil {
			return nil, err
		}
		if err := s.expectPunct(")"); err != nil {
			return nil, err
		}
		c.Source = q
	} else {
		name, err := s.parseObjectName()
		if err != nil {
			return nil, err
		}
		table := &ast.CopyTable{Name: name}
		if s.isPunct("(") {
			if table.Columns, err = s.parseIdentList(); err != nil {
				return nil, err
			}
		}
		c.Source = table
	}

	switch {
	case s.parseKeyword("TO"):
		c.To = true
	case s.parseKeyword("FROM"):
	default:
		return nil, s.unexpected("TO or FROM")
	}

	switch tok := s.next(); {
	case isKeyword(tok, "STDIN"), isKeyword(tok, "STDOUT"):
		c.Target = strings.ToUpper(tok.text)
	case isKeyword(tok, "PROGRAM"):
		cmd := s.next()
		if cmd.kind != tokString {
			return nil, s.errorf("expected command string, found %s", cmd)
		}
		c.Target = "PROGRAM " + cmd.String()
	case tok.kind == tokString:
		c.Target = tok.String()
	default:
		return nil, s.errorf("expected STDIN, STDOUT, PROGRAM or a file name, found %s", tok)
	}

	s.parseKeyword("WITH")
	if s.consumePunct("(") {
		opts, err := parseCommaList(s, s.parseCopyOption)
		if err != nil {
			return nil, err
		}
		c.Options = opts
		if err := s.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// parseCopyOption collects the tokens of one COPY option, such as "FORMAT csv".
func (s *state) parseCopyOption() (string, error) {
	var words []string
	for depth := 0; ; {
		tok := s.peek()
		switch {
		case tok.kind == tokEOF:
			return "", s.unexpected(`")"`)
		case depth == 0 && (isPunct(tok, ",") || isPunct(tok, ")")):
			if len(words) == 0 {
				return "", s.unexpected("COPY option")
			}
			return strings.Join(words, " "), nil
		case isPunct(tok, "("):
			depth++
		case isPunct(tok, ")"):
			depth--
		}
		words = append(words, s.next().String())
	}
}
