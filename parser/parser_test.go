package parser

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
)

// roundTrips are queries already in rendered form,
// which must come back unchanged from parse and render.
var roundTrips = map[ast.Dialect][]string{
	ast.Postgres: {
		"SELECT 1",
		"SELECT a, b AS c FROM t WHERE x = 1 AND y <> 2",
		"SELECT * FROM t AS x WHERE (a = 1 OR b = 2) AND c = 3",
		"SELECT a - (b - c), (a - b) - c, a * (b + c) FROM t",
		"SELECT -x, NOT a, ~b FROM t",
		"SELECT NOT a = b FROM t",
		"SELECT DISTINCT ON (a) a, b FROM t ORDER BY a, b DESC NULLS LAST",
		"SELECT count(*), sum(x) FILTER (WHERE x > 0) FROM t GROUP BY ROLLUP (a, (b, c)) HAVING count(*) > 1",
		"SELECT a FROM t GROUP BY GROUPING SETS ((a, b), a, ())",
		"SELECT row_number() OVER (PARTITION BY a ORDER BY b ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t",
		"SELECT rank() OVER w FROM t WINDOW w AS (ORDER BY x)",
		"WITH RECURSIVE r (n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM r WHERE n < 10) SELECT n FROM r",
		"WITH a AS MATERIALIZED (SELECT 1) SELECT * FROM a",
		"SELECT * FROM t1 LEFT JOIN t2 ON t1.id = t2.id NATURAL JOIN t3 CROSS JOIN t4",
		"SELECT * FROM t1 JOIN t2 USING (id)",
		"SELECT * FROM (SELECT 1) AS s, LATERAL (SELECT s.x) AS l",
		"SELECT * FROM generate_series(1, 10) AS g (n)",
		"SELECT * FROM UNNEST(ARRAY[1, 2]) WITH ORDINALITY AS u (x, n)",
		"SELECT * FROM t WHERE x IN (1, 2) AND y NOT IN (SELECT y FROM u)",
		"SELECT * FROM t WHERE x BETWEEN 1 AND 2 AND name ILIKE 'a%' ESCAPE '!'",
		"SELECT * FROM t WHERE x IS NOT NULL AND y IS DISTINCT FROM z",
		"SELECT * FROM t WHERE EXISTS (SELECT 1 FROM u WHERE u.id = t.id)",
		"SELECT * FROM t WHERE x = ANY(ARRAY[1, 2]) AND y > ALL(SELECT y FROM u)",
		"SELECT CASE WHEN a THEN 1 ELSE 2 END, CASE x WHEN 1 THEN 'one' END FROM t",
		"SELECT x::INTEGER, CAST(y AS NUMERIC(10, 2)), z::TEXT[] FROM t",
		"SELECT EXTRACT(YEAR FROM ts), ts AT TIME ZONE 'UTC' FROM t",
		"SELECT SUBSTRING(s FROM 2 FOR 3), POSITION('a' IN s), TRIM(BOTH 'x' FROM s) FROM t",
		"SELECT ARRAY[1, 2], ARRAY(SELECT 1), a[1] FROM t",
		"SELECT INTERVAL '1 day', CURRENT_TIMESTAMP, DATE '2020-01-01'",
		"SELECT a -> 'k' ->> 'j', b #> '{a,b}', c @> '{1}' FROM t",
		"SELECT (a).b, (1, 2) = (x, y) FROM t",
		"SELECT a COLLATE \"C\" FROM \"My Table\"",
		"SELECT $1, $2::TEXT, $$it's$$, $q$x$q$",
		"SELECT E'a\\nb', 'it''s'",
		"SELECT * FROM t LIMIT 10 OFFSET 5",
		"SELECT * FROM t FETCH FIRST 3 ROWS ONLY",
		"SELECT * FROM t FOR UPDATE SKIP LOCKED",
		"(SELECT 1) UNION (SELECT 2) ORDER BY 1",
		"SELECT 1 UNION SELECT 2 INTERSECT SELECT 3",
		"VALUES (1, 'a'), (2, 'b')",
		"INSERT INTO t (a, b) VALUES (1, 2) RETURNING id",
		"INSERT INTO t DEFAULT VALUES",
		"INSERT INTO t (a) SELECT a FROM u ON CONFLICT ON CONSTRAINT t_pkey DO NOTHING",
		"INSERT INTO t AS x (a) VALUES (1) ON CONFLICT (a) DO UPDATE SET a = excluded.a WHERE x.a < 5",
		"UPDATE t AS x SET a = 1, b = b + 1 FROM u WHERE x.id = u.id RETURNING *",
		"DELETE FROM t USING u WHERE t.id = u.id",
		"SELECT * FROM ONLY t AS x JOIN u * ON x.id = u.id",
		"UPDATE ONLY t SET a = 1",
		"DELETE FROM ONLY t WHERE a = 1",
		"CREATE OR REPLACE VIEW v (a) AS SELECT a FROM t",
		"CREATE MATERIALIZED VIEW IF NOT EXISTS v AS SELECT 1",
		"COPY t (a, b) FROM STDIN WITH (FORMAT csv, HEADER true)",
		"COPY (SELECT * FROM t) TO STDOUT",
	},
	ast.MySQL: {
		"SELECT `a b` FROM `t`",
		"SELECT a DIV 2, b MOD 3, c XOR d FROM t",
		"SELECT * FROM t WHERE a LIKE 'x\\%'",
		"SELECT 'it\\'s', \"dq\"",
		"SELECT * FROM t WHERE a <=> ? LOCK IN SHARE MODE",
		"REPLACE INTO t (a) VALUES (1)",
		"INSERT IGNORE INTO t (a) VALUES (1) ON DUPLICATE KEY UPDATE a = a + 1",
		"UPDATE t SET a = 1 ORDER BY id LIMIT 10",
		"DELETE t1, t2 FROM t1 JOIN t2 ON t1.id = t2.id WHERE t1.x = 1",
	},
	ast.BigQuery: {
		"SELECT ARRAY_AGG(x ORDER BY y LIMIT 10) FROM t",
		"SELECT * FROM UNNEST([1, 2]) AS x WITH OFFSET AS o",
		"SELECT arr[OFFSET(0)], SAFE_CAST(x AS INT64) FROM `proj.ds.t`",
		"SELECT * FROM t WHERE d = @day QUALIFY row_number() OVER (PARTITION BY a) = 1",
	},
	ast.Generic: {
		"SELECT TRY_CAST(x AS INTEGER) FROM t",
		"SELECT LISTAGG(DISTINCT x, ',') WITHIN GROUP (ORDER BY x) FROM t",
		"SELECT * FROM t WHERE a = :name",
		"SELECT * FROM orders PIVOT (sum(total) FOR quarter IN ('Q1', 'Q2')) AS p",
	},
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []ast.Dialect{ast.Postgres, ast.MySQL, ast.BigQuery, ast.Generic} {
		for i, q := range roundTrips[d] {
			t.Run(fmt.Sprintf("%s_%03d", d, i+1), func(t *testing.T) {
				stmts, err := Parse(q, d)
				if err != nil {
					t.Fatalf("parsing %s: %s", q, err)
				}
				if len(stmts) != 1 {
					t.Fatalf("got %d statements, want 1", len(stmts))
				}
				if got := stmts[0].String(); got != q {
					t.Errorf("got %s, want %s\n%s", got, q, spew.Sdump(stmts[0]))
				}
			})
		}
	}
}

type normalizeCase struct {
	d  ast.Dialect
	in string
}

// normalized maps inputs to their rendered form.
var normalized = map[normalizeCase]string{
	{ast.Postgres, "select  a\n from t where x=1"}:                 "SELECT a FROM t WHERE x = 1",
	{ast.Postgres, "SELECT a FROM t x JOIN u ON TRUE"}:             "SELECT a FROM t AS x JOIN u ON TRUE",
	{ast.Postgres, "SELECT a AS b, c d FROM t"}:                    "SELECT a AS b, c AS d FROM t",
	{ast.Postgres, "SELECT * FROM t INNER JOIN u ON TRUE"}:         "SELECT * FROM t JOIN u ON TRUE",
	{ast.Postgres, "SELECT * FROM t LEFT OUTER JOIN u ON TRUE"}:    "SELECT * FROM t LEFT JOIN u ON TRUE",
	{ast.Postgres, "SELECT * FROM t OFFSET 5 LIMIT 10"}:            "SELECT * FROM t LIMIT 10 OFFSET 5",
	{ast.Postgres, "SELECT * FROM t LIMIT ALL"}:                    "SELECT * FROM t",
	{ast.Postgres, "SELECT ((a))"}:                                 "SELECT ((a))",
	{ast.Postgres, "SELECT 1;"}:                                    "SELECT 1",
	{ast.Postgres, "SELECT a FROM t -- trailing\n"}:                "SELECT a FROM t",
	{ast.Postgres, "SELECT /* inline */ a FROM t"}:                 "SELECT a FROM t",
	{ast.Postgres, "SELECT true, false, null"}:                     "SELECT TRUE, FALSE, NULL",
	{ast.Postgres, "SELECT * FROM t WHERE x = 1 || 'a'"}:           "SELECT * FROM t WHERE x = 1 || 'a'",
	{ast.Postgres, "TABLE t"}:                                      "SELECT * FROM t",
	{ast.Postgres, "table only s.t order by a limit 1"}:            "SELECT * FROM ONLY s.t ORDER BY a LIMIT 1",
	{ast.Postgres, "SELECT 1 UNION TABLE t"}:                       "SELECT 1 UNION SELECT * FROM t",
	{ast.Postgres, "SELECT * FROM (TABLE t) AS x"}:                 "SELECT * FROM (SELECT * FROM t) AS x",
	{ast.MySQL, "SELECT * FROM t LIMIT 5, 10"}:                     "SELECT * FROM t LIMIT 10 OFFSET 5",
	{ast.MySQL, "SELECT a || b, c && d, !e FROM t"}:                "SELECT a OR b, c AND d, NOT e FROM t",
	{ast.MySQL, "SELECT * FROM t WHERE a = 1 || b = 2 && c = 3"}:   "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3",
	{ast.MySQL, "SELECT * FROM t WHERE (a = 1 || b = 2) && c = 3"}: "SELECT * FROM t WHERE (a = 1 OR b = 2) AND c = 3",
	{ast.MySQL, "SELECT a FROM t # comment\n"}:                     "SELECT a FROM t",
	{ast.MySQL, "INSERT t (a) VALUES (1)"}:                         "INSERT INTO t (a) VALUES (1)",
	{ast.BigQuery, "DELETE t WHERE true"}:                          "DELETE FROM t WHERE TRUE",
	{ast.BigQuery, "SELECT \"it's\""}:                              `SELECT "it's"`,
}

func TestNormalize(t *testing.T) {
	var keys []normalizeCase
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].d != keys[j].d {
			return keys[i].d < keys[j].d
		}
		return keys[i].in < keys[j].in
	})

	for i, k := range keys {
		t.Run(fmt.Sprintf("%03d", i+1), func(t *testing.T) {
			want := normalized[k]
			stmts, err := Parse(k.in, k.d)
			if err != nil {
				t.Fatalf("parsing %s: %s", k.in, err)
			}
			if len(stmts) != 1 {
				t.Fatalf("got %d statements, want 1", len(stmts))
			}
			got := stmts[0].String()
			if got != want {
				t.Fatalf("got %s, want %s", got, want)
			}

			// Rendered output is a fixed point.
			again, err := Parse(got, k.d)
			if err != nil {
				t.Fatalf("reparsing %s: %s", got, err)
			}
			if again[0].String() != got {
				t.Errorf("reparse changed %s to %s", got, again[0])
			}
		})
	}
}

func TestMultipleStatements(t *testing.T) {
	stmts, err := Parse("SELECT 1; ;SELECT 2;;", ast.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	for i, want := range []string{"SELECT 1", "SELECT 2"} {
		if got := stmts[i].String(); got != want {
			t.Errorf("statement %d: got %s, want %s", i, got, want)
		}
	}

	stmts, err = Parse(" ; ", ast.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 0 {
		t.Errorf("got %d statements, want 0", len(stmts))
	}
}

func TestOther(t *testing.T) {
	cases := map[ast.Dialect]string{
		ast.Postgres: "SET search_path TO public;SHOW  work_mem",
		ast.MySQL:    "SET NAMES utf8mb4;SHOW  TABLES",
		ast.BigQuery: "CREATE TABLE t (a INT64);DROP TABLE  t",
		ast.Generic:  "BEGIN;COMMIT",
	}
	for d, q := range cases {
		stmts, err := Parse(q, d)
		if err != nil {
			t.Errorf("%s: %s", d, err)
			continue
		}
		want := strings.Split(q, ";")
		if len(stmts) != len(want) {
			t.Errorf("%s: got %d statements, want %d", d, len(stmts), len(want))
			continue
		}
		for i, stmt := range stmts {
			other, ok := stmt.(*ast.Other)
			if !ok {
				t.Errorf("%s: statement %d is %T, want *ast.Other", d, i, stmt)
				continue
			}
			if other.SQL != want[i] {
				t.Errorf("%s: got %q, want %q", d, other.SQL, want[i])
			}
		}
	}
}

func TestStatementTypes(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                      "*ast.Query",
		"(SELECT 1)":                    "*ast.Query",
		"WITH a AS (SELECT 1) SELECT 2": "*ast.Query",
		"INSERT INTO t VALUES (1)":      "*ast.Insert",
		"UPDATE t SET a = 1":            "*ast.Update",
		"DELETE FROM t":                 "*ast.Delete",
		"CREATE VIEW v AS SELECT 1":     "*ast.CreateView",
		"COPY t TO STDOUT":              "*ast.Copy",
		"TABLE t":                       "*ast.Query",
		"TABLE (SELECT 1)":              "*ast.Other",
		"CREATE TABLE t (a int)":        "*ast.Other",
		"EXPLAIN SELECT 1":              "*ast.Other",
	}
	for q, want := range cases {
		stmts, err := Parse(q, ast.Postgres)
		if err != nil {
			t.Errorf("%s: %s", q, err)
			continue
		}
		if got := fmt.Sprintf("%T", stmts[0]); got != want {
			t.Errorf("%s: got %s, want %s", q, got, want)
		}
	}
}

func TestTokenizeError(t *testing.T) {
	cases := []struct {
		d         ast.Dialect
		q         string
		line, col int
	}{
		{ast.Postgres, "SELECT 'abc", 1, 8},
		{ast.Postgres, "SELECT a\nFROM `t`", 2, 6},
		{ast.Postgres, `SELECT "abc`, 1, 8},
		{ast.Postgres, "SELECT $$abc", 1, 8},
		{ast.MySQL, "SELECT\n  'it\\'s", 2, 3},
		{ast.BigQuery, "SELECT $1", 1, 8},
		{ast.Postgres, "SELECT 1 /* open", 1, 10},
	}
	for _, c := range cases {
		_, err := Parse(c.q, c.d)
		var terr *TokenizeError
		if !errors.As(err, &terr) {
			t.Errorf("%s %q: got error %v, want *TokenizeError", c.d, c.q, err)
			continue
		}
		if terr.Line != c.line || terr.Col != c.col {
			t.Errorf("%s %q: got line %d col %d, want line %d col %d", c.d, c.q, terr.Line, terr.Col, c.line, c.col)
		}
	}
}

func TestParseError(t *testing.T) {
	cases := []struct {
		q         string
		line, col int
	}{
		{"SELECT 1 FROM", 1, 14},
		{"SELECT 1 SELECT 2", 1, 10},
		{"SELECT *\nFROM t WHERE", 2, 13},
		{"SELECT (1", 1, 10},
		{"SELECT a FROM t WHERE x IN ()", 1, 29},
		{"INSERT INTO t", 1, 14},
		{"UPDATE t WHERE x = 1", 1, 10},
		{"CREATE VIEW v AS SELECT 1 WITH CHECK OPTION", 1, 27},
		{"SELECT CAST(x AS)", 1, 17},
	}
	for _, c := range cases {
		_, err := Parse(c.q, ast.Postgres)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("%q: got error %v, want *ParseError", c.q, err)
			continue
		}
		if perr.Line != c.line || perr.Col != c.col {
			t.Errorf("%q: got line %d col %d, want line %d col %d (%s)", c.q, perr.Line, perr.Col, c.line, c.col, perr)
		}
	}
}

func TestRecursionLimit(t *testing.T) {
	const n = 100
	deepExpr := "SELECT " + strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	deepQuery := strings.Repeat("SELECT * FROM (", n) + "SELECT 1" + strings.Repeat(") AS x", n)
	deepJoin := "SELECT * FROM " + strings.Repeat("(", n) + "a CROSS JOIN b" + strings.Repeat(")", n)

	for _, q := range []string{deepExpr, deepQuery, deepJoin} {
		if _, err := Parse(q, ast.Postgres); err != ErrRecursionLimitExceeded {
			t.Errorf("%.40s...: got error %v, want ErrRecursionLimitExceeded", q, err)
		}
	}

	// A higher limit admits the same input.
	p := New(ast.Postgres, MaxDepth(1000))
	for _, q := range []string{deepExpr, deepQuery, deepJoin} {
		if _, err := p.Parse(q); err != nil {
			t.Errorf("%.40s...: %s", q, err)
		}
	}
}

func TestBackslashDialects(t *testing.T) {
	// The same text is one string in MySQL and an unterminated one in Postgres.
	const q = `SELECT 'a\'b'`
	stmts, err := Parse(q, ast.MySQL)
	if err != nil {
		t.Fatal(err)
	}
	sel := stmts[0].(*ast.Query).Body.(*ast.Select)
	v, ok := sel.Projection[0].Expr.(*ast.Value)
	if !ok {
		t.Fatalf("got %T, want *ast.Value", sel.Projection[0].Expr)
	}
	if v.Val != "a'b" {
		t.Errorf("got value %q, want %q", v.Val, "a'b")
	}

	var terr *TokenizeError
	if _, err := Parse(q, ast.Postgres); !errors.As(err, &terr) {
		t.Errorf("got error %v, want *TokenizeError", err)
	}
}
