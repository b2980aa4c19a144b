package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobg/rowfilter"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o600))
	return fname
}

func TestLoadYAML(t *testing.T) {
	fname := writeFile(t, "rules.yml", `
dialect: mysql
filters:
  - table: orders
    column: tenant_id
    value: acme
  - table: public.invoices
    column: org_id
    op: "="
    value: 17
`)
	rules, err := Load(fname)
	require.NoError(t, err)

	d, err := rules.ParseDialect()
	require.NoError(t, err)
	assert.Equal(t, rowfilter.MySQL, d)

	filters, err := rules.RowFilters()
	require.NoError(t, err)
	assert.Equal(t, []rowfilter.Filter{
		{Table: "orders", Column: "tenant_id", Op: rowfilter.OpEq, Value: "acme"},
		{Table: "public.invoices", Column: "org_id", Op: rowfilter.OpEq, Value: 17},
	}, filters)
}

func TestLoadTOML(t *testing.T) {
	fname := writeFile(t, "rules.toml", `
[[filters]]
table = "orders"
column = "tenant_id"
value = 42

[[filters]]
table = "items"
column = "t.region"
op = "eq"
value = "emea"
`)
	rules, err := Load(fname)
	require.NoError(t, err)

	d, err := rules.ParseDialect()
	require.NoError(t, err)
	assert.Equal(t, rowfilter.Postgres, d, "postgres is the default")

	filters, err := rules.RowFilters()
	require.NoError(t, err)
	assert.Equal(t, []rowfilter.Filter{
		{Table: "orders", Column: "tenant_id", Op: rowfilter.OpEq, Value: int64(42)},
		{Table: "items", Column: "t.region", Op: rowfilter.OpEq, Value: "emea"},
	}, filters)

	got, err := rowfilter.Rewrite("SELECT * FROM orders", d, filters...)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders WHERE tenant_id = 42", got)
}

func TestLoadNoExtension(t *testing.T) {
	fname := writeFile(t, "rules", "filters:\n  - {table: orders, column: tenant_id, value: 1}\n")
	rules, err := Load(fname)
	require.NoError(t, err)
	assert.Len(t, rules.Filters, 1)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "rules.json", `{}`))
	assert.ErrorContains(t, err, "unknown rules format")

	_, err = Load(writeFile(t, "rules.yml", "filters:\n  - {table: orders, colunm: tenant_id, value: 1}\n"))
	assert.ErrorContains(t, err, "colunm", "unknown fields are rejected")

	_, err = Load(writeFile(t, "rules.toml", "filters = 3"))
	assert.ErrorContains(t, err, "can't unmarshal toml rules")
}

func TestValidate(t *testing.T) {
	rules := &Rules{
		Dialect: "oracle",
		Filters: []Rule{
			{Table: "orders", Column: "tenant_id", Value: "ok"},
			{Table: "", Column: "tenant_id", Value: 1},
			{Table: "orders", Column: "tenant id", Value: 1},
			{Table: "orders", Column: "tenant_id", Op: ">", Value: 1},
			{Table: "orders", Column: "tenant_id", Op: "~", Value: 1},
			{Table: "orders", Column: "tenant_id", Value: true},
		},
	}
	err := rules.Validate()
	require.Error(t, err)

	assert.ErrorIs(t, err, rowfilter.ErrUnknownDialect)
	assert.ErrorIs(t, err, rowfilter.ErrInvalidPath)
	assert.ErrorIs(t, err, rowfilter.ErrInvalidColumn)
	assert.ErrorIs(t, err, rowfilter.ErrUnsupportedOperator)
	assert.ErrorIs(t, err, rowfilter.ErrInvalidValueType)
	assert.Contains(t, err.Error(), "6 errors occurred")
	assert.NotContains(t, err.Error(), "filter 1:")

	assert.NoError(t, (&Rules{}).Validate())
}
