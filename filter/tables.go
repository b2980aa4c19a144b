package filter

import (
	"sort"
	"strings"

	"github.com/bobg/rowfilter/ast"
)

// Tables lists the names in table position anywhere in stmt,
// lowercased, dotted, sorted and without duplicates.
// References to CTEs are included, since they cannot be told apart
// from tables without resolving scopes.
func Tables(stmt ast.Statement) []string {
	if stmt == nil {
		return nil
	}
	seen := make(map[string]bool)
	add := func(name ast.ObjectName) {
		if len(name) > 0 {
			seen[strings.ToLower(name.String())] = true
		}
	}
	ast.Inspect(stmt, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.Table:
			add(plainName(n.Name))
		case *ast.Insert:
			add(plainName(n.Table))
		case *ast.Delete:
			for _, name := range n.Tables {
				add(plainName(name))
			}
		case *ast.CopyTable:
			add(plainName(n.Name))
		}
		return true
	})

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// plainName drops quoting so summaries show names as Path segments.
func plainName(name ast.ObjectName) ast.ObjectName {
	out := make(ast.ObjectName, 0, len(name))
	for _, ident := range name {
		out = append(out, ast.NewIdent(ident.Value))
	}
	return out
}
