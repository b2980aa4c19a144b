package rowfilter

import (
	"fmt"
	"sort"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/bobg/rowfilter/parser"
)

// FilterTester rewrites each query that is a key in m with the given filters.
// They are sorted first for a predictable test ordering.
// Each query is tested in a separate call to t.Run.
// The output of each rewrite is compared against the corresponding value in m.
// A mismatch produces a call to t.Error.
// Other errors produce calls to t.Fatal.
//
// Programs using this package should include a unit test
// that calls this function with the queries they send through a Driver,
// to pin down exactly what reaches the database.
func FilterTester(t *testing.T, d Dialect, filters []Filter, m map[string]string) {
	// Test the items of m in the same order every time.
	var sorted sort.StringSlice
	for q := range m {
		sorted = append(sorted, q)
	}
	sorted.Sort()

	for i, pre := range sorted {
		post := m[pre]
		t.Run(fmt.Sprintf("%03d", i+1), func(t *testing.T) {
			stmts, err := parser.Parse(pre, d)
			if err != nil {
				t.Fatal(err)
			}
			got, err := applyFilters(stmts, d, filters, false)
			if err != nil {
				t.Fatalf("rewrite error: %s\n%s", err, spew.Sdump(stmts))
			}
			if got != post {
				t.Errorf("mismatch\ngot  %s\nwant %s\n%s", got, post, spew.Sdump(stmts))
			}
		})
	}
}
