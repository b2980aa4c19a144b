package rowfilter

import (
	"context"

	"github.com/pkg/errors"
)

type keyType int

const (
	filtersKey keyType = iota
	unfilteredKey
)

// Filter is one row filter:
// queries reading from Table see only rows where "Column Op Value" holds.
type Filter struct {
	Table  string
	Column string
	Op     Operator
	Value  any
}

// WithFilter adds a filter to the given context.
// Any statements issued with the returned context through a Driver
// are rewritten to apply f, along with any filters ctx already carries.
func WithFilter(ctx context.Context, f Filter) context.Context {
	existing := Filters(ctx)
	filters := make([]Filter, 0, len(existing)+1)
	filters = append(filters, existing...)
	filters = append(filters, f)
	return context.WithValue(ctx, filtersKey, filters)
}

// Filters returns the filters carried by ctx, in the order they were added.
func Filters(ctx context.Context) []Filter {
	filters, _ := ctx.Value(filtersKey).([]Filter)
	return filters
}

// WithoutFilters marks the given context as exempt from filtering.
// Statements issued with the returned context pass through a Driver unchanged,
// even if the context also carries filters.
// Use it for schema changes and other administrative statements.
func WithoutFilters(ctx context.Context) context.Context {
	return context.WithValue(ctx, unfilteredKey, true)
}

func isUnfiltered(ctx context.Context) bool {
	v, _ := ctx.Value(unfilteredKey).(bool)
	return v
}

// ErrNoFilter is the error produced when a statement reaches a Driver
// through a context with no filters attached by WithFilter.
var ErrNoFilter = errors.New("no filter")
