// Package rowfilter rewrites SQL statements to enforce row-level filters.
//
// A filter names a table, a column and a value, such as orders.tenant_id = 'abc'.
// Every query block that reads from the table gets the predicate ANDed into its WHERE clause,
// however deeply the block is nested:
// in a join, a CTE, a derived table, a scalar or EXISTS subquery,
// the target of an UPDATE or DELETE, or the table of a COPY.
//
// This happens by parsing the statement
// (rather than by dumb textual substitution),
// in one of four dialects: Postgres, MySQL, BigQuery, or a generic dialect.
// The parser covers the query and data-modifying subset of each;
// other statements pass through untouched.
//
// There are three ways to use it.
//
// Parse wraps each parsed statement in a Handle.
// Callers add filters to a handle with AddTableFilter and read the result with Render.
// A handle admits one call at a time and never blocks:
// a call that finds it busy fails with ErrLockBusy.
//
// A Registry does the same for hosts that refer to handles by ID.
//
// A Driver is a database/sql driver wrapping another one.
// Its connections rewrite each statement with the filters carried by the statement's context
// (see WithFilter)
// and refuse statements whose context carries none.
//
// Table names match without regard to case, and only as written:
// a filter on orders does not apply to a reference to public.orders, nor the reverse.
package rowfilter
