package rowfilter

import (
	"context"
	"database/sql/driver"

	"github.com/pkg/errors"
)

// assert *Conn satisfies the driver.Conn interface and its optional extensions.
var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.NamedValueChecker  = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
)

// Conn implements driver.Conn.
// It wraps a connection of the nested driver,
// rewriting each statement before passing it along.
type Conn struct {
	nested driver.Conn
	driver *Driver
}

// rewrite applies the filters carried by ctx to query.
func (c *Conn) rewrite(ctx context.Context, query string) (string, error) {
	if isUnfiltered(ctx) {
		c.driver.logf("[DEBUG] passing unfiltered %q", query)
		return query, nil
	}
	filters := Filters(ctx)
	if len(filters) == 0 {
		if c.driver.AllowUnfiltered {
			return query, nil
		}
		return "", errors.Wrap(ErrNoFilter, query)
	}
	return c.driver.Rewrite(query, filters...)
}

// Prepare prepares the given query string.
// It has no context to take filters from,
// so it fails with ErrNoFilter unless the Driver allows unfiltered statements.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext implements driver.ConnPrepareContext.PrepareContext.
// The query is rewritten with the filters carried by ctx.
// The resulting statement keeps those filters whatever context it is later run with.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	rewritten, err := c.rewrite(ctx, query)
	if err != nil {
		return nil, err
	}
	if p, ok := c.nested.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(ctx, rewritten)
	}
	return c.nested.Prepare(rewritten)
}

// Close implements driver.Conn.Close.
func (c *Conn) Close() error {
	return c.nested.Close()
}

// Begin implements driver.Conn.Begin.
func (c *Conn) Begin() (driver.Tx, error) {
	return c.nested.Begin() //nolint:staticcheck
}

// BeginTx implements driver.ConnBeginTx.BeginTx.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.nested.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	return c.nested.Begin() //nolint:staticcheck
}

// QueryContext implements driver.QueryerContext.QueryContext.
// The query is rewritten with the filters carried by ctx
// (see WithFilter and WithoutFilters).
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := c.nested.(driver.QueryerContext)
	if !ok {
		// database/sql falls back to PrepareContext, which rewrites too.
		return nil, driver.ErrSkip
	}
	rewritten, err := c.rewrite(ctx, query)
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, rewritten, args)
}

// ExecContext implements driver.ExecerContext.ExecContext.
// The query is rewritten with the filters carried by ctx
// (see WithFilter and WithoutFilters).
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	e, ok := c.nested.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	rewritten, err := c.rewrite(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.ExecContext(ctx, rewritten, args)
}

// CheckNamedValue implements driver.NamedValueChecker.CheckNamedValue.
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.nested.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// Ping implements driver.Pinger.Ping.
func (c *Conn) Ping(ctx context.Context) error {
	if p, ok := c.nested.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// ResetSession implements driver.SessionResetter.ResetSession.
func (c *Conn) ResetSession(ctx context.Context) error {
	if r, ok := c.nested.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}
