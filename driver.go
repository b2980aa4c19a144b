package rowfilter

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/go-pkgz/lgr"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
)

// ErrNoNestedDriver is the error produced when a Driver has no Nested driver
// and its dialect has no default.
var ErrNoNestedDriver = errors.New("no nested driver")

// Driver implements database/sql/driver.Driver and driver.DriverContext.
// Connections made from it rewrite every statement
// to apply the filters carried by the statement's context
// (see WithFilter),
// then pass the rewritten statement to a connection of the Nested driver.
type Driver struct {
	// Dialect is the SQL dialect of statements sent through this driver.
	Dialect Dialect

	// Nested is the driver for the underlying database.
	// If nil, it defaults by dialect:
	// lib/pq for Postgres,
	// go-sql-driver/mysql for MySQL,
	// and modernc.org/sqlite for Generic.
	// BigQuery has no default.
	Nested driver.Driver

	// AllowUnfiltered permits statements issued with a context that carries no filters,
	// and statements that filters cannot be applied to, such as EXPLAIN.
	// Normally those fail with ErrNoFilter and ErrUnsupportedStatement.
	AllowUnfiltered bool

	// Verify, when the dialect is Postgres, checks each rewritten statement
	// against the real Postgres grammar before sending it to the database.
	Verify bool

	// Logger, if set, receives debug messages about rewritten statements.
	Logger lgr.L

	cache parseCache
}

// assert *Driver satisfies the driver.Driver and driver.DriverContext interfaces.
var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)

func (d *Driver) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Logf(format, args...)
	}
}

func (d *Driver) nested() (driver.Driver, error) {
	if d.Nested != nil {
		return d.Nested, nil
	}
	switch d.Dialect {
	case Postgres:
		return &pq.Driver{}, nil
	case MySQL:
		return &mysql.MySQLDriver{}, nil
	case Generic:
		return &sqlite.Driver{}, nil
	}
	return nil, errors.Wrapf(ErrNoNestedDriver, "dialect %s", d.Dialect)
}

// Open implements driver.Driver.Open.
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.OpenConnector.
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	nested, err := d.nested()
	if err != nil {
		return nil, err
	}
	var c driver.Connector
	if dc, ok := nested.(driver.DriverContext); ok {
		c, err = dc.OpenConnector(name)
		if err != nil {
			return nil, errors.Wrap(err, "opening nested connector")
		}
	} else {
		c = dsnConnector{dsn: name, driver: nested}
	}
	return &Connector{nested: c, driver: d}, nil
}

// Rewrite parses query in d's dialect, applies filters to every statement,
// and renders the result,
// verifying it first if d.Verify is set.
// With filters, a statement of KindOther fails with ErrUnsupportedStatement
// unless d.AllowUnfiltered is set.
// Parsed queries are cached, so repeated rewrites of the same text skip the parser.
func (d *Driver) Rewrite(query string, filters ...Filter) (string, error) {
	stmts, err := d.cache.parse(query, d.Dialect)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %s", query)
	}
	rewritten, err := applyFilters(stmts, d.Dialect, filters, d.AllowUnfiltered)
	if err != nil {
		return "", err
	}
	if d.Verify && d.Dialect == Postgres {
		if err := VerifyPostgres(rewritten); err != nil {
			return "", err
		}
	}
	d.logf("[DEBUG] rewrote %q to %q", query, rewritten)
	return rewritten, nil
}

// Connector implements driver.Connector.
type Connector struct {
	nested driver.Connector
	driver *Driver
}

// assert *Connector satisfies the driver.Connector interface.
var _ driver.Connector = (*Connector)(nil)

// Connect implements driver.Connector.Connect.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	nestedConn, err := c.nested.Connect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	return &Conn{nested: nestedConn, driver: c.driver}, nil
}

// Driver implements driver.Connector.Driver.
func (c *Connector) Driver() driver.Driver { return c.driver }

// dsnConnector adapts a driver without OpenConnector.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.driver.Open(c.dsn) }
func (c dsnConnector) Driver() driver.Driver                        { return c.driver }

// Open is a convenient shorthand for:
//
//	d := &rowfilter.Driver{Dialect: dialect}
//	connector, err := d.OpenConnector(dsn)
//	if err != nil { ... }
//	db := sql.OpenDB(connector)
//
// The nested driver is the default for the dialect.
func Open(dsn string, dialect Dialect) (*sql.DB, error) {
	d := &Driver{Dialect: dialect}
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(c), nil
}
