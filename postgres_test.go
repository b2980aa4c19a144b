package rowfilter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway Postgres server in a container
// and returns its connection string.
// The test is skipped in short mode or when no container runtime is available.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("postgres"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("cannot start postgres container: %s", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return dsn + "sslmode=disable"
}

func TestPostgres(t *testing.T) {
	dsn := startPostgres(t)

	nested := map[string]driver.Driver{
		"pq":  nil, // the dialect default
		"pgx": stdlib.GetDefaultDriver(),
	}
	for name, n := range nested {
		t.Run(name, func(t *testing.T) {
			testPostgres(t, &Driver{Dialect: Postgres, Nested: n, Verify: true}, dsn)
		})
	}
}

func testPostgres(t *testing.T, d *Driver, dsn string) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		t.Fatal(err)
	}
	db := sql.OpenDB(c)
	defer db.Close()

	ctx := context.Background()
	admin := WithoutFilters(ctx)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS orders",
		"CREATE TABLE orders (id INT PRIMARY KEY, tenant_id TEXT NOT NULL, n INT NOT NULL)",
		"INSERT INTO orders VALUES (1, 'a', 1), (2, 'b', 2), (3, 'a', 3)",
	} {
		if _, err := db.ExecContext(admin, stmt); err != nil {
			t.Fatalf("%s: %s", stmt, err)
		}
	}

	a := tenant(ctx, "a")

	if n := queryInt(t, a, db, "WITH o AS (SELECT * FROM orders) SELECT count(*) FROM o"); n != 2 {
		t.Errorf("got count %d, want 2", n)
	}

	var count int
	if err := db.QueryRowContext(a, "SELECT count(*) FROM orders WHERE id = $1", 2).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("tenant a can see order 2")
	}

	if n := queryInt(t, a, db, "SELECT count(*) FROM (TABLE ONLY orders) AS o"); n != 2 {
		t.Errorf("got count %d from TABLE ONLY, want 2", n)
	}

	// The conflicting row belongs to tenant b, so tenant a's upsert leaves it alone.
	_, err = db.ExecContext(a, "INSERT INTO orders (id, tenant_id, n) VALUES (2, 'a', 100) ON CONFLICT (id) DO UPDATE SET n = excluded.n")
	if err != nil {
		t.Fatal(err)
	}
	if n := queryInt(t, admin, db, "SELECT n FROM orders WHERE id = 2"); n != 2 {
		t.Errorf("got n = %d for order 2, want 2", n)
	}

	res, err := db.ExecContext(a, "UPDATE ONLY orders SET n = n * 10 WHERE id IN (SELECT id FROM orders)")
	if err != nil {
		t.Fatal(err)
	}
	if affected, err := res.RowsAffected(); err != nil || affected != 2 {
		t.Errorf("got %d rows affected (err %v), want 2", affected, err)
	}

	if _, err := db.ExecContext(a, "CREATE TABLE leak AS SELECT * FROM orders"); !errors.Is(err, ErrUnsupportedStatement) {
		t.Errorf("got error %v, want ErrUnsupportedStatement", err)
	}

	if _, err := db.ExecContext(a, "COPY orders FROM STDIN"); !errors.Is(err, ErrRejected) {
		t.Errorf("got error %v, want ErrRejected", err)
	}
}
