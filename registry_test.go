package rowfilter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func TestRegistry(t *testing.T) {
	var buf bytes.Buffer
	r := &Registry{Logger: lgr.New(lgr.Debug, lgr.Out(&buf))}

	parsed, err := r.Parse("SELECT * FROM orders; DELETE FROM orders", Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d statements, want 2", len(parsed))
	}
	if r.Len() != 2 {
		t.Errorf("got %d handles, want 2", r.Len())
	}
	if want := "registered handle " + parsed[0].Handle.ID().String(); !strings.Contains(buf.String(), want) {
		t.Errorf("log lacks %q:\n%s", want, buf.String())
	}

	id := parsed[1].Handle.ID()
	h, err := r.Handle(id)
	if err != nil {
		t.Fatal(err)
	}
	if h != parsed[1].Handle {
		t.Error("lookup returned a different handle")
	}

	if err := r.AddTableFilter(id, "orders", "tenant_id", OpEq, "abc"); err != nil {
		t.Fatal(err)
	}
	got, err := r.Render(id)
	if err != nil {
		t.Fatal(err)
	}
	if want := "DELETE FROM orders WHERE tenant_id = 'abc'"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	// The other handle is untouched.
	got, err = r.Render(parsed[0].Handle.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT * FROM orders" {
		t.Errorf("got %s, want the statement unchanged", got)
	}

	if err := r.Release(id); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Errorf("got %d handles after release, want 1", r.Len())
	}

	if _, err := r.Render(id); errors.Cause(err) != ErrUnknownHandle {
		t.Errorf("Render: got error %v, want ErrUnknownHandle", err)
	}
	if err := r.Release(id); errors.Cause(err) != ErrUnknownHandle {
		t.Errorf("Release: got error %v, want ErrUnknownHandle", err)
	}
	if err := r.AddTableFilter(uuid.New(), "orders", "tenant_id", OpEq, 1); errors.Cause(err) != ErrUnknownHandle {
		t.Errorf("AddTableFilter: got error %v, want ErrUnknownHandle", err)
	}
}

func TestRegistryParseError(t *testing.T) {
	var r Registry
	_, err := r.Parse("SELECT 1 FROM", Postgres)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("got error %v, want a ParseError", err)
	}
	if r.Len() != 0 {
		t.Errorf("got %d handles, want 0", r.Len())
	}
}

func TestRegistryCachedTreesAreIndependent(t *testing.T) {
	var r Registry

	const q = "SELECT * FROM orders"
	first, err := r.Parse(q, Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if err := first[0].Handle.AddTableFilter("orders", "tenant_id", OpEq, 1); err != nil {
		t.Fatal(err)
	}

	second, err := r.Parse(q, Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Handle.ID() == second[0].Handle.ID() {
		t.Error("handles share an ID")
	}

	got, err := second[0].Handle.Render()
	if err != nil {
		t.Fatal(err)
	}
	if got != q {
		t.Errorf("got %s, want %s", got, q)
	}

	// Same text in another dialect is a separate entry.
	third, err := r.Parse(q, MySQL)
	if err != nil {
		t.Fatal(err)
	}
	if d := third[0].Handle.Dialect(); d != MySQL {
		t.Errorf("got dialect %s, want mysql", d)
	}
}

func TestParseCache(t *testing.T) {
	var pc parseCache

	key := cacheKey{dialect: Postgres, sql: "SELECT * FROM orders"}
	if _, ok := pc.lookup(key); ok {
		t.Error("unexpected hit in an empty cache")
	}

	stmts, err := pc.parse(key.sql, key.dialect)
	if err != nil {
		t.Fatal(err)
	}

	cached, ok := pc.lookup(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(cached) != 1 {
		t.Fatalf("got %d cached statements, want 1", len(cached))
	}
	if cached[0].String() != stmts[0].String() {
		t.Errorf("got %s, want %s", cached[0], stmts[0])
	}
	if cached[0] == stmts[0] {
		t.Error("cache returned the parsed tree itself, want a copy")
	}

	if _, err := pc.parse("SELECT 'abc", Postgres); err == nil {
		t.Error("expected an error")
	}
	if _, ok := pc.lookup(cacheKey{dialect: Postgres, sql: "SELECT 'abc"}); ok {
		t.Error("failures are not cached")
	}
}
