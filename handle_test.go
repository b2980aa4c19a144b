package rowfilter

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
)

func parseOne(t *testing.T, sql string) *Handle {
	t.Helper()
	parsed, err := Parse(sql, Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 1 {
		t.Fatalf("got %d statements, want 1", len(parsed))
	}
	return parsed[0].Handle
}

func TestHandleBusy(t *testing.T) {
	h := parseOne(t, "SELECT * FROM orders")

	h.mu.Lock()
	if _, err := h.Render(); errors.Cause(err) != ErrLockBusy {
		t.Errorf("Render: got error %v, want ErrLockBusy", err)
	}
	if err := h.AddTableFilter("orders", "tenant_id", OpEq, 1); errors.Cause(err) != ErrLockBusy {
		t.Errorf("AddTableFilter: got error %v, want ErrLockBusy", err)
	}
	if _, err := h.Statement(); errors.Cause(err) != ErrLockBusy {
		t.Errorf("Statement: got error %v, want ErrLockBusy", err)
	}
	h.mu.Unlock()

	// A busy handle is unchanged and usable once released.
	got, err := h.Render()
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT * FROM orders" {
		t.Errorf("got %s, want the statement unchanged", got)
	}
}

func TestHandleBusyArgumentErrorsFirst(t *testing.T) {
	h := parseOne(t, "SELECT * FROM orders")

	h.mu.Lock()
	defer h.mu.Unlock()

	// Bad arguments are reported without touching the lock.
	err := h.AddTableFilter("orders", "tenant_id", OpGt, 1)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Errorf("got error %v, want ErrUnsupportedOperator", err)
	}
}

func TestHandleConcurrent(t *testing.T) {
	const n = 50

	h := parseOne(t, "SELECT * FROM orders")

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		busy      atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := h.AddTableFilter("orders", fmt.Sprintf("c%d", i), OpEq, i)
			switch err {
			case nil:
				succeeded.Add(1)
			case ErrLockBusy:
				busy.Add(1)
			default:
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if total := succeeded.Load() + busy.Load(); total != n {
		t.Errorf("got %d outcomes, want %d", total, n)
	}

	got, err := h.Render()
	if err != nil {
		t.Fatal(err)
	}
	if count := strings.Count(got, " = "); count != int(succeeded.Load()) {
		t.Errorf("got %d predicates after %d successful calls: %s", count, succeeded.Load(), got)
	}
}

func TestHandlesIndependent(t *testing.T) {
	const n = 20

	handles := make([]*Handle, n)
	for i := range handles {
		handles[i] = parseOne(t, "SELECT * FROM orders")
	}

	var wg sync.WaitGroup
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			if err := h.AddTableFilter("orders", "tenant_id", OpEq, i); err != nil {
				t.Error(err)
			}
		}(i, h)
	}
	wg.Wait()

	for i, h := range handles {
		got, err := h.Render()
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("SELECT * FROM orders WHERE tenant_id = %d", i); got != want {
			t.Errorf("handle %d: got %s, want %s", i, got, want)
		}
	}
}

func TestHandleStatementCopy(t *testing.T) {
	h := parseOne(t, "SELECT * FROM orders WHERE x = 1")

	stmt, err := h.Statement()
	if err != nil {
		t.Fatal(err)
	}
	sel := stmt.(*ast.Query).Body.(*ast.Select)
	sel.Selection = nil

	got, err := h.Render()
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT * FROM orders WHERE x = 1" {
		t.Errorf("got %s, want the statement unchanged", got)
	}
}

func TestHandleSummaryCopy(t *testing.T) {
	h := parseOne(t, "SELECT * FROM a, b")

	s := h.Summary()
	want := []string{"a", "b"}
	if !reflect.DeepEqual(s.Tables, want) {
		t.Fatalf("got tables %v, want %v", s.Tables, want)
	}
	s.Tables[0] = "z"
	if got := h.Summary().Tables; !reflect.DeepEqual(got, want) {
		t.Errorf("got tables %v after changing a copy, want %v", got, want)
	}
}
