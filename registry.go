package rowfilter

import (
	"sync"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnknownHandle is the error produced when a Registry has no handle with a given ID.
var ErrUnknownHandle = errors.New("unknown handle")

// Registry holds handles for hosts that refer to them by ID,
// such as a proxy answering requests that name a handle.
// Parse registers a handle for each statement,
// and the handle stays until Release.
//
// The zero Registry is ready to use.
// Its methods may be called concurrently;
// calls on distinct handles never contend.
type Registry struct {
	// Logger, if set, receives debug messages.
	Logger lgr.L

	handles sync.Map // uuid.UUID -> *Handle
	cache   parseCache
}

func (r *Registry) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Logf(format, args...)
	}
}

// Parse parses sql and registers a handle for each resulting statement.
// Repeated parses of the same text in the same dialect reuse a cached tree,
// but every call produces fresh handles.
func (r *Registry) Parse(sql string, d Dialect) ([]Parsed, error) {
	stmts, err := r.cache.parse(sql, d)
	if err != nil {
		return nil, err
	}
	parsed := wrap(stmts, d)
	for _, p := range parsed {
		r.handles.Store(p.Handle.ID(), p.Handle)
		r.logf("[DEBUG] registered handle %s (%s)", p.Handle.ID(), p.Summary.Kind)
	}
	return parsed, nil
}

// Handle looks up the handle with the given ID.
func (r *Registry) Handle(id uuid.UUID) (*Handle, error) {
	v, ok := r.handles.Load(id)
	if !ok {
		return nil, errors.Wrap(ErrUnknownHandle, id.String())
	}
	return v.(*Handle), nil
}

// Render renders the statement of the handle with the given ID.
func (r *Registry) Render(id uuid.UUID) (string, error) {
	h, err := r.Handle(id)
	if err != nil {
		return "", err
	}
	return h.Render()
}

// AddTableFilter calls AddTableFilter on the handle with the given ID.
func (r *Registry) AddTableFilter(id uuid.UUID, table, column string, op Operator, value any) error {
	h, err := r.Handle(id)
	if err != nil {
		return err
	}
	return h.AddTableFilter(table, column, op, value)
}

// Release forgets the handle with the given ID.
// A call already holding the handle is unaffected.
func (r *Registry) Release(id uuid.UUID) error {
	if _, loaded := r.handles.LoadAndDelete(id); !loaded {
		return errors.Wrap(ErrUnknownHandle, id.String())
	}
	r.logf("[DEBUG] released handle %s", id)
	return nil
}

// Len is the number of registered handles.
func (r *Registry) Len() int {
	var n int
	r.handles.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
