// internal/routing/blueprint.go
//
// Blueprints and the per-instance route table.
//
// Context
// -------
// A Blueprint is a named, prefixed group of (method, path, handler) tuples
// plus the middleware that wraps only that group.  The assembler registers
// every Blueprint on a fresh Table, then mounts the Table onto a chi router
// exactly once.  After Mount the Table is sealed: the route set is fixed for
// the lifetime of the instance.
//
// Workflow
// --------
//  1. Packages under internal/routes build their Blueprint.
//  2. app.New calls Table.Register for each, in order.
//  3. app.New calls Table.Mount(router); every route is an exact-match chi
//     pattern, so lookups never fall through to a wildcard.
//
// Notes
// -----
//   - Registering the same Blueprint name twice on one Table is a caller
//     error (ErrDuplicateBlueprint), as is two Blueprints claiming the same
//     method and path (ErrDuplicateRoute).
package routing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	ErrDuplicateBlueprint = errors.New("routing: blueprint already registered")
	ErrDuplicateRoute     = errors.New("routing: route already registered")
	ErrSealed             = errors.New("routing: table already mounted")
)

// -----------------------------------------------------------------------------
// Blueprint
// -----------------------------------------------------------------------------

// Route is one method+path registration relative to its Blueprint prefix.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Blueprint groups routes under a prefix.  Zero Prefix means the root.
type Blueprint struct {
	Name       string
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
}

// New returns an empty Blueprint.
func New(name, prefix string) *Blueprint {
	return &Blueprint{Name: name, Prefix: prefix}
}

// Use appends group-local middleware.
func (b *Blueprint) Use(mw ...func(http.Handler) http.Handler) *Blueprint {
	b.Middleware = append(b.Middleware, mw...)
	return b
}

// Handle adds a route.
func (b *Blueprint) Handle(method, path string, h http.HandlerFunc) *Blueprint {
	b.Routes = append(b.Routes, Route{Method: method, Path: path, Handler: h})
	return b
}

// Get is shorthand for Handle(http.MethodGet, …).
func (b *Blueprint) Get(path string, h http.HandlerFunc) *Blueprint {
	return b.Handle(http.MethodGet, path, h)
}

// FullPath joins the prefix and a route path.
func (b *Blueprint) FullPath(path string) string {
	prefix := strings.TrimSuffix(b.Prefix, "/")
	if path == "" || path == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}

// -----------------------------------------------------------------------------
// Table
// -----------------------------------------------------------------------------

// Entry is the read-only view of one mounted route.
type Entry struct {
	Method    string
	Path      string
	Blueprint string
}

// Table collects Blueprints for one application instance.
type Table struct {
	mu         sync.Mutex
	blueprints []*Blueprint
	names      map[string]struct{}
	keys       map[string]string // "METHOD path" → blueprint
	sealed     bool
}

// NewTable returns an empty, unsealed table.
func NewTable() *Table {
	return &Table{names: map[string]struct{}{}, keys: map[string]string{}}
}

// Register adds bp.  It fails on a repeated name, a clashing route, or a
// sealed table; on failure the table is unchanged.
func (t *Table) Register(bp *Blueprint) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, bp.Name)
	}
	if _, dup := t.names[bp.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateBlueprint, bp.Name)
	}

	added := make([]string, 0, len(bp.Routes))
	for _, rt := range bp.Routes {
		key := strings.ToUpper(rt.Method) + " " + bp.FullPath(rt.Path)
		if owner, dup := t.keys[key]; dup {
			for _, k := range added {
				delete(t.keys, k)
			}
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateRoute, key, owner)
		}
		t.keys[key] = bp.Name
		added = append(added, key)
	}

	t.names[bp.Name] = struct{}{}
	t.blueprints = append(t.blueprints, bp)
	return nil
}

// Mount wires every registered route onto r and seals the table.
func (t *Table) Mount(r chi.Router) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return ErrSealed
	}
	for _, bp := range t.blueprints {
		bp := bp
		r.Group(func(g chi.Router) {
			g.Use(bp.Middleware...)
			for _, rt := range bp.Routes {
				g.MethodFunc(strings.ToUpper(rt.Method), bp.FullPath(rt.Path), rt.Handler)
			}
		})
		zap.L().Debug("blueprint mounted",
			zap.String("name", bp.Name),
			zap.String("prefix", bp.Prefix),
			zap.Int("routes", len(bp.Routes)))
	}
	t.sealed = true
	return nil
}

// Entries lists every registered route in registration order.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for _, bp := range t.blueprints {
		for _, rt := range bp.Routes {
			out = append(out, Entry{
				Method:    strings.ToUpper(rt.Method),
				Path:      bp.FullPath(rt.Path),
				Blueprint: bp.Name,
			})
		}
	}
	return out
}
