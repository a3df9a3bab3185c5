package database

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotBound is returned when a Handle is used before Init.
var ErrNotBound = errors.New("database: handle not bound")

// Settings is what Init needs from the configuration.
type Settings struct {
	URI     string
	Echo    bool
	Options Options
}

// Handle is the persistence handle an application instance binds at
// assembly time.  It is created unbound; Init opens (or re-opens) the pool.
// Safe for concurrent use.
type Handle struct {
	mu     sync.RWMutex
	db     *sqlx.DB
	target Target
	echo   bool
}

// New returns an unbound handle.
func New() *Handle { return &Handle{} }

// Init binds h to the database described by s.  A previously bound pool is
// closed once the new one is online.
func (h *Handle) Init(ctx context.Context, s Settings) error {
	opts := s.Options
	if opts == (Options{}) {
		opts = DefaultOptions
	}
	db, t, err := OpenWithOptions(ctx, s.URI, opts)
	if err != nil {
		return err
	}

	h.mu.Lock()
	prev := h.db
	h.db, h.target, h.echo = db, t, s.Echo
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	zap.L().Info("database bound",
		zap.String("dialect", string(t.Dialect)),
		zap.Bool("memory", t.Memory),
		zap.Bool("echo", s.Echo))
	return nil
}

// Bind attaches an already-open pool, e.g. one built on sqlmock.
func (h *Handle) Bind(db *sqlx.DB, d Dialect, echo bool) {
	h.mu.Lock()
	h.db, h.target, h.echo = db, Target{Dialect: d, Driver: db.DriverName()}, echo
	h.mu.Unlock()
}

// DB returns the bound pool.
func (h *Handle) DB() (*sqlx.DB, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return nil, ErrNotBound
	}
	return h.db, nil
}

// Dialect reports the bound dialect, or "" when unbound.
func (h *Handle) Dialect() Dialect {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target.Dialect
}

// Ping checks the bound pool.
func (h *Handle) Ping(ctx context.Context) error {
	db, err := h.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Session opens a unit of work on the bound pool.  No connection is taken
// until the first statement runs.
func (h *Handle) Session() (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return nil, ErrNotBound
	}
	return &Session{db: h.db, dialect: h.target.Dialect, echo: h.echo}, nil
}

// Close releases the pool and unbinds h.
func (h *Handle) Close() error {
	h.mu.Lock()
	db := h.db
	h.db, h.target = nil, Target{}
	h.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}
