package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Session is one unit of work.  The transaction is begun lazily by the first
// call to Ext and ends with Commit, Rollback, or Remove.  A Session belongs to
// a single request and must not be shared.
type Session struct {
	db      *sqlx.DB
	dialect Dialect
	echo    bool

	mu sync.Mutex
	tx *sqlx.Tx
}

// Dialect reports the SQL flavour of the underlying pool.
func (s *Session) Dialect() Dialect { return s.dialect }

// Ext returns the open transaction, beginning one if needed.
func (s *Session) Ext(ctx context.Context) (sqlx.ExtContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		s.tx = tx
	}
	if s.echo {
		return echoExt{ExtContext: s.tx, log: zap.S().Named("sql")}, nil
	}
	return s.tx, nil
}

// Active reports whether a transaction is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Commit commits the open transaction.  No-op when none is open.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback discards the open transaction.  No-op when none is open.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Remove is the teardown call: uncommitted work is rolled back and the
// connection returned to the pool.
func (s *Session) Remove() {
	if err := s.Rollback(); err != nil {
		zap.L().Warn("session rollback on remove failed", zap.Error(err))
	}
}

/*──────────────────────────── context plumbing ─────────────────────────────*/

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFrom returns the request's Session, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
