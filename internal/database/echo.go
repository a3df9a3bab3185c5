package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// echoExt logs every statement at DEBUG before delegating.  Enabled by the
// bundle's EchoSQL flag.
type echoExt struct {
	sqlx.ExtContext
	log *zap.SugaredLogger
}

func (e echoExt) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.log.Debugw("exec", "query", query, "args", args)
	return e.ExtContext.ExecContext(ctx, query, args...)
}

func (e echoExt) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	e.log.Debugw("query", "query", query, "args", args)
	return e.ExtContext.QueryContext(ctx, query, args...)
}

func (e echoExt) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	e.log.Debugw("query", "query", query, "args", args)
	return e.ExtContext.QueryxContext(ctx, query, args...)
}

func (e echoExt) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	e.log.Debugw("query", "query", query, "args", args)
	return e.ExtContext.QueryRowxContext(ctx, query, args...)
}
