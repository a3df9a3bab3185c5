// Package migrations drives schema changes through a goose Provider.
//
// Version 1 is a Go migration built from the entity registry: up creates
// every registered table (CREATE TABLE IF NOT EXISTS), down drops them in
// reverse order.  The global goose registry is never touched, so several
// providers can coexist in one process.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/cyberitance/backend/internal/database"
	"github.com/cyberitance/backend/internal/model"
)

// BaseVersion creates the registered entity tables.
const BaseVersion int64 = 1

// GooseDialect maps a database dialect onto goose's.
func GooseDialect(d database.Dialect) (goose.Dialect, error) {
	switch d {
	case database.Postgres:
		return goose.DialectPostgres, nil
	case database.MySQL:
		return goose.DialectMySQL, nil
	case database.SQLite:
		return goose.DialectSQLite3, nil
	}
	return "", fmt.Errorf("migrations: no goose dialect for %q", d)
}

// NewProvider returns a goose provider whose only migration materialises
// entities.  An empty entities list means model.Registered().
func NewProvider(db *sql.DB, d database.Dialect, entities ...model.Entity) (*goose.Provider, error) {
	gd, err := GooseDialect(d)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		entities = model.Registered()
	}

	up := func(ctx context.Context, tx *sql.Tx) error {
		return model.Materialize(ctx, tx, d, entities...)
	}
	down := func(ctx context.Context, tx *sql.Tx) error {
		for i := len(entities) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, model.DropTableSQL(entities[i])); err != nil {
				return fmt.Errorf("drop %s: %w", entities[i].TableName(), err)
			}
		}
		return nil
	}

	return goose.NewProvider(gd, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(
			goose.NewGoMigration(BaseVersion,
				&goose.GoFunc{RunTx: up},
				&goose.GoFunc{RunTx: down}),
		),
	)
}
