package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cyberitance/backend/internal/database"
)

// CreateTableSQL renders an additive CREATE TABLE IF NOT EXISTS statement for
// e in dialect d.
func CreateTableSQL(d database.Dialect, e Entity) string {
	defs := []string{"id " + identityType(d)}
	for _, c := range e.Columns() {
		def := c.Name + " " + columnType(d, c)
		if !c.Nullable {
			def += " NOT NULL"
		}
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	ts := columnType(d, Column{Type: Timestamp})
	defs = append(defs,
		"created_at "+ts+" NOT NULL",
		"updated_at "+ts+" NOT NULL",
	)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", e.TableName(), strings.Join(defs, ",\n\t"))
}

// DropTableSQL renders DROP TABLE IF EXISTS for e.  Only the migration
// rollback path uses it.
func DropTableSQL(e Entity) string {
	return "DROP TABLE IF EXISTS " + e.TableName()
}

// Materialize creates every missing table.  Existing tables are left alone:
// nothing is dropped or altered.
func Materialize(ctx context.Context, x sqlx.ExecerContext, d database.Dialect, entities ...Entity) error {
	for _, e := range entities {
		if _, err := x.ExecContext(ctx, CreateTableSQL(d, e)); err != nil {
			return fmt.Errorf("model: create table %s: %w", e.TableName(), err)
		}
	}
	return nil
}

func identityType(d database.Dialect) string {
	switch d {
	case database.Postgres:
		return "SERIAL PRIMARY KEY"
	case database.MySQL:
		return "INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func columnType(d database.Dialect, c Column) string {
	switch c.Type {
	case String:
		size := c.Size
		if size == 0 {
			size = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Boolean:
		return "BOOLEAN"
	case Float:
		switch d {
		case database.Postgres:
			return "DOUBLE PRECISION"
		case database.MySQL:
			return "DOUBLE"
		default:
			return "REAL"
		}
	case Timestamp:
		if d == database.MySQL {
			return "DATETIME(6)"
		}
		return "TIMESTAMP"
	}
	return "TEXT"
}
