package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when no row matches the entity's id.
	ErrNotFound = errors.New("model: record not found")
	// ErrNotPersisted is returned by Update for an entity without an id.
	ErrNotPersisted = errors.New("model: record has no id")
)

// Insert writes e, stamps both timestamps, and stores the generated id.
func Insert(ctx context.Context, q sqlx.ExtContext, e Entity) error {
	meta := e.Meta()
	prev := *meta
	meta.stamp()

	names, args := ownColumns(e)
	names = append(names, "created_at", "updated_at")
	args = append(args, meta.CreatedAt, meta.UpdatedAt)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		e.TableName(), strings.Join(names, ", "), placeholders(len(names)))

	var err error
	if returnsID(q) {
		err = q.QueryRowxContext(ctx, q.Rebind(query+" RETURNING id"), args...).Scan(&meta.ID)
	} else {
		var res sql.Result
		if res, err = q.ExecContext(ctx, q.Rebind(query), args...); err == nil {
			meta.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		*meta = prev
		return fmt.Errorf("model: insert %s: %w", e.TableName(), err)
	}
	return nil
}

// Update writes e's own columns and refreshes UpdatedAt.  CreatedAt is never
// written.
func Update(ctx context.Context, q sqlx.ExtContext, e Entity) error {
	meta := e.Meta()
	if meta.ID == 0 {
		return ErrNotPersisted
	}
	prev := meta.UpdatedAt
	meta.touch()

	names, args := ownColumns(e)
	names = append(names, "updated_at")
	args = append(args, meta.UpdatedAt, meta.ID)

	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = n + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", e.TableName(), strings.Join(sets, ", "))

	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		meta.UpdatedAt = prev
		return fmt.Errorf("model: update %s: %w", e.TableName(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		meta.UpdatedAt = prev
		return ErrNotFound
	}
	return nil
}

// Get loads the row with the given id into dest.
func Get(ctx context.Context, q sqlx.QueryerContext, dest Entity, id int64) error {
	names := []string{"id", "created_at", "updated_at"}
	for _, c := range dest.Columns() {
		names = append(names, c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(names, ", "), dest.TableName())
	if b, ok := q.(interface{ Rebind(string) string }); ok {
		query = b.Rebind(query)
	}

	err := sqlx.GetContext(ctx, q, dest, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("model: get %s: %w", dest.TableName(), err)
	}
	return nil
}

func ownColumns(e Entity) ([]string, []any) {
	cols := e.Columns()
	vals := e.Values()
	names := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	for _, c := range cols {
		names = append(names, c.Name)
		args = append(args, vals[c.Name])
	}
	return names, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// returnsID reports whether the driver speaks Postgres, where LastInsertId is
// unsupported and RETURNING is the way to read a generated key.
func returnsID(q sqlx.ExtContext) bool {
	return sqlx.BindType(q.DriverName()) == sqlx.DOLLAR
}
