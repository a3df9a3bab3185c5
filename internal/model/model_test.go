package model

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberitance/backend/internal/database"
)

// sample is a concrete entity used only by these tests.
type sample struct {
	Record
	Name string `db:"name"`
}

func (s *sample) TableName() string { return "sample_models" }
func (s *sample) Columns() []Column {
	return []Column{{Name: "name", Type: String, Size: 50}}
}
func (s *sample) Values() map[string]any { return map[string]any{"name": s.Name} }
func (s *sample) Fields() map[string]any {
	return Merge(s.Record.Fields(), map[string]any{"name": s.Name})
}

var _ Entity = (*sample)(nil)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	db, _, err := database.Open(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Materialize(context.Background(), db, database.SQLite, &sample{}))
	return db
}

func fixClock(t *testing.T, times ...time.Time) {
	t.Helper()
	prev := Now
	i := 0
	Now = func() time.Time {
		tm := times[i]
		if i < len(times)-1 {
			i++
		}
		return tm
	}
	t.Cleanup(func() { Now = prev })
}

func TestInsert_SetsIDAndTimestamps(t *testing.T) {
	db := openMemory(t)

	rec := &sample{Name: "test"}
	require.NoError(t, Insert(context.Background(), db, rec))

	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())
	assert.True(t, rec.CreatedAt.Equal(rec.UpdatedAt))

	second := &sample{Name: "other"}
	require.NoError(t, Insert(context.Background(), db, second))
	assert.NotEqual(t, rec.ID, second.ID)
}

func TestFields_ExtendBaseAndRoundTripISO(t *testing.T) {
	db := openMemory(t)

	rec := &sample{Name: "test"}
	require.NoError(t, Insert(context.Background(), db, rec))

	data := rec.Fields()
	assert.Equal(t, rec.ID, data["id"])
	assert.Equal(t, "test", data["name"])

	created, err := ParseISO(data["created_at"].(string))
	require.NoError(t, err)
	updated, err := ParseISO(data["updated_at"].(string))
	require.NoError(t, err)
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.True(t, updated.Equal(rec.UpdatedAt))
}

func TestFields_UnsetTimestampsAreNil(t *testing.T) {
	data := (&Record{}).Fields()
	assert.Nil(t, data["created_at"])
	assert.Nil(t, data["updated_at"])
	assert.Equal(t, int64(0), data["id"])
}

func TestGet_TimestampsSurviveStorage(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	rec := &sample{Name: "persisted"}
	require.NoError(t, Insert(ctx, db, rec))

	var got sample
	require.NoError(t, Get(ctx, db, &got, rec.ID))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "persisted", got.Name)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt), "%v != %v", got.CreatedAt, rec.CreatedAt)
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt), "%v != %v", got.UpdatedAt, rec.UpdatedAt)
}

func TestUpdate_RefreshesUpdatedAtOnly(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC)
	fixClock(t, t0, t0.Add(time.Minute))

	rec := &sample{Name: "before"}
	require.NoError(t, Insert(ctx, db, rec))

	rec.Name = "after"
	require.NoError(t, Update(ctx, db, rec))
	assert.True(t, rec.CreatedAt.Equal(t0))
	assert.True(t, rec.UpdatedAt.Equal(t0.Add(time.Minute)))

	var got sample
	require.NoError(t, Get(ctx, db, &got, rec.ID))
	assert.Equal(t, "after", got.Name)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestUpdate_SameInstantStillAdvances(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fixClock(t, t0)

	rec := &sample{Name: "x"}
	require.NoError(t, Insert(ctx, db, rec))
	require.NoError(t, Update(ctx, db, rec))

	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt))
}

func TestUpdate_Errors(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	assert.ErrorIs(t, Update(ctx, db, &sample{Name: "new"}), ErrNotPersisted)

	ghost := &sample{Record: Record{ID: 9999}, Name: "ghost"}
	assert.ErrorIs(t, Update(ctx, db, ghost), ErrNotFound)
	assert.True(t, ghost.UpdatedAt.IsZero(), "failed update leaves timestamp untouched")
}

func TestGet_NotFound(t *testing.T) {
	db := openMemory(t)

	var got sample
	assert.ErrorIs(t, Get(context.Background(), db, &got, 42), ErrNotFound)
}

func TestMaterialize_IsAdditive(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, Insert(ctx, db, &sample{Name: "keep"}))
	require.NoError(t, Materialize(ctx, db, database.SQLite, &sample{}))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sample_models`))
	assert.Equal(t, 1, n)
}

func TestCreateTableSQL_Dialects(t *testing.T) {
	pg := CreateTableSQL(database.Postgres, &sample{})
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS sample_models (\n"+
		"\tid SERIAL PRIMARY KEY,\n"+
		"\tname VARCHAR(50) NOT NULL,\n"+
		"\tcreated_at TIMESTAMP NOT NULL,\n"+
		"\tupdated_at TIMESTAMP NOT NULL\n)", pg)

	my := CreateTableSQL(database.MySQL, &sample{})
	assert.Contains(t, my, "AUTO_INCREMENT PRIMARY KEY")
	assert.Contains(t, my, "created_at DATETIME(6) NOT NULL")

	lite := CreateTableSQL(database.SQLite, &sample{})
	assert.Contains(t, lite, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Equal(t, "DROP TABLE IF EXISTS sample_models", DropTableSQL(&sample{}))
}

func TestInsert_PostgresUsesReturning(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "pgx")

	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO sample_models (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
	)).
		WithArgs("pg", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	rec := &sample{Name: "pg"}
	require.NoError(t, Insert(context.Background(), db, rec))
	assert.Equal(t, int64(7), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_FailureRestoresRecord(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "pgx")

	mock.ExpectQuery(`INSERT INTO sample_models`).WillReturnError(assert.AnError)

	rec := &sample{Name: "pg"}
	err = Insert(context.Background(), db, rec)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, rec.ID)
	assert.True(t, rec.CreatedAt.IsZero())
}

func TestRegistry(t *testing.T) {
	Register(&sample{})
	t.Cleanup(func() {
		mu.Lock()
		delete(registry, "sample_models")
		mu.Unlock()
	})

	var names []string
	for _, e := range Registered() {
		names = append(names, e.TableName())
	}
	assert.Contains(t, names, "sample_models")
}
