package migrations

import (
	"context"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberitance/backend/internal/database"
	"github.com/cyberitance/backend/internal/model"
)

type widget struct {
	model.Record
	Label string `db:"label"`
}

func (w *widget) TableName() string { return "widgets" }
func (w *widget) Columns() []model.Column {
	return []model.Column{{Name: "label", Type: model.String, Size: 80}}
}
func (w *widget) Values() map[string]any { return map[string]any{"label": w.Label} }

func tableExists(t *testing.T, db interface {
	GetContext(context.Context, any, string, ...any) error
}, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name))
	return n == 1
}

func TestGooseDialect(t *testing.T) {
	for d, want := range map[database.Dialect]goose.Dialect{
		database.Postgres: goose.DialectPostgres,
		database.MySQL:    goose.DialectMySQL,
		database.SQLite:   goose.DialectSQLite3,
	} {
		got, err := GooseDialect(d)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := GooseDialect("oracle")
	assert.Error(t, err)
}

func TestProvider_UpStatusDown(t *testing.T) {
	ctx := context.Background()
	db, _, err := database.Open(ctx, "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p, err := NewProvider(db.DB, database.SQLite, &widget{})
	require.NoError(t, err)

	results, err := p.Up(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, tableExists(t, db, "widgets"))

	statuses, err := p.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, goose.StateApplied, statuses[0].State)
	assert.Equal(t, BaseVersion, statuses[0].Source.Version)

	_, err = p.Down(ctx)
	require.NoError(t, err)
	assert.False(t, tableExists(t, db, "widgets"))

	v, err := p.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)
}
