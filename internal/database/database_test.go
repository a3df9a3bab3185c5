// internal/database/database_test.go
//
// URI parsing, pool opening, and session lifecycle.  Driver-level behaviour
// is checked with sqlmock; the in-memory SQLite store is opened for real.

package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri     string
		dialect Dialect
		driver  string
		dsn     string
		memory  bool
	}{
		{"sqlite:///:memory:", SQLite, "sqlite", ":memory:", true},
		{"sqlite://", SQLite, "sqlite", ":memory:", true},
		{"sqlite:///app.db", SQLite, "sqlite", "app.db", false},
		{"sqlite:////var/lib/app.db", SQLite, "sqlite", "/var/lib/app.db", false},
		{"sqlite:///app.db?_pragma=foreign_keys(1)", SQLite, "sqlite", "app.db?_pragma=foreign_keys(1)", false},
		{"postgresql://u:p@localhost:5432/app", Postgres, "pgx", "postgresql://u:p@localhost:5432/app", false},
		{"postgres://u@db/app?sslmode=disable", Postgres, "pgx", "postgres://u@db/app?sslmode=disable", false},
		{"postgresql+psycopg2://u@db/app", Postgres, "pgx", "postgresql://u@db/app", false},
	}
	for _, tc := range cases {
		t.Run(tc.uri, func(t *testing.T) {
			got, err := ParseURI(tc.uri)
			require.NoError(t, err)
			assert.Equal(t, tc.dialect, got.Dialect)
			assert.Equal(t, tc.driver, got.Driver)
			assert.Equal(t, tc.dsn, got.DSN)
			assert.Equal(t, tc.memory, got.Memory)
		})
	}
}

func TestParseURI_MySQL(t *testing.T) {
	got, err := ParseURI("mysql+pymysql://u:p@db:3306/app?charset=utf8mb4")
	require.NoError(t, err)
	assert.Equal(t, MySQL, got.Dialect)
	assert.Equal(t, "mysql", got.Driver)
	assert.True(t, strings.HasPrefix(got.DSN, "u:p@tcp(db:3306)/app?"), got.DSN)
	assert.Contains(t, got.DSN, "parseTime=true")
	assert.Contains(t, got.DSN, "charset=utf8mb4")
}

func TestParseURI_Errors(t *testing.T) {
	_, err := ParseURI("")
	assert.ErrorIs(t, err, ErrEmptyURI)

	_, err = ParseURI("oracle://scott:tiger@db/orcl")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestOpen_MemoryPinnedToOneConnection(t *testing.T) {
	db, target, err := Open(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, target.Memory)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err = db.Exec(`CREATE TABLE probe (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM probe`))
	assert.Zero(t, n)
}

func TestHandle_Unbound(t *testing.T) {
	h := New()

	_, err := h.DB()
	assert.ErrorIs(t, err, ErrNotBound)
	_, err = h.Session()
	assert.ErrorIs(t, err, ErrNotBound)
	assert.ErrorIs(t, h.Ping(context.Background()), ErrNotBound)
	assert.NoError(t, h.Close())
}

func TestHandle_InitRebinds(t *testing.T) {
	h := New()
	ctx := context.Background()

	require.NoError(t, h.Init(ctx, Settings{URI: "sqlite:///:memory:"}))
	first, err := h.DB()
	require.NoError(t, err)
	_, err = first.Exec(`CREATE TABLE probe (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	require.NoError(t, h.Init(ctx, Settings{URI: "sqlite:///:memory:"}))
	second, err := h.DB()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Error(t, first.Ping(), "previous pool closed")

	var n int
	err = second.Get(&n, `SELECT COUNT(*) FROM probe`)
	assert.Error(t, err, "fresh store has no tables")

	require.NoError(t, h.Close())
	assert.Equal(t, Dialect(""), h.Dialect())
}

func TestHandle_InitBadURI(t *testing.T) {
	h := New()
	err := h.Init(context.Background(), Settings{})
	assert.ErrorIs(t, err, ErrEmptyURI)
}

func newMockHandle(t *testing.T) (*Handle, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	h := New()
	h.Bind(sqlx.NewDb(raw, "pgx"), Postgres, true)
	return h, mock
}

func TestSession_LazyBeginAndCommit(t *testing.T) {
	h, mock := newMockHandle(t)
	s, err := h.Session()
	require.NoError(t, err)
	assert.False(t, s.Active())
	assert.Equal(t, Postgres, s.Dialect())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE probe SET n = \$1`).WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ext, err := s.Ext(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Active())

	_, err = ext.ExecContext(context.Background(), ext.Rebind(`UPDATE probe SET n = ?`), 1)
	require.NoError(t, err)
	require.NoError(t, s.Commit())
	assert.False(t, s.Active())
	s.Remove()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_RemoveRollsBack(t *testing.T) {
	h, mock := newMockHandle(t)
	s, err := h.Session()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = s.Ext(context.Background())
	require.NoError(t, err)
	s.Remove()
	assert.False(t, s.Active())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_NoTransactionNoTraffic(t *testing.T) {
	h, mock := newMockHandle(t)
	s, err := h.Session()
	require.NoError(t, err)

	assert.NoError(t, s.Commit())
	assert.NoError(t, s.Rollback())
	s.Remove()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMiddleware_AttachesAndRemovesSession(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	var seen *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFrom(r.Context())
		require.NotNil(t, seen)
		_, err := seen.Ext(r.Context())
		require.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	Middleware(h)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, seen.Active(), "uncommitted work rolled back at teardown")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMiddleware_UnboundHandle(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, SessionFrom(r.Context()))
	})

	Middleware(New())(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
