// Package database centralises sqlx connection helpers.  A database URI picks
// both the driver and the SQL dialect:
//
//	postgres://…, postgresql://…   → jackc/pgx (stdlib adapter)
//	mysql://user:pw@host:3306/db   → go-sql-driver/mysql
//	sqlite:///:memory:, sqlite:///path.db → modernc.org/sqlite
//
// Public entry points:
//
//	ParseURI(uri)                        – URI → driver, DSN, and dialect.
//	Open(ctx, uri)                       – conservative pool sizes.
//	OpenWithOptions(ctx, uri, opts)      – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  In-memory SQLite pools are pinned to one connection
// that never expires, because every new connection would see an empty
// database.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

var (
	ErrEmptyURI          = errors.New("database: empty URI")
	ErrUnsupportedScheme = errors.New("database: unsupported URI scheme")
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Target is a parsed database URI.
type Target struct {
	Dialect Dialect
	Driver  string // database/sql driver name
	DSN     string // driver-specific data source name
	Memory  bool   // ephemeral in-process store
}

// ParseURI maps a URI onto a registered driver.  A "+driver" suffix on the
// scheme (postgresql+psycopg2) is ignored.
func ParseURI(uri string) (Target, error) {
	if strings.TrimSpace(uri) == "" {
		return Target{}, ErrEmptyURI
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Target{}, fmt.Errorf("database: parse URI: %w", err)
	}

	scheme, _, _ := strings.Cut(strings.ToLower(u.Scheme), "+")
	switch scheme {
	case "postgres", "postgresql":
		u.Scheme = scheme
		return Target{Dialect: Postgres, Driver: "pgx", DSN: u.String()}, nil

	case "mysql":
		return Target{Dialect: MySQL, Driver: "mysql", DSN: mysqlDSN(u)}, nil

	case "sqlite", "sqlite3":
		// sqlite:///rel.db → "rel.db", sqlite:////abs.db → "/abs.db"
		path := strings.TrimPrefix(u.Path, "/")
		memory := path == "" || path == ":memory:"
		if memory {
			path = ":memory:"
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return Target{Dialect: SQLite, Driver: "sqlite", DSN: path, Memory: memory}, nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.ParseTime = true
	if q := u.Query(); len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}
	return cfg.FormatDSN()
}

// Options tunes the pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions: 15 max open, 5 idle, and a 30-minute connection lifetime.
var DefaultOptions = Options{MaxOpenConns: 15, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}

// Open returns a pinged *sqlx.DB using DefaultOptions.
func Open(ctx context.Context, uri string) (*sqlx.DB, Target, error) {
	return OpenWithOptions(ctx, uri, DefaultOptions)
}

// OpenWithOptions lets callers tune the pool.
func OpenWithOptions(ctx context.Context, uri string, opts Options) (*sqlx.DB, Target, error) {
	t, err := ParseURI(uri)
	if err != nil {
		return nil, Target{}, err
	}

	db, err := sqlx.Open(t.Driver, t.DSN)
	if err != nil {
		return nil, Target{}, fmt.Errorf("database: open %s: %w", t.Dialect, err)
	}

	if t.Memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Target{}, fmt.Errorf("database: ping %s: %w", t.Dialect, err)
	}
	return db, t, nil
}
