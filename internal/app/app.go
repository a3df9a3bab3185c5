// internal/app/app.go
//
// Application assembler.
//
// Context
// -------
// New is the single way to build a request-ready instance.  Every call
// produces independent state: its own Config, router, route table, and
// persistence handle (unless the caller threads one in with WithHandle).
//
// Workflow
// --------
//  1. Resolve the environment name (explicit, $APP_ENV, or development).
//  2. Build a fresh chi router with the static directory served from "/".
//  3. Load the configuration bundle for that environment.
//  4. Bind the persistence handle.
//  5. Register the api and static blueprints (plus any extras) and mount.
//  6. Inside WithContext, ensure every registered entity table exists.
//
// Notes
// -----
//   - Any failing step aborts assembly and closes what was already bound.
//   - Schema materialisation is additive: CREATE TABLE IF NOT EXISTS only.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cyberitance/backend/internal/config"
	"github.com/cyberitance/backend/internal/database"
	"github.com/cyberitance/backend/internal/metrics"
	"github.com/cyberitance/backend/internal/middleware"
	"github.com/cyberitance/backend/internal/model"
	"github.com/cyberitance/backend/internal/requestinfo"
	"github.com/cyberitance/backend/internal/respond"
	"github.com/cyberitance/backend/internal/routes/api"
	"github.com/cyberitance/backend/internal/routes/static"
	"github.com/cyberitance/backend/internal/routing"
)

/*──────────────────────────── options ──────────────────────────────────────*/

type options struct {
	handle     *database.Handle
	entities   []model.Entity
	blueprints []*routing.Blueprint
	config     []config.Option
	loaded     *config.Config
}

// Option customises New.
type Option func(*options)

// WithHandle threads an existing persistence handle into the instance.
// New still binds it to the configured database.
func WithHandle(h *database.Handle) Option {
	return func(o *options) { o.handle = h }
}

// WithEntities adds entities to schema materialisation on top of
// model.Registered().
func WithEntities(e ...model.Entity) Option {
	return func(o *options) { o.entities = append(o.entities, e...) }
}

// WithBlueprints registers extra route groups after api and static.
func WithBlueprints(bp ...*routing.Blueprint) Option {
	return func(o *options) { o.blueprints = append(o.blueprints, bp...) }
}

// WithSecretResolver enables `vault:` references in the configuration.
func WithSecretResolver(r config.SecretResolver) Option {
	return func(o *options) { o.config = append(o.config, config.WithSecretResolver(r)) }
}

// WithConfig assembles from an already loaded configuration instead of
// calling config.Load again.  The env argument of New must be empty or
// equal cfg.Env.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.loaded = cfg }
}

// WithConfigFile forces the YAML configuration layer to path.
func WithConfigFile(path string) Option {
	return func(o *options) { o.config = append(o.config, config.WithFile(path)) }
}

/*──────────────────────────── instance ─────────────────────────────────────*/

// App is one assembled application instance.
type App struct {
	cfg      *config.Config
	handle   *database.Handle
	router   chi.Router
	table    *routing.Table
	geo      *requestinfo.Locator
	entities []model.Entity
}

// New assembles an instance for env.  An empty env defers to $APP_ENV
// (from the process or <root>/.env), then $FLASK_ENV, then development.
func New(ctx context.Context, env string, opts ...Option) (a *App, err error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	if o.loaded != nil {
		if env != "" && env != o.loaded.Env {
			return nil, fmt.Errorf("app: config: env %q does not match loaded %q", env, o.loaded.Env)
		}
		env = o.loaded.Env
	} else {
		config.LoadDotEnv()
		env = config.Resolve(env)
	}
	log := zap.S().With("env", env)

	a = &App{
		router: chi.NewRouter(),
		table:  routing.NewTable(),
		handle: o.handle,
	}
	if a.handle == nil {
		a.handle = database.New()
	}

	cfg := o.loaded
	if cfg == nil {
		if cfg, err = config.Load(ctx, env, o.config...); err != nil {
			return nil, fmt.Errorf("app: config: %w", err)
		}
	}
	a.cfg = cfg

	if err := a.handle.Init(ctx, database.Settings{
		URI:  cfg.Database.URI,
		Echo: cfg.Database.Echo,
	}); err != nil {
		return nil, fmt.Errorf("app: database: %w", err)
	}
	bound := a.handle
	defer func() {
		if err != nil {
			if cerr := bound.Close(); cerr != nil {
				log.Warnw("handle close after failed assembly", "err", cerr)
			}
		}
	}()

	if path := cfg.GeoIP.DBPath; path != "" {
		geo, gerr := requestinfo.OpenLocator(path)
		if gerr != nil {
			return nil, fmt.Errorf("app: geoip: %w", gerr)
		}
		defer func() {
			if err != nil {
				_ = geo.Close()
			}
		}()
		a.geo = geo
	}

	if err = a.mount(o.blueprints); err != nil {
		return nil, fmt.Errorf("app: routes: %w", err)
	}

	a.entities = append(model.Registered(), o.entities...)
	if err = a.WithContext(ctx, a.materialize); err != nil {
		return nil, fmt.Errorf("app: schema: %w", err)
	}

	log.Infow("application assembled",
		"dialect", a.handle.Dialect(),
		"routes", len(a.table.Entries()),
		"entities", len(a.entities))
	return a, nil
}

// mount installs instance middleware, every blueprint, and the error
// handlers.
func (a *App) mount(extra []*routing.Blueprint) error {
	dir := a.staticDir()

	// Metrics sits outside Recover so faulted requests are counted as 500s.
	a.router.Use(
		database.Middleware(a.handle),
		middleware.Metrics,
		middleware.Recover,
		chimw.GetHead,
		requestinfo.Enrich(a.geo),
		middleware.Security,
		middleware.ForceHTTPS(a.cfg.HTTP.ForceHTTPS),
	)

	groups := append([]*routing.Blueprint{api.Blueprint(), static.Blueprint(dir)}, extra...)
	for _, bp := range groups {
		if err := a.table.Register(bp); err != nil {
			return err
		}
	}
	if err := a.table.Mount(a.router); err != nil {
		return err
	}

	a.router.NotFound(static.Fallback(dir))
	a.router.MethodNotAllowed(respond.NotFound)
	return nil
}

func (a *App) staticDir() string {
	dir := a.cfg.HTTP.StaticDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.cfg.Paths.Root, dir)
	}
	return dir
}

func (a *App) materialize(ctx context.Context, s *database.Session) error {
	if len(a.entities) == 0 {
		return nil
	}
	x, err := s.Ext(ctx)
	if err != nil {
		return err
	}
	if err := model.Materialize(ctx, x, s.Dialect(), a.entities...); err != nil {
		return err
	}
	metrics.TablesMaterializedTotal.Add(float64(len(a.entities)))
	return nil
}

// WithContext runs fn inside the scoped application context: a fresh
// session is attached to ctx, committed when fn succeeds, and always
// removed on exit.
func (a *App) WithContext(ctx context.Context, fn func(context.Context, *database.Session) error) error {
	s, err := a.handle.Session()
	if err != nil {
		return err
	}
	defer s.Remove()

	if err := fn(database.WithSession(ctx, s), s); err != nil {
		return err
	}
	return s.Commit()
}

// Handler is the root http.Handler.
func (a *App) Handler() http.Handler { return a.router }

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Handle returns the bound persistence handle.
func (a *App) Handle() *database.Handle { return a.handle }

// Routes lists the mounted routes.
func (a *App) Routes() []routing.Entry { return a.table.Entries() }

// Close releases the persistence handle and the GeoIP database.
func (a *App) Close() error {
	if a == nil {
		return errors.New("app: nil instance")
	}
	return errors.Join(a.handle.Close(), a.geo.Close())
}
