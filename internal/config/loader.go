// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` for a named environment from four
layers (highest precedence last):

 1. Optional `<root>/.env` file (never overrides variables already set).
 2. The environment's Bundle plus ambient defaults.
 3. Optional YAML file: `$CYBERITANCE_CONFIG`, else `<root>/conf/app.yaml`.
 4. Environment variables prefixed `CYBERITANCE_`, where `__` maps to "."
    (e.g., `CYBERITANCE_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled, `vault:` references are resolved,
the testing store is pinned back to memory, and the struct is validated.

Instrumentation
---------------
  - DEBUG spans: root discovery, YAML read, env overlay.
  - ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  - INFO span: final "config loaded" with key highlights.
  - Logs use the global sugared logger (`zap.S()`); before cmd/web installs
    the file logger these are no-ops.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "CYBERITANCE_"
	envRoot   = envPrefix + "ROOT"
	envFile   = envPrefix + "CONFIG"

	secretPrefix = "vault:"
)

// SecretResolver turns a `vault:`-prefixed reference into its plain value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type loadOptions struct {
	resolver SecretResolver
	file     string
}

// Option customises Load.
type Option func(*loadOptions)

// WithSecretResolver enables `vault:` references in secret_key and
// database.uri.
func WithSecretResolver(r SecretResolver) Option {
	return func(o *loadOptions) { o.resolver = r }
}

// WithFile forces the YAML layer to path.  A missing file is an error.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.file = path }
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CYBERITANCE_ROOT or climbs directories until conf/app.yaml
// is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv(envRoot); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "app.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// LoadDotEnv loads <root>/.env into the process environment and returns the
// root.  Variables already set are left alone and a missing file is not an
// error.  Callers that resolve the environment name before Load must call
// it first so APP_ENV from .env is seen.
func LoadDotEnv() string {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)
	_ = godotenv.Load(filepath.Join(root, ".env"))
	return root
}

// Load resolves the environment name, layers the configuration sources,
// and returns a validated Config.  An empty name defers to $APP_ENV.
func Load(ctx context.Context, name string, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, fn := range opts {
		fn(&o)
	}

	root := LoadDotEnv()

	name = Resolve(name)
	bundle, err := Lookup(name)
	if err != nil {
		zap.S().Errorw("config environment lookup failed", "env", name, "err", err)
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(name, bundle), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path, required := yamlPath(root, o.file); required || fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", path, "err", err)
			return nil, fmt.Errorf("config: yaml %s: %w", path, err)
		}
		zap.S().Debugw("config yaml loaded", "file", path)
	}

	// Env overrides: CYBERITANCE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Env = name
	cfg.Paths.Root = root

	if err := resolveSecrets(ctx, &cfg, o.resolver); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	// Test isolation beats every overlay.
	if name == Testing || cfg.Testing {
		cfg.Testing = true
		cfg.Database.URI = MemoryDatabaseURI
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "env", name, "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"env", cfg.Env,
		"debug", cfg.Debug,
		"listen_addr", cfg.HTTP.ListenAddr,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// defaults flattens the bundle and the ambient settings into koanf keys.
func defaults(name string, b Bundle) map[string]any {
	return map[string]any{
		"env":                 name,
		"debug":               b.Debug,
		"testing":             b.Testing,
		"secret_key":          b.SecretKey,
		"database.uri":        b.DatabaseURI,
		"database.echo":       b.EchoSQL,
		"http.listen_addr":    ":5000",
		"http.read_timeout":   10 * time.Second,
		"http.write_timeout":  15 * time.Second,
		"http.idle_timeout":   60 * time.Second,
		"http.static_dir":     "public",
		"http.force_https":    false,
		"metrics.listen_addr": ":9090",
		"log.dir":             "logs",
		"log.tee":             true,
		"log.debug":           b.Debug || name == Development || name == Default,
		"geoip.db_path":       "",
	}
}

// yamlPath picks the YAML layer.  required reports whether a missing file is
// fatal.
func yamlPath(root, forced string) (path string, required bool) {
	if forced != "" {
		return forced, true
	}
	if p := os.Getenv(envFile); p != "" {
		return p, true
	}
	return filepath.Join(root, "conf", "app.yaml"), false
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func resolveSecrets(ctx context.Context, cfg *Config, r SecretResolver) error {
	for _, field := range []struct {
		key string
		val *string
	}{
		{"secret_key", &cfg.SecretKey},
		{"database.uri", &cfg.Database.URI},
	} {
		if !strings.HasPrefix(*field.val, secretPrefix) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config: %s references a secret but no resolver is configured", field.key)
		}
		plain, err := r.Resolve(ctx, strings.TrimPrefix(*field.val, secretPrefix))
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", field.key, err)
		}
		*field.val = plain
	}
	return nil
}
