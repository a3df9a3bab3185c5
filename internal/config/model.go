// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the tree that `loader.go` builds from
// four overlay layers:
//
//   - optional `.env`                               – dotenv values,
//   - the environment Bundle plus ambient defaults  – confmap,
//   - optional YAML file                            – operator overrides,
//   - `CYBERITANCE_`-prefixed environment overrides – highest precedence.
//
// Values beginning with `vault:` are resolved through a SecretResolver
// after unmarshalling, so the model never keeps Vault references.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	StaticDir    string        `koanf:"static_dir"    validate:"required"`
	ForceHTTPS   bool          `koanf:"force_https"`
}

// Database holds the connection URI and the SQL echo switch.
type Database struct {
	URI  string `koanf:"uri"  validate:"required"`
	Echo bool   `koanf:"echo"`
}

// Metrics configures the Prometheus listener.  An empty address disables it.
type Metrics struct {
	ListenAddr string `koanf:"listen_addr" validate:"omitempty,hostname_port"`
}

// GeoIP points request enrichment at a GeoLite2-City database.  An empty
// path disables geolocation.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Log configures the rotating file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Tee   bool   `koanf:"tee"`
	Debug bool   `koanf:"debug"`
}

// Paths is resolved at runtime.
type Paths struct {
	Root string
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	Env       string   `koanf:"env"        validate:"oneof=development testing production default"`
	Debug     bool     `koanf:"debug"`
	Testing   bool     `koanf:"testing"`
	SecretKey string   `koanf:"secret_key" validate:"required"`
	HTTP      HTTP     `koanf:"http"`
	Database  Database `koanf:"database"`
	Metrics   Metrics  `koanf:"metrics"`
	Log       Log      `koanf:"log"`
	GeoIP     GeoIP    `koanf:"geoip"`
	Paths     Paths    `koanf:"-"`
}

// Bundle projects the environment-specific fields back out of c.
func (c *Config) Bundle() Bundle {
	return Bundle{
		Debug:       c.Debug,
		Testing:     c.Testing,
		SecretKey:   c.SecretKey,
		DatabaseURI: c.Database.URI,
		EchoSQL:     c.Database.Echo,
	}
}
