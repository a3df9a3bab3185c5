// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// `loader.go` calls `validateStruct` once the overlays are merged and secret
// references resolved.  Any failure aborts startup, so the binary never runs
// with a missing database URI or secret key.  Production relies on this: its
// bundle leaves the URI empty unless DATABASE_URL is set.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// validateStruct returns nil on success, or one error naming every failing
// field by its dotted koanf path.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fieldPath(f.Namespace()), f.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

// fieldPath turns "Config.Database.URI" into "Database.URI".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i != -1 {
		return ns[i+1:]
	}
	return ns
}
