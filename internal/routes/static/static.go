// Package static serves the public/ directory from the URL root.
//
// "/" answers with index.html through the static blueprint.  Every other
// file is reached through Fallback, which the assembler installs as the
// router's not-found handler: existing files are served, anything else gets
// the JSON 404.
package static

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/cyberitance/backend/internal/middleware"
	"github.com/cyberitance/backend/internal/respond"
	"github.com/cyberitance/backend/internal/routing"
)

const Name = "static"

// Blueprint returns the static group rooted at dir.
func Blueprint(dir string) *routing.Blueprint {
	return routing.New(Name, "").
		Use(middleware.LogRequests(zapcore.DebugLevel)).
		Get("/", index(dir))
}

func index(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, r, filepath.Join(dir, "index.html"))
	}
}

// Fallback serves files under dir for GET and HEAD and answers everything
// else with respond.NotFound.  Directories are never listed.
func Fallback(dir string) http.HandlerFunc {
	logged := middleware.LogRequests(zapcore.DebugLevel)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respond.NotFound(w, r)
			return
		}
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/" || strings.HasSuffix(r.URL.Path, "/") {
			respond.NotFound(w, r)
			return
		}
		p := filepath.Join(dir, filepath.FromSlash(clean))
		logged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serveFile(w, r, p)
		})).ServeHTTP(w, r)
	}
}

// serveFile answers with the regular file at p, or the JSON 404.
// /index.html is served in place, never redirected to its directory.
func serveFile(w http.ResponseWriter, r *http.Request, p string) {
	f, err := os.Open(p)
	if err != nil {
		respond.NotFound(w, r)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		respond.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}
