// Package api is the JSON API blueprint, mounted under /api.
package api

import (
	"net/http"

	"go.uber.org/zap/zapcore"

	"github.com/cyberitance/backend/internal/middleware"
	"github.com/cyberitance/backend/internal/respond"
	"github.com/cyberitance/backend/internal/routing"
)

const (
	Name   = "api"
	Prefix = "/api"
)

// Blueprint returns a fresh API group.  Each call builds new values so two
// application instances never share route state.
func Blueprint() *routing.Blueprint {
	return routing.New(Name, Prefix).
		Use(middleware.LogRequests(zapcore.InfoLevel)).
		Get("/health", health).
		Get("/status", status)
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Cyberitance backend is running",
	})
}

func status(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "API is running"})
}
