// Package respond writes the JSON bodies every endpoint and error handler
// returns.  User-visible failures are always {"error", "message"} objects;
// internal detail goes to the log, never to the client.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/cyberitance/backend/internal/database"
)

// Error is the body of every failure response.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var (
	notFound = Error{Error: "Not found", Message: "The requested resource was not found"}
	internal = Error{Error: "Internal server error", Message: "An unexpected error occurred"}
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

// NotFound is the instance-wide 404 handler.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusNotFound, notFound)
}

// Internal is the instance-wide 500 handler.  The request's open
// transaction is rolled back before the body is written so the connection
// goes back to the pool clean.
func Internal(w http.ResponseWriter, r *http.Request) {
	if s := database.SessionFrom(r.Context()); s != nil {
		if err := s.Rollback(); err != nil {
			zap.L().Error("rollback after fault failed", zap.Error(err))
		}
	}
	JSON(w, http.StatusInternalServerError, internal)
}

// Fault logs err and answers with Internal.  Handlers call it for errors
// they cannot recover from.
func Fault(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request fault",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	Internal(w, r)
}
