package database

import (
	"net/http"

	"go.uber.org/zap"
)

// Middleware gives every request its own Session, reachable through
// SessionFrom(r.Context()).  The session is removed when the handler
// returns, so uncommitted work never outlives the request.
func Middleware(h *Handle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := h.Session()
			if err != nil {
				// Unbound handle: serve without a session.
				zap.L().Warn("request without database session", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			defer s.Remove()
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
