package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/cyberitance/backend/internal/metrics"
	"github.com/cyberitance/backend/internal/respond"
)

// Recover turns a handler panic into the instance's 500 response.  It must
// sit inside database.Middleware so the request session is still reachable
// for rollback.  http.ErrAbortHandler is re-raised untouched.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.PanicsRecoveredTotal.Inc()
			zap.L().Error("handler panic",
				zap.Any("panic", rec),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()))
			respond.Internal(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
