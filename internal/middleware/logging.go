package middleware

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cyberitance/backend/internal/requestinfo"
)

// LogRequests logs "METHOD path" at level before the handler runs.  The API
// blueprint uses INFO; static assets only show up at DEBUG.  Client details
// are added when requestinfo.Enrich ran earlier in the chain.
func LogRequests(level zapcore.Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ce := zap.L().Check(level, "request"); ce != nil {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if info := requestinfo.FromContext(r.Context()); info != nil {
					fields = append(fields,
						zap.Stringer("ip", info.Geo.IP),
						zap.String("country", info.Geo.CountryISO),
						zap.String("browser", info.UA.Browser),
						zap.String("device", info.UA.Device),
						zap.Bool("bot", info.UA.IsBot),
					)
				}
				ce.Write(fields...)
			}
			next.ServeHTTP(w, r)
		})
	}
}
