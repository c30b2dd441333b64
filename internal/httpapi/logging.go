package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestLogger logs one line per request after it completes. Probes and
// scrapes are logged at debug so they do not drown real traffic.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			ev := log.Info()
			if quietPath(r.URL.Path) {
				ev = log.Debug()
			}
			if ww.Status() >= http.StatusInternalServerError {
				ev = log.Error()
			}
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				ev = ev.Str("request_id", rid)
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("dur", time.Since(start)).
				Msg("request")
		})
	}
}

func quietPath(p string) bool {
	switch p {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

// requestLog returns the logger enriched with the request id.
func requestLog(log zerolog.Logger, r *http.Request) zerolog.Logger {
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		return log.With().Str("request_id", rid).Logger()
	}
	return log
}
