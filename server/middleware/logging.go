package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/artcache/logger"
)

// RequestLogger logs every request with method, path, status code and
// duration under the "ui" category. Health-check paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				logger.FieldDuration, duration.Milliseconds(),
			)
			if duration > 500*time.Millisecond {
				fields["slow"] = true
			}
			log.WithContext(r.Context()).Log("request completed", logger.CategoryUI, levelFor(sw.status), fields)
		})
	}
}

func isHealthEndpoint(path string) bool {
	switch strings.TrimSuffix(path, "/") {
	case "/health", "/alive", "/info":
		return true
	}
	return false
}

func levelFor(status int) logger.Level {
	switch {
	case status >= 500:
		return logger.LevelError
	case status >= 400:
		return logger.LevelWarn
	default:
		return logger.LevelDebug
	}
}
