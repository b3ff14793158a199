package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
)

// Recovery turns a panicking handler into a 500 with an UNKNOWN error body.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Log("panic recovered", logger.CategoryGeneral, logger.LevelError, logger.Fields(
					"error", fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				))
				writeJSON(w, http.StatusInternalServerError, errors.Unknown("internal server error").ToResponse())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
