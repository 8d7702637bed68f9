package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/picstash/picstash-api/internal/pkg/logger"
	"github.com/picstash/picstash-api/internal/pkg/response"
)

// Recover turns a handler panic into a logged 500 instead of a dropped
// connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				response.InternalError(w, "An unexpected error occurred", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
