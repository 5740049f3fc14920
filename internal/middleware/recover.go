package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Recover recovers from panics and logs the error
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				stack := string(debug.Stack())
				m.log.Error().
					Interface("error", err).
					Str("stack", stack).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("request_id", GetRequestID(r.Context())).
					Msg("panic recovered")

				body := errorBody{
					Error:   "internal_error",
					Message: "An unexpected error occurred",
				}
				if !m.cfg.IsProduction() {
					body.Detail = fmt.Sprint(err)
					body.Stack = stack
				}
				writeError(w, http.StatusInternalServerError, body)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
