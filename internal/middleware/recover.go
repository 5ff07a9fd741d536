package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"pedidos-app/internal/httpx"
)

func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")
					httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
