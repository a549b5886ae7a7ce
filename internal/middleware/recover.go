package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Recoverer перехватывает панику обработчика и отвечает 500 в формате API.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
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

				logger.Error("panic recovered",
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "Internal Server Error",
					"message": fmt.Sprint(rec),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
