package middleware

import (
	"net/http"
	"time"
)

// RequestObserver принимает длительность обработанного запроса.
type RequestObserver interface {
	ObserveRequest(method string, status int, d time.Duration)
}

// Metrics передаёт длительность и статус каждого запроса в observer.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw, data := wrapResponse(w)

			next.ServeHTTP(lw, r)

			observer.ObserveRequest(r.Method, data.code(), time.Since(start))
		})
	}
}
