package middleware

import (
	"net/http"
	"time"

	"todo-backend/internal/obs"
)

// Metrics records request count and latency per route pattern, so
// /todos/{id} is one series regardless of the id.
func Metrics(m *obs.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, rec.status, time.Since(start))
		})
	}
}
