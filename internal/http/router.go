package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"todo-backend/internal/http/handlers"
	"todo-backend/internal/http/middleware"
	"todo-backend/internal/obs"
	"todo-backend/pkg/security"
)

type Deps struct {
	Auth    *handlers.AuthHandler
	Todos   *handlers.TodoHandler
	Issuer  *security.Issuer
	Limiter *middleware.IPLimiter
	Metrics *obs.Metrics
	Ping    func(context.Context) error
}

func Routes(mux *http.ServeMux, d Deps) {
	authed := func(h middleware.AuthedHandlerFunc) http.HandlerFunc {
		return middleware.RequireJWT(d.Issuer, h)
	}
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RateLimit(d.Limiter, h)
	}

	// Auth
	mux.HandleFunc("POST /auth/register", limited(d.Auth.Register))
	mux.HandleFunc("POST /auth/login", limited(d.Auth.Login))
	mux.HandleFunc("POST /auth/refresh", limited(d.Auth.Refresh))
	mux.HandleFunc("POST /auth/logout", d.Auth.Logout)
	mux.HandleFunc("POST /auth/logout-all", authed(d.Auth.LogoutAll))
	mux.HandleFunc("GET /auth/me", authed(d.Auth.Me))

	// Todos
	mux.HandleFunc("GET /todos", authed(d.Todos.List))
	mux.HandleFunc("POST /todos", authed(d.Todos.Create))
	mux.HandleFunc("GET /todos/{id}", authed(d.Todos.Get))
	mux.HandleFunc("PATCH /todos/{id}", authed(d.Todos.Update))
	mux.HandleFunc("DELETE /todos/{id}", authed(d.Todos.Delete))

	// Ops
	mux.HandleFunc("GET /healthz", handlers.Health(d.Ping))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
}

// Wrap applies the cross-cutting middleware to the routed mux.
func Wrap(mux http.Handler, log *zap.Logger, metrics *obs.Metrics, corsOrigin string) http.Handler {
	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recover(log),
		middleware.Metrics(metrics),
		middleware.CORS(corsOrigin),
	)
}
