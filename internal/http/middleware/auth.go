package middleware

import (
	"net/http"

	"todo-backend/internal/apperr"
	"todo-backend/internal/response"
	"todo-backend/pkg/security"
)

// Identity is the authenticated caller, taken from a verified access token.
type Identity struct {
	UserID string
	Email  string
}

// AuthedHandlerFunc is a handler that only runs for an authenticated caller.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, id Identity)

// RequireJWT verifies the bearer token and hands the caller's identity to
// next. Missing, malformed and expired tokens all get 401 INVALID_TOKEN.
func RequireJWT(issuer *security.Issuer, next AuthedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := security.BearerToken(r)
		if err != nil {
			response.WriteError(w, nil, apperr.InvalidToken())
			return
		}
		claims, err := issuer.VerifyAccessToken(raw)
		if err != nil {
			response.WriteError(w, nil, apperr.InvalidToken())
			return
		}
		next(w, r, Identity{UserID: claims.UserID(), Email: claims.Email})
	}
}
