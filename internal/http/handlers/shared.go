package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"todo-backend/internal/apperr"
	"todo-backend/internal/http/middleware"
	"todo-backend/internal/store"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value so field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid JSON body")
	}
}

func sessionMeta(r *http.Request) store.SessionMeta {
	ua := r.UserAgent()
	if len(ua) > 255 {
		ua = ua[:255]
	}
	return store.SessionMeta{UserAgent: ua, IP: middleware.ClientIP(r)}
}
