package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"todo-backend/internal/apperr"
	"todo-backend/pkg/schema"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErr writes the standard error envelope.
func WriteErr(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, schema.ErrorResponse{Error: schema.ErrorBody{Code: code, Message: message}})
}

// WriteError maps err onto its status and wire code. Internal failures are
// logged with their cause and reported to the caller without it.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	WriteErr(w, ae.Status(), ae.Code, ae.Message)
}
