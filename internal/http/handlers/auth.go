package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"todo-backend/internal/http/middleware"
	"todo-backend/internal/response"
	"todo-backend/internal/services"
	"todo-backend/pkg/schema"
)

type AuthHandler struct {
	svc *services.AuthService
	log *zap.Logger
}

func NewAuthHandler(svc *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in schema.RegisterRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	resp, err := h.svc.Register(r.Context(), services.RegisterInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Meta:     sessionMeta(r),
	})
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in schema.LoginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	resp, err := h.svc.Login(r.Context(), services.LoginInput{
		Email:    in.Email,
		Password: in.Password,
		Meta:     sessionMeta(r),
	})
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in schema.RefreshRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	resp, err := h.svc.Refresh(r.Context(), in.RefreshToken, sessionMeta(r))
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var in schema.RefreshRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	if err := h.svc.Logout(r.Context(), in.RefreshToken); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	if err := h.svc.LogoutAll(r.Context(), id.UserID); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	user, err := h.svc.Me(r.Context(), id.UserID)
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, user)
}
