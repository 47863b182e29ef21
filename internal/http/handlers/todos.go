package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"todo-backend/internal/http/middleware"
	"todo-backend/internal/response"
	"todo-backend/internal/services"
	"todo-backend/pkg/schema"
)

type TodoHandler struct {
	svc *services.TodoService
	log *zap.Logger
}

func NewTodoHandler(svc *services.TodoService, log *zap.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: log}
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	q := r.URL.Query()
	todos, err := h.svc.List(r.Context(), id.UserID, schema.ListTodosQuery{
		Status: q.Get("status"),
		Search: q.Get("q"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	})
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, schema.TodoList{Data: todos})
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	var in schema.CreateTodoRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	todo, err := h.svc.Create(r.Context(), id.UserID, in)
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	todo, err := h.svc.Get(r.Context(), id.UserID, r.PathValue("id"))
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	var in schema.UpdateTodoRequest
	if err := decodeJSON(w, r, &in); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	todo, err := h.svc.Update(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	if err := h.svc.Delete(r.Context(), id.UserID, r.PathValue("id")); err != nil {
		response.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
