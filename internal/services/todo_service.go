package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"todo-backend/internal/apperr"
	"todo-backend/internal/models"
	"todo-backend/internal/store"
	"todo-backend/pkg/schema"
)

type todoFields struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"oneof=low medium high"`
}

type listParams struct {
	Status string `json:"status" validate:"omitempty,oneof=all active completed"`
	Sort   string `json:"sort" validate:"omitempty,oneof=createdAt dueDate title priority"`
	Order  string `json:"order" validate:"omitempty,oneof=asc desc"`
}

// TodoService is todo CRUD on behalf of an authenticated user.
type TodoService struct {
	todos    *store.TodoStore
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger
}

func NewTodoService(todos *store.TodoStore, now func() time.Time, log *zap.Logger) *TodoService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TodoService{todos: todos, validate: newValidator(), now: now, log: log.Named("todos")}
}

func (s *TodoService) List(ctx context.Context, userID string, q schema.ListTodosQuery) ([]schema.Todo, error) {
	if err := validate(s.validate, listParams{Status: q.Status, Sort: q.Sort, Order: q.Order}); err != nil {
		return nil, err
	}

	f := store.TodoFilter{Search: q.Search, Sort: q.Sort, Desc: q.Order == "desc"}
	if f.Sort == "" {
		// newest first unless asked otherwise
		f.Sort, f.Desc = "createdAt", q.Order != "asc"
	}
	switch q.Status {
	case "active":
		f.Completed = new(bool)
	case "completed":
		done := true
		f.Completed = &done
	}

	rows, err := s.todos.List(ctx, userID, f)
	if err != nil {
		return nil, s.internal("list", err)
	}
	out := make([]schema.Todo, len(rows))
	for i := range rows {
		out[i] = rows[i].ToSchema()
	}
	return out, nil
}

func (s *TodoService) Create(ctx context.Context, userID string, req schema.CreateTodoRequest) (*schema.Todo, error) {
	fields := todoFields{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    string(req.Priority),
	}
	if fields.Priority == "" {
		fields.Priority = string(schema.PriorityMedium)
	}
	if err := validate(s.validate, fields); err != nil {
		return nil, err
	}

	now := s.now()
	todo := models.Todo{
		UserID:      userID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		DueDate:     utcPtr(req.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.todos.Create(ctx, &todo); err != nil {
		return nil, s.internal("create", err)
	}
	out := todo.ToSchema()
	return &out, nil
}

func (s *TodoService) Get(ctx context.Context, userID, id string) (*schema.Todo, error) {
	todo, err := s.todos.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("todo")
	}
	if err != nil {
		return nil, s.internal("get", err)
	}
	out := todo.ToSchema()
	return &out, nil
}

// Update applies the non-nil fields of req.
func (s *TodoService) Update(ctx context.Context, userID, id string, req schema.UpdateTodoRequest) (*schema.Todo, error) {
	todo, err := s.todos.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("todo")
	}
	if err != nil {
		return nil, s.internal("update", err)
	}

	if req.Title != nil {
		todo.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.Priority != nil {
		todo.Priority = string(*req.Priority)
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.DueDate != nil {
		todo.DueDate = utcPtr(req.DueDate)
	}
	if req.ClearDueDate {
		todo.DueDate = nil
	}
	if err := validate(s.validate, todoFields{Title: todo.Title, Description: todo.Description, Priority: todo.Priority}); err != nil {
		return nil, err
	}
	todo.UpdatedAt = s.now()

	if err := s.todos.Save(ctx, todo); errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("todo")
	} else if err != nil {
		return nil, s.internal("update", err)
	}
	out := todo.ToSchema()
	return &out, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	err := s.todos.Delete(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("todo")
	}
	if err != nil {
		return s.internal("delete", err)
	}
	return nil
}

func (s *TodoService) internal(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	return apperr.Internal(err)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
