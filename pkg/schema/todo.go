package schema

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateTodoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// UpdateTodoRequest is a partial update; nil fields are left unchanged.
type UpdateTodoRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	// ClearDueDate removes the due date; it wins over DueDate.
	ClearDueDate bool `json:"clearDueDate,omitempty"`
}

type TodoList struct {
	Data []Todo `json:"data"`
}

// ListTodosQuery mirrors the query string accepted by GET /todos.
type ListTodosQuery struct {
	Status string // all, active, completed
	Search string
	Sort   string // createdAt, dueDate, title, priority
	Order  string // asc, desc
}
