package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"todo-backend/internal/models"
)

// TodoFilter narrows and orders a user's todo list. Zero values mean all
// todos, newest first.
type TodoFilter struct {
	Completed *bool
	Search    string
	Sort      string // createdAt, dueDate, title or priority
	Desc      bool
}

var todoSortColumns = map[string]string{
	"createdAt": "created_at",
	"dueDate":   "due_date",
	"title":     "LOWER(title)",
	"priority":  priorityRankSQL(),
}

// priorityRankSQL mirrors models.PriorityRank as a SQL expression.
func priorityRankSQL() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range models.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, models.PriorityRank(string(p)))
	}
	fmt.Fprintf(&b, " ELSE %d END", models.PriorityRank(""))
	return b.String()
}

// likePattern matches term as a literal substring under ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// TodoStore scopes every query to the owning user.
type TodoStore struct {
	db *gorm.DB
}

func NewTodoStore(db *gorm.DB) *TodoStore {
	return &TodoStore{db: db}
}

func (s *TodoStore) List(ctx context.Context, userID string, f TodoFilter) ([]models.Todo, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := likePattern(term)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}

	col, ok := todoSortColumns[f.Sort]
	if !ok {
		col = todoSortColumns["createdAt"]
		if f.Sort == "" {
			f.Desc = true
		}
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	if f.Sort == "dueDate" {
		// undated todos sort last in either direction
		q = q.Order("due_date IS NULL")
	}
	q = q.Order(col + " " + dir).Order("id ASC")

	var todos []models.Todo
	if err := q.Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (s *TodoStore) Get(ctx context.Context, userID, id string) (*models.Todo, error) {
	var todo models.Todo
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &todo, nil
}

func (s *TodoStore) Create(ctx context.Context, todo *models.Todo) error {
	if err := s.db.WithContext(ctx).Omit("User").Create(todo).Error; err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// Save writes every column of an existing todo owned by todo.UserID.
func (s *TodoStore) Save(ctx context.Context, todo *models.Todo) error {
	res := s.db.WithContext(ctx).
		Model(&models.Todo{}).
		Where("id = ? AND user_id = ?", todo.ID, todo.UserID).
		Updates(map[string]any{
			"title":       todo.Title,
			"description": todo.Description,
			"completed":   todo.Completed,
			"priority":    todo.Priority,
			"due_date":    todo.DueDate,
			"updated_at":  todo.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update todo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TodoStore) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Todo{})
	if res.Error != nil {
		return fmt.Errorf("delete todo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
