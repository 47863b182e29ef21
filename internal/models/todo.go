package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-backend/pkg/schema"
)

type Todo struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	UserID      string `gorm:"index;not null;type:varchar(36)"`
	User        User   `gorm:"constraint:OnDelete:CASCADE"`
	Title       string `gorm:"not null"`
	Description string
	Completed   bool   `gorm:"index;default:false"`
	Priority    string `gorm:"not null;default:medium;size:16"`
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Todo) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Todo) ToSchema() schema.Todo {
	return schema.Todo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    schema.Priority(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Priorities lists every priority in ascending rank.
var Priorities = []schema.Priority{schema.PriorityLow, schema.PriorityMedium, schema.PriorityHigh}

// PriorityRank orders priorities low < medium < high. Unknown values rank as medium.
func PriorityRank(p string) int {
	switch schema.Priority(p) {
	case schema.PriorityLow:
		return 0
	case schema.PriorityHigh:
		return 2
	default:
		return 1
	}
}
