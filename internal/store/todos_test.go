package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-backend/internal/models"
)

func titles(todos []models.Todo) []string {
	out := make([]string, len(todos))
	for i, td := range todos {
		out[i] = td.Title
	}
	return out
}

func seedTodos(t *testing.T) (*TodoStore, string) {
	t.Helper()
	db := setupStoreTestDB(t)
	creds := NewCredentialStore(db, nil)
	owner, err := creds.CreateUser(context.Background(), "owner@example.com", "hash", "Owner")
	require.NoError(t, err)
	other, err := creds.CreateUser(context.Background(), "other@example.com", "hash", "Other")
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := func(d int) *time.Time { v := base.AddDate(0, 0, d); return &v }

	s := NewTodoStore(db)
	seed := []models.Todo{
		{UserID: owner.ID, Title: "Buy milk", Priority: "low", DueDate: due(2), CreatedAt: base},
		{UserID: owner.ID, Title: "write report", Description: "quarterly numbers", Priority: "high", Completed: true, CreatedAt: base.Add(time.Hour)},
		{UserID: owner.ID, Title: "Call mom", Priority: "medium", DueDate: due(1), CreatedAt: base.Add(2 * time.Hour)},
		{UserID: other.ID, Title: "Someone else's", Priority: "high", CreatedAt: base},
	}
	for i := range seed {
		require.NoError(t, s.Create(context.Background(), &seed[i]))
	}
	return s, owner.ID
}

func TestTodoStore_ListDefaultsNewestFirst(t *testing.T) {
	s, owner := seedTodos(t)

	todos, err := s.List(context.Background(), owner, TodoFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Call mom", "write report", "Buy milk"}, titles(todos))
}

func TestTodoStore_ListFilters(t *testing.T) {
	s, owner := seedTodos(t)
	ctx := context.Background()
	yes, no := true, false

	done, err := s.List(ctx, owner, TodoFilter{Completed: &yes})
	require.NoError(t, err)
	assert.Equal(t, []string{"write report"}, titles(done))

	open, err := s.List(ctx, owner, TodoFilter{Completed: &no, Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk", "Call mom"}, titles(open))

	found, err := s.List(ctx, owner, TodoFilter{Search: "QUARTERLY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"write report"}, titles(found))
}

func TestTodoStore_ListSorts(t *testing.T) {
	s, owner := seedTodos(t)
	ctx := context.Background()

	byPriority, err := s.List(ctx, owner, TodoFilter{Sort: "priority", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"write report", "Call mom", "Buy milk"}, titles(byPriority))

	byDue, err := s.List(ctx, owner, TodoFilter{Sort: "dueDate"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Call mom", "Buy milk", "write report"}, titles(byDue))

	byDueDesc, err := s.List(ctx, owner, TodoFilter{Sort: "dueDate", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk", "Call mom", "write report"}, titles(byDueDesc))
}

func TestTodoStore_ScopedToOwner(t *testing.T) {
	s, owner := seedTodos(t)
	ctx := context.Background()

	all, err := s.List(ctx, owner, TodoFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	var foreign models.Todo
	require.NoError(t, s.db.Where("user_id <> ?", owner).First(&foreign).Error)

	_, err = s.Get(ctx, owner, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	foreign.UserID = owner
	foreign.Title = "hijacked"
	assert.ErrorIs(t, s.Save(ctx, &foreign), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, owner, foreign.ID), ErrNotFound)
}

func TestTodoStore_SaveAndDelete(t *testing.T) {
	s, owner := seedTodos(t)
	ctx := context.Background()

	all, err := s.List(ctx, owner, TodoFilter{Sort: "title"})
	require.NoError(t, err)
	td := all[0]

	td.Title = "Buy oat milk"
	td.Completed = true
	td.DueDate = nil
	td.UpdatedAt = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, &td))

	got, err := s.Get(ctx, owner, td.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.True(t, got.Completed)
	assert.Nil(t, got.DueDate)

	require.NoError(t, s.Delete(ctx, owner, td.ID))
	_, err = s.Get(ctx, owner, td.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, owner, td.ID), ErrNotFound)
}

func TestTodoStore_SearchTreatsWildcardsLiterally(t *testing.T) {
	s, owner := seedTodos(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &models.Todo{UserID: owner, Title: "50% off_sale", Priority: "low"}))

	tests := []struct {
		term     string
		expected []string
	}{
		{term: "%", expected: []string{"50% off_sale"}},
		{term: "_", expected: []string{"50% off_sale"}},
		{term: `\`, expected: []string{}},
		{term: "% OFF", expected: []string{"50% off_sale"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			todos, err := s.List(ctx, owner, TodoFilter{Search: tt.term})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, titles(todos))
		})
	}
}

func TestPriorityRankSQL(t *testing.T) {
	assert.Equal(t, "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 1 END", priorityRankSQL())
}
