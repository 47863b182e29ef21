package client

import (
	"context"
	"net/http"
	"net/url"

	"todo-backend/pkg/schema"
)

func (c *Client) ListTodos(ctx context.Context, q schema.ListTodosQuery) ([]schema.Todo, error) {
	v := url.Values{}
	for k, val := range map[string]string{"status": q.Status, "q": q.Search, "sort": q.Sort, "order": q.Order} {
		if val != "" {
			v.Set(k, val)
		}
	}
	path := "/todos"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var list schema.TodoList
	if err := c.Do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) CreateTodo(ctx context.Context, req schema.CreateTodoRequest) (*schema.Todo, error) {
	var td schema.Todo
	if err := c.Do(ctx, http.MethodPost, "/todos", req, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (c *Client) GetTodo(ctx context.Context, id string) (*schema.Todo, error) {
	var td schema.Todo
	if err := c.Do(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (c *Client) UpdateTodo(ctx context.Context, id string, req schema.UpdateTodoRequest) (*schema.Todo, error) {
	var td schema.Todo
	if err := c.Do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), req, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}
