package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-backend/pkg/schema"
)

// fakeAPI accepts only the bearer token "fresh" and hands it out on refresh.
type fakeAPI struct {
	refreshCalls atomic.Int32
	todoCalls    atomic.Int32
	refreshDelay time.Duration
	refreshFails bool
	alwaysReject bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		time.Sleep(f.refreshDelay)
		var in schema.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if f.refreshFails || in.RefreshToken != "refresh-1" {
			writeJSON(w, http.StatusUnauthorized, schema.ErrorResponse{Error: schema.ErrorBody{Code: schema.CodeInvalidToken, Message: "invalid or expired token"}})
			return
		}
		writeJSON(w, http.StatusOK, authResponse("fresh", in.RefreshToken))
	})
	mux.HandleFunc("GET /todos", func(w http.ResponseWriter, r *http.Request) {
		f.todoCalls.Add(1)
		if f.alwaysReject || r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, schema.ErrorResponse{Error: schema.ErrorBody{Code: schema.CodeInvalidToken, Message: "invalid or expired token"}})
			return
		}
		writeJSON(w, http.StatusOK, schema.TodoList{Data: []schema.Todo{{ID: "t1", Title: "Buy milk"}}})
	})
	mux.HandleFunc("POST /todos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, schema.ErrorResponse{Error: schema.ErrorBody{Code: schema.CodeValidation, Message: "title is required"}})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithHTTPClient(srv.Client()))
	c.Session().Login(authResponse("stale", "refresh-1"))
	return c
}

func TestDo_RefreshesAndRetriesOnce(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeClient(t, f)

	todos, err := c.ListTodos(context.Background(), schema.ListTodosQuery{})
	require.NoError(t, err)

	require.Len(t, todos, 1)
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 2, f.todoCalls.Load())
	assert.Equal(t, "fresh", c.Session().AccessToken())
}

func TestDo_SecondUnauthorizedIsNotRetried(t *testing.T) {
	f := &fakeAPI{alwaysReject: true}
	c := newFakeClient(t, f)

	_, err := c.ListTodos(context.Background(), schema.ListTodosQuery{})

	require.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 2, f.todoCalls.Load())
}

func TestDo_FailedRefreshFailsClosed(t *testing.T) {
	f := &fakeAPI{refreshFails: true}
	c := newFakeClient(t, f)

	_, err := c.ListTodos(context.Background(), schema.ListTodosQuery{})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, f.todoCalls.Load(), "no retry without a new token")
	assert.True(t, c.Session().Snapshot().IsZero())
}

func TestDo_OtherErrorsPropagate(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeClient(t, f)

	_, err := c.CreateTodo(context.Background(), schema.CreateTodoRequest{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, schema.CodeValidation, apiErr.Code)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.refreshCalls.Load())
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := &fakeAPI{refreshDelay: 50 * time.Millisecond}
	c := newFakeClient(t, f)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListTodos(context.Background(), schema.ListTodosQuery{})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestListTodosQueryString(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		writeJSON(w, http.StatusOK, schema.TodoList{})
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", WithHTTPClient(srv.Client()))

	_, err := c.ListTodos(context.Background(), schema.ListTodosQuery{Status: "active", Search: "milk", Sort: "title", Order: "desc"})
	require.NoError(t, err)

	assert.Equal(t, "order=desc&q=milk&sort=title&status=active", got)
}
