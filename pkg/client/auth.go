package client

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"todo-backend/pkg/schema"
)

// Register creates an account and starts a session for it.
func (c *Client) Register(ctx context.Context, req schema.RegisterRequest) (*schema.User, error) {
	var resp schema.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	c.session.Login(resp)
	return &resp.User, nil
}

func (c *Client) Login(ctx context.Context, req schema.LoginRequest) (*schema.User, error) {
	var resp schema.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	c.session.Login(resp)
	return &resp.User, nil
}

// Logout ends the session locally first, then revokes the refresh token on
// the server. A token the server already considers invalid is not an error.
func (c *Client) Logout(ctx context.Context) error {
	raw := c.session.RefreshToken()
	c.session.Logout()
	if raw == "" {
		return nil
	}
	err := c.send(ctx, http.MethodPost, "/auth/logout", "", schema.RefreshRequest{RefreshToken: raw}, nil)
	if isUnauthorized(err) {
		return nil
	}
	if err != nil {
		c.log.Warn("server logout failed", zap.Error(err))
	}
	return err
}

// LogoutAll revokes every session of the current user, then ends this one.
func (c *Client) LogoutAll(ctx context.Context) error {
	err := c.Do(ctx, http.MethodPost, "/auth/logout-all", nil, nil)
	c.session.Logout()
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*schema.User, error) {
	var u schema.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
