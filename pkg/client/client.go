// Package client is the Go client for the todo API. It keeps the caller's
// session and transparently refreshes an expired access token once per request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"todo-backend/pkg/schema"
)

// ErrUnauthorized is returned when a request is still rejected with 401
// after one refresh and retry, or when the refresh itself fails.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is a non-2xx response decoded from the API's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	session *Session
}

type Option func(*options)

type options struct {
	http       *http.Client
	log        *zap.Logger
	cache      Cache
	refreshTTL time.Duration
}

func WithHTTPClient(h *http.Client) Option { return func(o *options) { o.http = h } }
func WithLogger(l *zap.Logger) Option      { return func(o *options) { o.log = l } }
func WithCache(c Cache) Option             { return func(o *options) { o.cache = c } }

// WithRefreshTimeout bounds the shared refresh round trip.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) { o.refreshTTL = d }
}

func New(baseURL string, opts ...Option) *Client {
	o := options{
		http:       &http.Client{Timeout: 30 * time.Second},
		log:        zap.NewNop(),
		refreshTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.http,
		log:     o.log.Named("client"),
	}
	sessionOpts := []SessionOption{WithSessionLogger(c.log), WithSessionRefreshTimeout(o.refreshTTL)}
	if o.cache != nil {
		sessionOpts = append(sessionOpts, WithSessionCache(o.cache))
	}
	c.session = NewSession(c.refresh, sessionOpts...)
	return c
}

func (c *Client) Session() *Session { return c.session }

// Do sends an authenticated request. On 401 it refreshes the session once and
// retries once; a second 401 or a failed refresh yields ErrUnauthorized.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	sent := c.session.AccessToken()
	err := c.send(ctx, method, path, sent, in, out)
	if !isUnauthorized(err) {
		return err
	}

	// another request may already have refreshed while this one was in flight
	token, rerr := c.session.refreshUnless(ctx, sent)
	if rerr != nil {
		return fmt.Errorf("%w: refresh: %w", ErrUnauthorized, rerr)
	}

	err = c.send(ctx, method, path, token, in, out)
	if isUnauthorized(err) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*schema.AuthResponse, error) {
	var resp schema.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", "", schema.RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// send performs exactly one round trip.
func (c *Client) send(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return decodeAPIError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode}
	var env schema.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
