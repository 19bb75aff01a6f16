// Package client talks to the Authelia admin user API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chupakbra/authelia-admin-cli/internal/config"
)

const apiPath = "/api"

// API is the operation set the console consumes. The TUI depends on this
// interface so controllers can be driven against a fake in tests; *Client
// is the production implementation.
type API interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	CreateUser(ctx context.Context, input UserInput) (*User, error)
	UpdateUser(ctx context.Context, userID string, partial UserInput) (*User, error)
	DeleteUser(ctx context.Context, userID string) error
	ListGroups(ctx context.Context) ([]string, error)
}

// Client is an HTTP client for the admin API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

var _ API = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithLogger enables debug logging of each request (method, path, status).
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a Client from an InstanceConfig.
func New(cfg *config.InstanceConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("instance URL is not set")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("instance has no admin token configured")
	}

	// The admin endpoints live under /api. Append it automatically so
	// users only need to provide scheme://host:port.
	baseURL := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(baseURL, apiPath) {
		baseURL += apiPath
	}

	c := &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec
				},
			},
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListUsers returns all user accounts.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns a single user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a new user and returns the server's representation.
// Fails with a conflict error when the user ID is already taken.
func (c *Client) CreateUser(ctx context.Context, input UserInput) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/users", input, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies a partial update and returns the server's new
// representation of the user.
func (c *Client) UpdateUser(ctx context.Context, userID string, partial UserInput) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID), partial, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil)
}

// ListGroups returns the group names known to the server.
func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// do performs one request. Responses with status >= 400 are decoded into
// an *APIError; transport failures are returned wrapped.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		// Not the usual envelope (proxy error page, empty body). Fall
		// back to a code derived from the HTTP status.
		apiErr.Code = codeForStatus(resp.StatusCode)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(resp.Status)
		}
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	default:
		return CodeServerError
	}
}
