package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := client.New(&config.InstanceConfig{URL: srv.URL, Token: "test-token"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndToken(t *testing.T) {
	_, err := client.New(&config.InstanceConfig{Token: "x"})
	assert.Error(t, err)
	_, err = client.New(&config.InstanceConfig{URL: "https://auth.example.com"})
	assert.Error(t, err)
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]client.User{
			{UserID: "bob", DisplayName: "Bob", Email: "b@x.com", Groups: []string{"users"}},
		})
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].UserID)
	assert.False(t, users[0].Disabled)
}

func TestCreateUserSendsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_ = json.NewEncoder(w).Encode(client.User{UserID: "alice"})
	})

	pw := "s3cret"
	name := "Alice"
	u, err := c.CreateUser(context.Background(), client.UserInput{
		UserID:      "alice",
		DisplayName: &name,
		Password:    &pw,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserID)
	assert.Equal(t, "alice", got["user_id"])
	assert.Equal(t, "s3cret", got["password"])
	_, hasEmail := got["email"]
	assert.False(t, hasEmail, "unset fields must not be serialized")
}

func TestUpdateUserPartial(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/users/bob", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_ = json.NewEncoder(w).Encode(client.User{UserID: "bob", Disabled: true})
	})

	disabled := true
	u, err := c.UpdateUser(context.Background(), "bob", client.UserInput{Disabled: &disabled})
	require.NoError(t, err)
	assert.True(t, u.Disabled)
	assert.Equal(t, map[string]any{"disabled": true}, got, "partial update must carry only the changed field")
}

func TestUpdateUserClearsGroups(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_ = json.NewEncoder(w).Encode(client.User{UserID: "bob"})
	})

	empty := []string{}
	_, err := c.UpdateUser(context.Background(), "bob", client.UserInput{Groups: &empty})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"groups": []any{}}, got)
}

func TestDeleteUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/users/bob", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteUser(context.Background(), "bob"))
}

func TestListGroups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/groups", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]string{"admins", "users"})
	})
	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"admins", "users"}, groups)
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    "conflict",
			"message": "user already exists",
			"details": map[string]any{"user_id": "alice"},
		})
	})

	_, err := c.CreateUser(context.Background(), client.UserInput{UserID: "alice"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, client.CodeConflict, apiErr.Code)
	assert.Equal(t, "user already exists", apiErr.Message)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "alice", apiErr.Details["user_id"])
}

func TestErrorFallbackFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, client.CodeUnauthorized},
		{http.StatusForbidden, client.CodeUnauthorized},
		{http.StatusNotFound, client.CodeNotFound},
		{http.StatusBadRequest, client.CodeValidation},
		{http.StatusBadGateway, client.CodeServerError},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("<html>gateway said no</html>"))
		})
		err := c.DeleteUser(context.Background(), "bob")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr, "status %d", tt.status)
		assert.Equal(t, tt.wantCode, apiErr.Code)
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	c, err := client.New(&config.InstanceConfig{URL: "http://127.0.0.1:1", Token: "x"})
	require.NoError(t, err)
	_, err = c.ListUsers(context.Background())
	require.Error(t, err)
	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
	assert.Contains(t, err.Error(), "/users")
}
