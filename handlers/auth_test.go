package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "x@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The harness account is already verified; registering it again
	// conflicts.
	resp, _ = env.request(t, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Dup", "email": "test@example.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVerifyUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/auth/verify/bogus-token", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "test@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.request(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "test@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &loginResp))
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, "Test User", loginResp.User.Name)
	assert.Equal(t, "test@example.com", loginResp.User.Email)
}
