package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthRegisterLoginMe(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	email := fmt.Sprintf("%s@example.com", newTestID())
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	require.Equal(t, email, envelope.Data.User.Email)
	require.Equal(t, "student", envelope.Data.User.Role)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", envelope.Data.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRejectsWithoutToken(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	resp := doJSON(t, router, http.MethodGet, "/api/v1/conversations", "", nil)
	var envelope struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotZero(t, envelope.Code, "unauthenticated access must be refused")
}

func TestAuthRegisterNeverGrantsAdmin(t *testing.T) {
	router, auth, cleanup := setupRouter(t)
	defer cleanup()

	// a role field in the register body must be ignored
	email := fmt.Sprintf("%s@example.com", newTestID())
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "longenough", "role": "admin",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				Role string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "student", envelope.Data.User.Role)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/ingest", envelope.Data.Token, nil)
	var ingestEnvelope struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ingestEnvelope))
	require.NotZero(t, ingestEnvelope.Code, "self-registered user must not reach admin routes")

	// promotion happens out-of-band, then a fresh login carries the role
	require.NoError(t, auth.EnsureAdmin(context.Background(), email, "longenough"))
	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "admin", envelope.Data.User.Role)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/ingest", envelope.Data.Token, nil)
	var promotedEnvelope struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &promotedEnvelope))
	require.Zero(t, promotedEnvelope.Code)
}
