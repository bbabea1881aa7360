package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finflow-identity/internal/model"
	"finflow-identity/pkg/apierror"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusCreated, map[string]string{"id": "user-1"}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", model.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid token", model.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrapped invalid token", fmt.Errorf("refresh: %w", model.ErrInvalidToken), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"account disabled", model.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"user not found", model.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"email taken", model.ErrEmailAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"username taken", model.ErrUsernameAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"invalid input", model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{"unclassified", fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)

			resp := decodeResponse(t, rec)
			require.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			require.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}

	t.Run("apierror carries its own status and details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, apierror.New("BAD_REQUEST", "refresh_token is required", "refresh_token", http.StatusBadRequest))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeResponse(t, rec)
		require.Equal(t, "BAD_REQUEST", resp.Error.Code)
		require.Equal(t, "refresh_token is required", resp.Error.Message)
		require.Equal(t, "refresh_token", resp.Error.Details)
	})
}
