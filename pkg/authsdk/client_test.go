package authsdk

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeService answers like the real service for a single user.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "alice" || req.Password != "s3cret!" {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(LoginResponse{
			AccessToken: "token-1",
			TokenType:   "Bearer",
			User:        ProfileResponse{Sub: "u1", Username: "alice", Roles: []string{"user"}},
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			ErrInvalidToken.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "token-2"})
	})
	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "u1" {
			ErrNotFound.WriteError(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginAndRefresh(t *testing.T) {
	srv := fakeService(t)
	client := NewSDKClient(srv.URL + "/")

	_, err := client.Login(t.Context(), "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := client.Login(t.Context(), "alice", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, "token-1", session.AccessToken())
	require.Equal(t, "alice", session.User().Username)

	require.NoError(t, session.Refresh(t.Context()))
	require.Equal(t, "token-2", session.AccessToken())

	// token-2 is unknown to the fake, so a second refresh is rejected
	err = session.Refresh(t.Context())
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, "token-2", session.AccessToken())
}

func TestDeleteUser(t *testing.T) {
	srv := fakeService(t)
	session := NewSDKClient(srv.URL).NewSessionFromToken("token-1")

	require.NoError(t, session.DeleteUser(t.Context(), "u1"))
	require.ErrorIs(t, session.DeleteUser(t.Context(), "u2"), ErrNotFound)
}

func TestNonJSONErrorResponse(t *testing.T) {
	srv := fakeService(t)

	_, err := NewSDKClient(srv.URL).GetLiveness(t.Context())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       *APIError
		challenge bool
	}{
		{ErrInvalidToken, true},
		{ErrInvalidCredentials, true},
		{ErrInsufficientRole, false},
		{ErrConflict.WithDescription("email already exists"), false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.err.WriteError(rec)

			require.Equal(t, tt.err.StatusCode, rec.Code)
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			require.Equal(t, tt.challenge, rec.Header().Get("WWW-Authenticate") != "")

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.err.Code, body.Error)
			require.Equal(t, tt.err.Description, body.ErrorDescription)
		})
	}
}

func TestAPIErrorIsIgnoresDescription(t *testing.T) {
	t.Parallel()

	err := error(ErrConflict.WithDescription("username already exists"))
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
}
