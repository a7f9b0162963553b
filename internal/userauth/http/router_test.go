package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/internal/userauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/userauth/pkg/authsdk"
	"github.com/aussiebroadwan/userauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const adminPassword = "Admin!234"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "userauth-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	obs.Init()

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	router *Router
	store  *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations(ctx))
	t.Cleanup(func() { _ = s.Close() })

	directory := store.NewDirectoryAdapter(s)
	blacklist := store.NewBlacklistAdapter(s)
	cfg := service.TokenConfig{Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: time.Hour, Issuer: "userauth-test"}

	issuer, err := service.NewTokenIssuer(cfg)
	require.NoError(t, err)
	validator, err := service.NewTokenValidator(cfg, blacklist, directory)
	require.NoError(t, err)
	verifier := service.NewCredentialVerifier(directory)
	t.Cleanup(verifier.WaitRehashes)

	users := &service.UserService{Store: s}
	seeded, err := users.SeedAdmin(ctx, adminPassword)
	require.NoError(t, err)
	require.True(t, seeded)

	r := NewRouter("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.SessionService = &service.SessionService{
		Verifier:  verifier,
		Issuer:    issuer,
		Validator: validator,
		Directory: directory,
		Blacklist: blacklist,
	}
	r.UserService = users
	r.Checks["database"] = s
	r.ApplyRoutes()

	return &testServer{router: r, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, username, password string) authsdk.LoginResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/login", "", authsdk.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out authsdk.LoginResponse
	decode(t, rec, &out)
	require.NotEmpty(t, out.AccessToken)
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) authsdk.ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var e authsdk.ErrorResponse
	decode(t, rec, &e)
	require.Equal(t, code, e.Error)
	return e
}

func TestLoginAndProfile(t *testing.T) {
	ts := newTestServer(t)

	login := ts.login(t, "admin", adminPassword)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, 3600, login.ExpiresIn)
	require.Equal(t, "admin", login.User.Username)
	require.ElementsMatch(t, []string{"admin", "user"}, login.User.Roles)

	rec := ts.do(t, http.MethodGet, "/auth/profile", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var profile authsdk.ProfileResponse
	decode(t, rec, &profile)
	require.Equal(t, login.User, profile)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)

	unknown := ts.do(t, http.MethodPost, "/auth/login", "", authsdk.LoginRequest{Username: "nobody", Password: "whatever"})
	wrong := ts.do(t, http.MethodPost, "/auth/login", "", authsdk.LoginRequest{Username: "admin", Password: "wrong-password"})

	requireAPIError(t, unknown, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	requireAPIError(t, wrong, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	require.Equal(t, unknown.Body.String(), wrong.Body.String(), "unknown user and wrong password must be indistinguishable")

	short := ts.do(t, http.MethodPost, "/auth/login", "", authsdk.LoginRequest{Username: "admin", Password: "abc"})
	e := requireAPIError(t, short, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	require.Contains(t, e.ErrorDescription, "password")

	rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": adminPassword, "extra": "x"})
	requireAPIError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
}

func TestPublicRoutesBypassAuthentication(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := ts.do(t, http.MethodGet, "/readyz", "", nil)
	var health authsdk.HealthResponse
	decode(t, rec, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, map[string]string{"database": "ok"}, health.Checks)

	rec = ts.do(t, http.MethodGet, "/auth/profile", "", nil)
	requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = ts.do(t, http.MethodGet, "/auth/profile", "not-a-jwt", nil)
	requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	login := ts.login(t, "admin", adminPassword)

	rec := ts.do(t, http.MethodPost, "/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out authsdk.LogoutResponse
	decode(t, rec, &out)
	require.True(t, out.Success)

	rec = ts.do(t, http.MethodGet, "/auth/profile", login.AccessToken, nil)
	requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	rec = ts.do(t, http.MethodPost, "/auth/logout", login.AccessToken, nil)
	requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

func TestUserManagement(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", adminPassword)

	rec := ts.do(t, http.MethodPost, "/auth/register", "", authsdk.RegisterRequest{
		Username: "alice",
		Password: "Passw0rd!",
		FullName: "Alice Liddell",
		Email:    "Alice@Example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var alice authsdk.UserResponse
	decode(t, rec, &alice)
	require.Equal(t, []string{"user"}, alice.Roles)
	require.Equal(t, "alice@example.com", alice.Email)
	require.True(t, alice.IsActive)
	require.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/auth/register", "", authsdk.RegisterRequest{
		Username: "alice",
		Password: "Passw0rd!",
		FullName: "Other Alice",
		Email:    "other@example.com",
	})
	e := requireAPIError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)
	require.Equal(t, "username already exists", e.ErrorDescription)

	aliceLogin := ts.login(t, "alice", "Passw0rd!")

	t.Run("admin only routes", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/users", aliceLogin.AccessToken, nil)
		requireAPIError(t, rec, http.StatusForbidden, authsdk.ErrorCodeInsufficientRole)

		rec = ts.do(t, http.MethodGet, "/users", admin.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []authsdk.UserResponse
		decode(t, rec, &list)
		require.Len(t, list, 2)
	})

	t.Run("self or admin", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/users/"+alice.ID, aliceLogin.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/users/"+admin.User.Sub, aliceLogin.AccessToken, nil)
		requireAPIError(t, rec, http.StatusForbidden, authsdk.ErrorCodeInsufficientRole)

		rec = ts.do(t, http.MethodGet, "/users/missing", admin.AccessToken, nil)
		requireAPIError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)
	})

	t.Run("self update ignores roles", func(t *testing.T) {
		name := "Alice L."
		roles := []string{"admin"}
		rec := ts.do(t, http.MethodPatch, "/users/"+alice.ID, aliceLogin.AccessToken, authsdk.UpdateUserRequest{FullName: &name, Roles: &roles})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got authsdk.UserResponse
		decode(t, rec, &got)
		require.Equal(t, "Alice L.", got.FullName)
		require.Equal(t, []string{"user"}, got.Roles)
	})

	t.Run("self password change needs a strong password", func(t *testing.T) {
		weak := "abcdef"
		rec := ts.do(t, http.MethodPatch, "/users/"+alice.ID, aliceLogin.AccessToken, authsdk.UpdateUserRequest{Password: &weak})
		requireAPIError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

		strong := "Passw0rd!2"
		rec = ts.do(t, http.MethodPatch, "/users/"+alice.ID, aliceLogin.AccessToken, authsdk.UpdateUserRequest{Password: &strong})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ts.login(t, "alice", "Passw0rd!2")
	})

	t.Run("role change is picked up on refresh", func(t *testing.T) {
		roles := []string{"user", "admin"}
		rec := ts.do(t, http.MethodPatch, "/users/"+alice.ID, admin.AccessToken, authsdk.UpdateUserRequest{Roles: &roles})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = ts.do(t, http.MethodGet, "/auth/profile", aliceLogin.AccessToken, nil)
		var profile authsdk.ProfileResponse
		decode(t, rec, &profile)
		require.Equal(t, []string{"user"}, profile.Roles, "old token keeps its roles")

		rec = ts.do(t, http.MethodPost, "/auth/refresh", aliceLogin.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var refreshed authsdk.RefreshResponse
		decode(t, rec, &refreshed)

		rec = ts.do(t, http.MethodGet, "/auth/profile", refreshed.AccessToken, nil)
		decode(t, rec, &profile)
		require.ElementsMatch(t, []string{"user", "admin"}, profile.Roles)
	})

	t.Run("delete invalidates tokens", func(t *testing.T) {
		rec := ts.do(t, http.MethodDelete, "/users/"+alice.ID, admin.AccessToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(t, http.MethodGet, "/auth/profile", aliceLogin.AccessToken, nil)
		requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

		rec = ts.do(t, http.MethodDelete, "/users/"+alice.ID, admin.AccessToken, nil)
		requireAPIError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)
	})
}

func TestCreateUserValidation(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", adminPassword)

	rec := ts.do(t, http.MethodPost, "/users", admin.AccessToken, authsdk.CreateUserRequest{
		Username: "bob",
		Password: "secret1",
		FullName: "Bob",
		Email:    "not-an-email",
	})
	e := requireAPIError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	require.Contains(t, e.ErrorDescription, "email")

	inactive := false
	rec = ts.do(t, http.MethodPost, "/users", admin.AccessToken, authsdk.CreateUserRequest{
		Username: "bob",
		Password: "secret1",
		FullName: "Bob",
		Email:    "bob@example.com",
		IsActive: &inactive,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/auth/login", "", authsdk.LoginRequest{Username: "bob", Password: "secret1"})
	requireAPIError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
}

func TestStorageFailureIsServerError(t *testing.T) {
	ts := newTestServer(t)
	login := ts.login(t, "admin", adminPassword)

	require.NoError(t, ts.store.Close())

	rec := ts.do(t, http.MethodGet, "/auth/profile", login.AccessToken, nil)
	e := requireAPIError(t, rec, http.StatusInternalServerError, authsdk.ErrorCodeServerError)
	require.Equal(t, authsdk.ErrServerError.Description, e.ErrorDescription)

	rec = ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
