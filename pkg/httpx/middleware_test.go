package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
		{"Bearerabc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)

			got, ok := httpx.ExtractBearer(req)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	errBad := errors.New("bad token")
	authn := httpx.AuthenticatorFunc(func(_ context.Context, raw string) (httpx.Principal, error) {
		if raw != "good" {
			return httpx.Principal{}, errBad
		}
		return httpx.Principal{Subject: "u1", Username: "alice", Roles: []string{"user"}}, nil
	})

	var seen httpx.Principal
	var seenBearer string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.PrincipalFromContext(r.Context())
		seenBearer = httpx.BearerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("default error writer", func(t *testing.T) {
		h := httpx.AuthnMiddleware(authn, nil)(next)

		for _, header := range []string{"", "Bearer nope"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, `Bearer error="invalid_token"`, rec.Header().Get("WWW-Authenticate"))
		}
	})

	t.Run("custom error writer receives cause", func(t *testing.T) {
		var got []error
		h := httpx.AuthnMiddleware(authn, func(w http.ResponseWriter, _ *http.Request, err error) {
			got = append(got, err)
			w.WriteHeader(http.StatusTeapot)
		})(next)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.Len(t, got, 2)
		require.ErrorIs(t, got[0], httpx.ErrMissingBearer)
		require.ErrorIs(t, got[1], errBad)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		h := httpx.AuthnMiddleware(authn, nil)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "u1", seen.Subject)
		require.Equal(t, "good", seenBearer)
	})
}

func TestRoleMiddleware(t *testing.T) {
	admin := httpx.Principal{Subject: "a1", Roles: []string{"admin", "user"}}
	user := httpx.Principal{Subject: "u1", Roles: []string{"user"}}

	serve := func(h http.Handler, p *httpx.Principal, target string) int {
		mux := http.NewServeMux()
		mux.Handle("GET /users/{id}", h)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if p != nil {
			req = req.WithContext(httpx.ContextWithPrincipal(req.Context(), *p, "tok"))
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("RequireAnyRole", func(t *testing.T) {
		h := httpx.RequireAnyRole("admin")(okHandler)
		require.Equal(t, http.StatusOK, serve(h, &admin, "/users/x"))
		require.Equal(t, http.StatusForbidden, serve(h, &user, "/users/x"))
		require.Equal(t, http.StatusForbidden, serve(h, nil, "/users/x"))
	})

	t.Run("RequireSelfOrRole", func(t *testing.T) {
		h := httpx.RequireSelfOrRole("id", "admin")(okHandler)
		require.Equal(t, http.StatusOK, serve(h, &user, "/users/u1"))
		require.Equal(t, http.StatusForbidden, serve(h, &user, "/users/a1"))
		require.Equal(t, http.StatusOK, serve(h, &admin, "/users/u1"))
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"alice"}`, false},
		{"unknown field", `{"name":"alice","extra":1}`, true},
		{"trailing data", `{"name":"alice"}{}`, true},
		{"empty", ``, true},
		{"too large", `{"name":"` + strings.Repeat("a", httpx.MaxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := httpx.DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "alice", p.Name)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
