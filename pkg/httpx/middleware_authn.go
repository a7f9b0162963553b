package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// ErrMissingBearer is handed to the error writer when no bearer token was sent.
var ErrMissingBearer = errors.New("httpx: missing bearer token")

// Authenticator resolves a raw bearer token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, raw string) (Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, raw string) (Principal, error) {
	return f(ctx, raw)
}

// AuthErrorWriter renders an authentication failure.
type AuthErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AuthnMiddleware requires a valid bearer token. Failures are rendered by
// onErr, or as a plain RFC 6750 invalid_token response when onErr is nil.
func AuthnMiddleware(a Authenticator, onErr AuthErrorWriter) Middleware {
	if onErr == nil {
		onErr = func(w http.ResponseWriter, _ *http.Request, _ error) {
			WriteBearerChallenge(w)
			w.WriteHeader(http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := ExtractBearer(r)
			if !ok {
				onErr(w, r, ErrMissingBearer)
				return
			}

			p, err := a.Authenticate(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Info("bearer authentication failed", "err", err)
				onErr(w, r, err)
				return
			}

			ctx = ContextWithPrincipal(ctx, p, raw)
			ctx = slogx.With(ctx, "user_id", p.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func ExtractBearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WriteBearerChallenge sets the RFC 6750 WWW-Authenticate header. It never
// carries the failure reason.
func WriteBearerChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
}
