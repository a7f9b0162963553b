package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole the caller must hold at least one of the provided roles.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if ok && anyRole(p, roles) {
				next.ServeHTTP(w, r)
				return
			}
			writeInsufficientRole(w, roles...)
		})
	}
}

// RequireSelfOrRole lets the caller through when the {param} path value is
// their own subject, or when they hold one of roles.
func RequireSelfOrRole(param string, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if ok && (p.Subject == r.PathValue(param) || anyRole(p, roles)) {
				next.ServeHTTP(w, r)
				return
			}
			writeInsufficientRole(w, roles...)
		})
	}
}

func anyRole(p Principal, roles []string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

func writeInsufficientRole(w http.ResponseWriter, required ...string) {
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_role",
		"error_description": "requires one of: " + strings.Join(required, ", "),
	})
}
