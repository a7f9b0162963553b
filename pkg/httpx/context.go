package httpx

import (
	"context"
	"slices"
)

type ctxKey string

const (
	ctxKeyPrincipal ctxKey = "principal"
	ctxKeyBearer    ctxKey = "bearer"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject  string
	Username string
	Roles    []string
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// PrincipalFromContext returns the principal placed by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

// BearerFromContext returns the raw bearer token the request was authenticated with.
func BearerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyBearer).(string)
	return s
}

// ContextWithPrincipal attaches p and the raw bearer token to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal, bearer string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	return context.WithValue(ctx, ctxKeyBearer, bearer)
}
