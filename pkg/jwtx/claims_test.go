package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/userauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "userauth",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("userauth"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
	})
}

func TestNormalizeRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  []string
	}{
		{"nil", nil, []string{}},
		{"already sorted", []string{"admin", "user"}, []string{"admin", "user"}},
		{"unsorted with duplicates", []string{"user", "admin", "user"}, []string{"admin", "user"}},
		{"whitespace and empties", []string{" user ", "", "  "}, []string{"user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, jwtx.NormalizeRoles(tt.roles))
		})
	}
}

func TestNewSessionClaims(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := jwtx.NewSessionClaims("user-1", "alice", []string{"user", "admin"}, time.Hour, "userauth", now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, []string{"admin", "user"}, c.Roles)
	require.Equal(t, "userauth", c.Issuer)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAtTime())
	require.Empty(t, c.ID, "session claims carry no jti")
	require.True(t, c.HasRole("admin"))
	require.False(t, c.HasRole("root"))
}

func TestExpiresAtTime_Missing(t *testing.T) {
	c := &jwtx.Claims{}
	require.True(t, c.ExpiresAtTime().IsZero())
}
