package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"60", time.Hour, false},
		{"0", 0, false},
		{"xd", 0, true},
		{"soon", 0, true},
		{"-5m", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTTL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, DriverSqlite, cfg.DatabaseDriver)
	require.Equal(t, BlacklistDatabase, cfg.BlacklistBackend)
	require.Equal(t, 8080, cfg.Port)
	require.False(t, cfg.TrustProxyHeaders)
	require.Equal(t, httpx.StrictLimit, cfg.RateLimitStrict)
	require.True(t, cfg.IsDev())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_JWT_TTL", "2d")
	t.Setenv("AUTH_DATABASE_DRIVER", "postgres")
	t.Setenv("AUTH_DATABASE_URL", "postgres://userauth@localhost/userauth")
	t.Setenv("AUTH_BLACKLIST_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "2")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 48*time.Hour, cfg.TokenTTL)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, BlacklistRedis, cfg.BlacklistBackend)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 2, cfg.RateLimitStrict.RequestsPerWindow)
	require.True(t, cfg.TrustProxyHeaders)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "secret required outside dev",
			env:  map[string]string{"ENV": "prod", "AUTH_JWT_SECRET": ""},
			want: "AUTH_JWT_SECRET",
		},
		{
			name: "bad ttl",
			env:  map[string]string{"ENV": "dev", "AUTH_JWT_TTL": "forever"},
			want: "AUTH_JWT_TTL",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"ENV": "dev", "AUTH_DATABASE_DRIVER": "mysql"},
			want: "DatabaseDriver",
		},
		{
			name: "postgres without url",
			env:  map[string]string{"ENV": "dev", "AUTH_DATABASE_DRIVER": "postgres", "AUTH_DATABASE_URL": ""},
			want: "DatabaseURL",
		},
		{
			name: "non-numeric port",
			env:  map[string]string{"ENV": "dev", "PORT": "abc"},
			want: `PORT: invalid integer "abc"`,
		},
		{
			name: "non-numeric redis db",
			env:  map[string]string{"ENV": "dev", "REDIS_DB": "x"},
			want: `REDIS_DB: invalid integer "x"`,
		},
		{
			name: "bad proxy switch",
			env:  map[string]string{"ENV": "dev", "TRUST_PROXY_HEADERS": "maybe"},
			want: "TRUST_PROXY_HEADERS",
		},
		{
			name: "bad shutdown grace period",
			env:  map[string]string{"ENV": "dev", "SHUTDOWN_GRACE_PERIOD": "soon"},
			want: "SHUTDOWN_GRACE_PERIOD",
		},
		{
			name: "redis without address",
			env:  map[string]string{"ENV": "dev", "AUTH_BLACKLIST_BACKEND": "redis", "REDIS_ADDR": ""},
			want: "RedisAddr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.ErrorContains(t, err, tt.want)
		})
	}
}
