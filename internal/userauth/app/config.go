package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/aussiebroadwan/userauth/pkg/jwtx"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"

	BlacklistDatabase = "database"
	BlacklistRedis    = "redis"
	BlacklistMemory   = "memory"
)

// Config is read once at startup and never changed afterwards.
type Config struct {
	JWTSecret string        // Required outside dev: HS256 signing secret
	TokenTTL  time.Duration // Optional: session token lifetime (default: 24h)
	Issuer    string        // Optional: iss claim (default: userauth)

	DatabaseDriver   string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile     string // Optional: SQLite database file (default: userauth.db)
	DatabaseURL      string // Required for postgres: pgx connection string
	BlacklistBackend string // Optional: database, redis or memory (default: database)
	RedisAddr        string // Required for the redis blacklist
	RedisPassword    string
	RedisDB          int

	PepperFile           string        // Optional: path to the password pepper (default: pepper)
	SeedAdminPassword    string        // Optional: creates "admin" when the user table is empty
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	TrustProxyHeaders    bool          // Key rate limits on X-Forwarded-For / X-Real-IP (default: false)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Blacklist purge interval (default: 1h)

	RateLimitStrict   httpx.RateLimitConfig
	RateLimitModerate httpx.RateLimitConfig
	RateLimitPublic   httpx.RateLimitConfig
}

// LoadConfig reads the environment. Malformed integers, booleans and durations
// are errors rather than silently replaced by defaults. RATELIMIT_* overrides are
// the exception and keep the profile default, see httpx.ParseRateLimitFromEnv.
func LoadConfig() (Config, error) {
	ttl, err := parseTTL(getEnvOrDefault("AUTH_JWT_TTL", ""))
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_JWT_TTL: %w", err)
	}

	env := &envReader{}

	cfg := Config{
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		TokenTTL:  ttl,
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "userauth"),

		DatabaseDriver:   getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSqlite),
		DatabaseFile:     getEnvOrDefault("AUTH_DATABASE_FILE", "userauth.db"),
		DatabaseURL:      os.Getenv("AUTH_DATABASE_URL"),
		BlacklistBackend: getEnvOrDefault("AUTH_BLACKLIST_BACKEND", BlacklistDatabase),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          env.intOrDefault("REDIS_DB", 0),

		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SeedAdminPassword:    os.Getenv("AUTH_SEED_ADMIN_PASSWORD"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 env.intOrDefault("PORT", 8080),
		TrustProxyHeaders:    env.boolOrDefault("TRUST_PROXY_HEADERS", false),
		ShutdownGracePeriod:  env.durationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: env.durationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		RateLimitStrict:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
		RateLimitModerate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		RateLimitPublic:   httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit),
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether the service runs in the dev environment.
func (c Config) IsDev() bool { return c.Env == "dev" }

func (c Config) Validate() error {
	if c.JWTSecret == "" && !c.IsDev() {
		return errors.New("AUTH_JWT_SECRET is required outside ENV=dev")
	}

	return validation.ValidateStruct(&c,
		validation.Field(&c.DatabaseDriver, validation.In(DriverSqlite, DriverPostgres)),
		validation.Field(&c.DatabaseURL, validation.By(requiredFor(c.DatabaseDriver == DriverPostgres))),
		validation.Field(&c.BlacklistBackend, validation.In(BlacklistDatabase, BlacklistRedis, BlacklistMemory)),
		validation.Field(&c.RedisAddr, validation.By(requiredFor(c.BlacklistBackend == BlacklistRedis))),
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
	)
}

func requiredFor(needed bool) validation.RuleFunc {
	return func(value any) error {
		if !needed {
			return nil
		}
		return validation.Validate(value, validation.Required)
	}
}

// parseTTL accepts a Go duration ("90m"), whole days ("7d") or bare minutes
// ("1440"). Empty means the default.
func parseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return jwtx.DefaultSessionTTL, nil
	}

	var ttl time.Duration
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		ttl = time.Duration(n) * 24 * time.Hour
	} else if minutes, err := strconv.Atoi(value); err == nil {
		ttl = time.Duration(minutes) * time.Minute
	} else if d, err := time.ParseDuration(value); err == nil {
		ttl = d
	} else {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	if ttl < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return ttl, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader collects every malformed variable so they are reported together.
type envReader struct {
	errs []error
}

func (r *envReader) intOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return intValue
}

func (r *envReader) boolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}

// durationOrDefault accepts a Go duration ("30s") or integer minutes.
func (r *envReader) durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, value))
	return defaultValue
}
