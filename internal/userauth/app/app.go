package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/userauth/internal/userauth/http"
	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/internal/userauth/store/drivers/memory"
	"github.com/aussiebroadwan/userauth/internal/userauth/store/drivers/postgres"
	redisbl "github.com/aussiebroadwan/userauth/internal/userauth/store/drivers/redis"
	"github.com/aussiebroadwan/userauth/internal/userauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/userauth/pkg/cryptox"
	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// blacklistBackend is what the session and housekeeping services need from
// whichever blacklist is configured.
type blacklistBackend interface {
	service.Blacklist
	service.BlacklistPurger
}

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	blacklist blacklistBackend
	redis     *redis.Client // nil unless the redis blacklist is configured

	// Services
	verifier            *service.CredentialVerifier
	sessionService      *service.SessionService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "userauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	obs.Init()

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initBlacklist(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.seedAdmin(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("userauth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down userauth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Let pending credential migrations reach the store before it closes
	app.verifier.WaitRehashes()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("userauth service stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(host)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initBlacklist(ctx context.Context) error {
	switch app.cfg.BlacklistBackend {
	case BlacklistRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.blacklist = redisbl.NewBlacklist(client)
	case BlacklistMemory:
		app.blacklist = memory.NewBlacklist()
		app.logger.Warn("token blacklist is in memory, revocations are lost on restart")
	default:
		app.blacklist = store.NewBlacklistAdapter(app.db)
	}

	app.logger.Info("token blacklist ready", "backend", app.cfg.BlacklistBackend)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	secret := app.cfg.JWTSecret
	if secret == "" {
		// Only reachable in dev; sessions do not survive a restart
		generated, err := cryptox.GenerateSecret(cryptox.SecretSize256)
		if err != nil {
			return fmt.Errorf("failed to generate token secret: %w", err)
		}
		secret = generated
		app.logger.Warn("AUTH_JWT_SECRET not set, using an ephemeral secret")
	}

	tokenCfg := service.TokenConfig{
		Secret: []byte(secret),
		TTL:    app.cfg.TokenTTL,
		Issuer: app.cfg.Issuer,
	}

	directory := store.NewDirectoryAdapter(app.db)

	issuer, err := service.NewTokenIssuer(tokenCfg)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	validator, err := service.NewTokenValidator(tokenCfg, app.blacklist, directory)
	if err != nil {
		return fmt.Errorf("failed to create token validator: %w", err)
	}

	app.verifier = service.NewCredentialVerifier(directory)
	app.sessionService = &service.SessionService{
		Verifier:  app.verifier,
		Issuer:    issuer,
		Validator: validator,
		Directory: directory,
		Blacklist: app.blacklist,
	}
	app.userService = &service.UserService{Store: app.db}
	app.housekeepingService = service.NewHousekeepingService(
		app.blacklist,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) seedAdmin(ctx context.Context) error {
	created, err := app.userService.SeedAdmin(ctx, app.cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if created {
		app.logger.Info("seeded admin user", "username", service.SeedAdminUsername)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	httpx.StrictLimit = app.cfg.RateLimitStrict
	httpx.ModerateLimit = app.cfg.RateLimitModerate
	httpx.PublicLimit = app.cfg.RateLimitPublic
	httpx.TrustProxyHeaders = app.cfg.TrustProxyHeaders

	router := httpapi.NewRouter(BuildVersion, app.logger)
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.Checks["database"] = app.db
	if p, ok := app.blacklist.(httpapi.Pinger); ok {
		router.Checks["blacklist"] = p
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) closeStores() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	_ = app.db.Close()
}
