package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"

	_ "github.com/aussiebroadwan/userauth/api/userauth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	SessionService *service.SessionService
	UserService    *service.UserService

	// Checks are pinged by /readyz, keyed by the name reported in the response.
	Checks map[string]Pinger
}

// route is one entry of the static route table. Public routes skip bearer
// authentication entirely. For the others the caller must hold one of roles,
// or be the user named by the {self} path value; with neither set any
// authenticated caller is let through.
type route struct {
	method  string
	pattern string
	handler http.Handler
	public  bool
	roles   []string
	self    string
	limit   httpx.Middleware
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Checks:       map[string]Pinger{},
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		obs.Instrument,
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers the route table on the mux. It must be called once
// the services are wired.
func (r *Router) ApplyRoutes() {
	authn := httpx.AuthnMiddleware(httpx.AuthenticatorFunc(r.authenticate), writeAuthError)

	for _, rt := range r.routes() {
		mws := []httpx.Middleware{}
		if !rt.public {
			mws = append(mws, authn)
			switch {
			case rt.self != "":
				mws = append(mws, httpx.RequireSelfOrRole(rt.self, rt.roles...))
			case len(rt.roles) > 0:
				mws = append(mws, httpx.RequireAnyRole(rt.roles...))
			}
		}
		if rt.limit != nil {
			mws = append(mws, rt.limit)
		}
		r.Mux.Handle(rt.method+" "+rt.pattern, httpx.Chain(rt.handler, mws...))
	}
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			User Auth Service API
//	@version		0.1.0
//	@description	User management with stateless JWT sessions. Tokens are HS256 signed, carry the
//	@description	caller's roles, and can be revoked before expiry through /auth/logout.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/userauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) routes() []route {
	auth := &AuthHandler{Sessions: r.SessionService, Users: r.UserService}
	users := &UsersHandler{Users: r.UserService}

	// Each route gets its own limiter instance
	strictLogin := httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username")
	strictIP := httpx.RateLimitByIP(httpx.StrictLimit)
	public := func() httpx.Middleware { return httpx.RateLimitByIP(httpx.PublicLimit) }
	byUser := func() httpx.Middleware { return httpx.RateLimitByUser(httpx.ModerateLimit) }

	admin := []string{domain.RoleAdmin}

	return []route{
		{method: "POST", pattern: "/auth/login", handler: http.HandlerFunc(auth.HandleLogin), public: true, limit: strictLogin},
		{method: "POST", pattern: "/auth/register", handler: http.HandlerFunc(auth.HandleRegister), public: true, limit: strictIP},
		{method: "POST", pattern: "/auth/refresh", handler: http.HandlerFunc(auth.HandleRefresh), limit: byUser()},
		{method: "POST", pattern: "/auth/logout", handler: http.HandlerFunc(auth.HandleLogout), limit: byUser()},
		{method: "GET", pattern: "/auth/profile", handler: http.HandlerFunc(auth.HandleProfile), limit: byUser()},

		{method: "GET", pattern: "/users", handler: http.HandlerFunc(users.HandleList), roles: admin, limit: byUser()},
		{method: "POST", pattern: "/users", handler: http.HandlerFunc(users.HandleCreate), roles: admin, limit: byUser()},
		{method: "GET", pattern: "/users/{id}", handler: http.HandlerFunc(users.HandleGet), roles: admin, self: "id", limit: byUser()},
		{method: "PATCH", pattern: "/users/{id}", handler: http.HandlerFunc(users.HandleUpdate), roles: admin, self: "id", limit: byUser()},
		{method: "DELETE", pattern: "/users/{id}", handler: http.HandlerFunc(users.HandleDelete), roles: admin, limit: byUser()},

		{method: "GET", pattern: "/livez", handler: LivezHandler(r.startTime, r.buildVersion), public: true, limit: public()},
		{method: "GET", pattern: "/readyz", handler: ReadyzHandler(r.startTime, r.buildVersion, r.Checks), public: true, limit: public()},
		{method: "GET", pattern: "/metrics", handler: obs.Handler(), public: true},
		{method: "GET", pattern: "/swagger/", handler: httpSwagger.Handler(), public: true, limit: public()},
	}
}

// authenticate resolves a bearer token through the session service.
func (r *Router) authenticate(ctx context.Context, raw string) (httpx.Principal, error) {
	id, err := r.SessionService.Authenticate(ctx, raw)
	if err != nil {
		return httpx.Principal{}, err
	}
	return httpx.Principal{Subject: id.Subject, Username: id.Username, Roles: id.Roles}, nil
}
