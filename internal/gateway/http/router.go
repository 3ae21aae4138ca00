package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/metrics"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store"
	"github.com/aussiebroadwan/nearbynurse/pkg/authz"
	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"

	_ "github.com/aussiebroadwan/nearbynurse/api/gateway" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Role names the gateway's own routes require.
const (
	RoleAdmin = "admin"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	validator    jwtx.Validator
	keys         *jwtx.KeySource // nil under the shared-secret strategy
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store            store.Store
	AuthService      *service.AuthService
	ProvisionService *service.ProvisionService
}

func NewRouter(
	validator jwtx.Validator,
	keys *jwtx.KeySource,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		validator:    validator,
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerDemo()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			NearbyNurse Auth Gateway API
//	@version		0.1.0
//	@description	Token-validating gateway in front of a Keycloak realm. Access tokens are RS256 JWTs issued by the realm
//	@description	and verified against its JWKS; realm roles gate each route.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/nearbynurse
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
//	@description				Keycloak access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// protect wraps h so it runs only for a verified token whose roles satisfy
// req. authz.None admits any authenticated caller.
func (r *Router) protect(req authz.Requirement, limit httpx.RateLimitConfig, h http.Handler) http.Handler {
	var (
		onVerify httpx.VerifyObserver
		onDeny   httpx.DenyObserver
	)
	if r.metrics != nil {
		onVerify = r.metrics.ObserveVerify
		onDeny = r.metrics.ObserveDeny
	}
	return httpx.Chain(h,
		httpx.Authenticate(r.validator, onVerify),
		httpx.RequireRoles(req, onDeny),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:      r.AuthService,
		ProvisionService: r.ProvisionService,
	}

	// Credential endpoints are limited per IP + username to slow guessing.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /me", r.protect(authz.None, httpx.LenientLimit, MeHandler()))
}

func (r *Router) registerDemo() {
	r.Mux.Handle("GET /demo/protected",
		r.protect(authz.None, httpx.LenientLimit, ProtectedDemoHandler()))
	r.Mux.Handle("GET /demo/admin-only",
		r.protect(authz.RequireAll(RoleAdmin), httpx.LenientLimit, AdminDemoHandler()))
}

func (r *Router) registerAdmin() {
	h := &OrphansHandler{ProvisionService: r.ProvisionService}
	admin := authz.RequireAll(RoleAdmin)

	r.Mux.Handle("GET /v1/admin/orphans",
		r.protect(admin, httpx.ModerateLimit, http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("POST /v1/admin/orphans/{id}/credential",
		r.protect(admin, httpx.ModerateLimit, http.HandlerFunc(h.HandleRetryCredential)))
	r.Mux.Handle("DELETE /v1/admin/orphans/{id}",
		r.protect(admin, httpx.ModerateLimit, http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerSystem() {
	// Monitoring may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
