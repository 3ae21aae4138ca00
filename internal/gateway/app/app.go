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

	httpapi "github.com/aussiebroadwan/nearbynurse/internal/gateway/http"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/metrics"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// primeTimeout bounds the startup key set fetch.
const primeTimeout = 5 * time.Second

// Application is the gateway process with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	idp      *oidc.Client
	keys     *jwtx.KeySource // nil under the shared-secret strategy
	verifier jwtx.Validator
	metrics  *metrics.Metrics
	tracer   *sdktrace.TracerProvider

	authService      *service.AuthService
	provisionService *service.ProvisionService
	auditor          *service.OrphanAuditor
	auditing         bool

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. Nothing is contacted over
// the network yet.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "nearbynurse-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}
	app.tracer = initTracing(cfg.TraceSampleRatio, BuildVersion, app.logger)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initVerifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run serves until SIGINT/SIGTERM or a server error.
func (app *Application) Run() error {
	app.prime()
	app.auditor.Start()
	app.auditing = true

	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"strategy", app.cfg.Strategy(),
		"issuer", app.issuer(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops the orphan auditor, then
// releases the database and the tracer provider.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.auditing {
		app.auditor.Stop()
		app.auditing = false
	}

	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			app.logger.Error("error stopping tracer provider", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// Handler is the fully wired HTTP handler, for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initVerifier() error {
	app.idp = oidc.NewClient(app.cfg.KeycloakURL, app.cfg.Realm)
	app.idp.JWKSURL = app.cfg.JWKSURL
	app.idp.HTTPClient.Timeout = app.cfg.UpstreamTimeout

	jcfg := jwtx.Config{
		Strategy: app.cfg.Strategy(),
		Issuer:   app.issuer(),
	}
	switch jcfg.Strategy {
	case jwtx.StrategyKeySet:
		app.keys = jwtx.NewKeySource(jwtx.KeySourceConfig{
			Fetcher:          app.idp,
			FetchesPerMinute: app.cfg.FetchesPerMin,
			Observe:          app.metrics.ObserveKeyFetch,
		})
		jcfg.Keys = app.keys
	case jwtx.StrategySharedSecret:
		jcfg.Secret = []byte(app.cfg.JWTSecret)
	}

	v, err := jwtx.New(jcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.verifier = v
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		IdP:      app.idp,
		ClientID: app.cfg.ClientID,
		Logger:   app.logger,
	}

	if app.cfg.AdminUsername == "" || app.cfg.AdminPassword == "" {
		app.logger.Warn("admin credentials not set, registration will fail")
	}
	app.provisionService = &service.ProvisionService{
		IdP: app.idp,
		Admin: oidc.AdminCredentials{
			ClientID: app.cfg.AdminClientID,
			Username: app.cfg.AdminUsername,
			Password: app.cfg.AdminPassword,
		},
		Store:   app.db,
		Logger:  app.logger,
		Observe: app.metrics.ObserveProvision,
		Orphans: app.metrics.SetOrphans,
	}

	app.auditor = service.NewOrphanAuditor(app.db, app.logger, app.cfg.OrphanAuditInterval, app.cfg.OrphanStaleAfter)
	app.auditor.Orphans = app.metrics.SetOrphans
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.keys,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)
	router.AuthService = app.authService
	router.ProvisionService = app.provisionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// prime loads the key set once so the first request does not pay for the
// fetch. Failure is not fatal: the cache fills on the first miss and
// /readyz reports degraded until then.
func (app *Application) prime() {
	if app.keys == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), primeTimeout)
	defer cancel()
	if err := app.keys.Prime(ctx); err != nil {
		app.logger.Warn("initial key set fetch failed", "error", err)
		return
	}
	app.logger.Info("key set loaded", "url", app.idp.CertsURL())
}

func (app *Application) issuer() string {
	if app.cfg.Issuer != "" {
		return app.cfg.Issuer
	}
	// Shared-secret tokens are not required to carry an issuer.
	if app.cfg.Strategy() == jwtx.StrategySharedSecret {
		return ""
	}
	return app.idp.IssuerURL()
}
