package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/R3E-Network/vybe_engagement/internal/app"
	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/app/cache"
	"github.com/R3E-Network/vybe_engagement/internal/app/httpapi"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage/postgres"
	"github.com/R3E-Network/vybe_engagement/internal/config"
	"github.com/R3E-Network/vybe_engagement/internal/middleware"
	"github.com/R3E-Network/vybe_engagement/internal/platform/migrations"
	"github.com/R3E-Network/vybe_engagement/internal/resilience"
	"github.com/R3E-Network/vybe_engagement/internal/supabase"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 5 * time.Second
	cleanupInterval = time.Minute
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	limiter    *middleware.RateLimiter
	httpServer *http.Server
	db         *sqlx.DB
	breaker    *resilience.Breaker
	redis      redis.UniversalClient

	mu      sync.Mutex
	addr    net.Addr
	ready   chan struct{}
	cancel  context.CancelFunc
	started bool
}

// NewApplication builds the server from cfg. A nil cfg is loaded from the
// environment.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	log := logger.New(cfg.Logging)

	verifier, err := buildVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	a := &Application{cfg: cfg, log: log, ready: make(chan struct{})}

	stores, err := a.buildStores()
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}
	counterCache, err := a.buildCache()
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("configure cache: %w", err)
	}

	application, err := app.New(stores, app.Options{
		Verifier:          verifier,
		Cache:             counterCache,
		CacheTTL:          cfg.Counters.CacheTTL,
		ReconcileSchedule: cfg.Counters.ReconcileSchedule,
	}, log.Named("app"))
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
	handler := httpapi.NewHandler(application, httpapi.Options{
		Log:            log.Named("http"),
		RateLimiter:    a.limiter,
		AllowedOrigins: cfg.Server.Origins(),
		StoreBreaker:   a.breaker,
	})
	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Addr returns the bound listen address once Run is serving.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addr == nil {
		return ""
	}
	return a.addr.String()
}

// Ready is closed once the listener is bound.
func (a *Application) Ready() <-chan struct{} {
	return a.ready
}

// Run starts the services and the HTTP server and blocks until the context is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("runtime already started")
	}
	a.started = true
	a.mu.Unlock()

	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Lock()
	a.addr = ln.Addr()
	a.cancel = cancel
	a.mu.Unlock()
	a.limiter.StartCleanup(bgCtx, cleanupInterval)
	close(a.ready)

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", ln.Addr())
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, the services and the backing
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("services: %w", err))
	}

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()

	a.closeResources()
	return errors.Join(errs...)
}

func (a *Application) closeResources() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
		a.redis = nil
	}
}

// buildStores opens Postgres when a DSN is configured; otherwise the
// application keeps its in-memory stores.
func (a *Application) buildStores() (app.Stores, error) {
	if a.cfg.Database.DSN == "" {
		a.log.Warn("no database configured; using in-memory stores")
		return app.Stores{}, nil
	}

	db, err := openDatabase(a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	a.db = db

	if a.cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := migrations.Apply(ctx, db.DB); err != nil {
			a.closeResources()
			return app.Stores{}, fmt.Errorf("apply migrations: %w", err)
		}
		a.log.Info("database migrations applied")
	}

	store := postgres.New(db, nil)
	a.breaker = store.Breaker()
	return app.Stores{Ledger: store, Edges: store, Comments: store, Profiles: store}, nil
}

// buildCache connects Redis when an address is configured. A nil cache lets
// the application fall back to its in-process cache.
func (a *Application) buildCache() (cache.CounterCache, error) {
	if a.cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.redis = client

	rc := cache.NewRedis(client, a.cfg.Redis.KeyPrefix)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", a.cfg.Redis.Addr, err)
	}
	return rc, nil
}

func buildVerifier(cfg config.AuthConfig) (auth.TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT, "":
		v, err := auth.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.AuthModeSupabase:
		client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseAnonKey})
		if err != nil {
			return nil, fmt.Errorf("supabase client: %w", err)
		}
		return auth.NewSupabaseVerifier(client), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
