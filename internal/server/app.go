// Package server wires the auth core together: store, token manager,
// password hasher, metrics and the guarded gRPC endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/auth"
	"github.com/coursesms/courses/internal/server/config"
	"github.com/coursesms/courses/internal/server/metrics"
	"github.com/coursesms/courses/internal/server/password"
	"github.com/coursesms/courses/internal/server/repositories/repomanager"
	"github.com/coursesms/courses/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gs "github.com/coursesms/courses/internal/server/grpc"
)

// Core is the assembled auth core, shared by the server and authctl.
type Core struct {
	Repos  repomanager.RepositoryManager
	Tokens *auth.TokenManager
	Hasher *password.Hasher
	Auth   *services.AuthService
}

// OpenCore connects to the configured store, applies migrations and
// builds the auth service on top of it. m may be nil.
func OpenCore(ctx context.Context, c *config.Config, l logging.Logger, m *metrics.Metrics) (*Core, error) {
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
		Issuer:        c.TokenIssuer,
		Audience:      c.TokenAudience,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	repos, err := repomanager.Open(ctx, repomanager.Options{
		Driver:      repomanager.Driver(c.DatabaseDriver),
		DSN:         c.DatabaseDSN,
		RedisAddr:   c.RedisAddr,
		RedisPrefix: c.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("db migrations: %w", err)
	}

	svc := services.NewAuthService(repos, tokens, hasher,
		services.WithLogger(l.With("module", "auth")),
		services.WithMetrics(m),
	)
	return &Core{Repos: repos, Tokens: tokens, Hasher: hasher, Auth: svc}, nil
}

func (c *Core) Close() error {
	return c.Repos.Close()
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	core     *Core
	registry *prometheus.Registry
	grpc     *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	core, err := OpenCore(ctx, c, l, metrics.New(reg))
	if err != nil {
		return nil, err
	}

	guard := gs.NewGuard(core.Auth, l)
	return &App{
		config:   c,
		logger:   l,
		core:     core,
		registry: reg,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, l, guard),
	}, nil
}

// GRPC exposes the server so route layers can Mount their services.
func (app *App) GRPC() *gs.GRPCServer {
	return app.grpc
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a signal arrives, then closes the
// store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.core.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
