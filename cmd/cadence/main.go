package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/cadence/internal/adapters/http/api"
	"github.com/okian/cadence/internal/adapters/http/swagger"
	"github.com/okian/cadence/internal/adapters/identity"
	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run loads configuration, serves until ctx is cancelled and shuts down.
func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	srv, svc, err := setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// setup wires the authenticator, engine, service and routes from cfg. The
// returned service is started; the caller stops it.
func setup(ctx context.Context, cfg *config.Config, log logger.Logger) (*http.Server, *service.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	auth, err := buildAuthenticator(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	engine := prediction.NewEngine(
		prediction.WithVolatilityFloor(cfg.VolatilityFloor),
		prediction.WithConfidenceBounds(cfg.ConfidenceMin, cfg.ConfidenceMax),
	)

	svc := service.New(
		service.WithLogger(log),
		service.WithAuthenticator(auth),
		service.WithEngine(engine),
		service.WithLocation(loc),
		service.WithTickInterval(cfg.TickInterval()),
		service.WithIdleTimeout(cfg.SessionIdleTimeout()),
		service.WithShardCount(cfg.ShardCount),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithHighlightThreshold(cfg.HighlightThreshold),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start service: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithCookieName(cfg.SessionCookieName),
		api.WithSecureCookies(cfg.SecureCookies),
		api.WithLogger(log),
	).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}, svc, nil
}

// configureMetrics applies the metric namespace and instance label.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(map[string]string{"instance": cfg.MetricsInstance}),
	)
}

// buildAuthenticator picks the configured provider and wraps it with the
// per-email login throttle.
func buildAuthenticator(cfg *config.Config, log logger.Logger) (identity.Authenticator, error) {
	var inner identity.Authenticator
	switch cfg.IdentityProvider {
	case config.ProviderStatic:
		inner = identity.NewStatic(cfg.StaticUsers)
	case config.ProviderIdentityToolkit:
		inner = identity.NewToolkitClient(cfg.IdentityEndpoint, cfg.IdentityAPIKey,
			identity.WithTimeout(cfg.IdentityTimeout()),
			identity.WithLogger(log),
		)
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownProvider, cfg.IdentityProvider)
	}
	return identity.NewThrottled(inner, cfg.LoginRatePerSec, cfg.LoginBurst), nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
