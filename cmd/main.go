package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/chase/internal/adapters/artifacts"
	"github.com/okian/chase/internal/adapters/http/api"
	"github.com/okian/chase/internal/adapters/http/site"
	"github.com/okian/chase/internal/adapters/http/swagger"
	"github.com/okian/chase/internal/adapters/repository"
	app "github.com/okian/chase/internal/app"
	"github.com/okian/chase/internal/config"
	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/scoring"
	"github.com/okian/chase/pkg/logger"
	"github.com/okian/chase/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	configureLogging(ctx, cfg)
	log := logger.Named("server")

	svc, err := buildService(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// configureLogging applies the configured format and level, falling back to
// text and info on invalid input.
func configureLogging(ctx context.Context, cfg *config.Config) {
	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		_ = logger.Init()
		logger.Get().Warn(ctx, "invalid log_format; falling back to text", logger.String("log_format", cfg.LogFormat))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}

// buildService loads model artifacts and the form table. Missing models and
// a missing form store degrade the service instead of failing startup.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	log := logger.Named("server")

	set, err := artifacts.Load(ctx, cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	predictor := scoring.NewPredictor(append(set.Options(), scoring.WithLogger(logger.Named("predictor")))...)
	lr, gb := predictor.Available()
	log.Info(ctx, "models loaded",
		logger.String("dir", cfg.ModelDir),
		logger.Bool("lr", lr),
		logger.Bool("gb", gb),
		logger.String("gb_kind", predictor.BoostedKind()),
	)

	forms, err := loadForms(ctx, cfg.FormDB)
	if err != nil {
		return nil, err
	}

	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithPredictor(predictor),
		app.WithForms(forms),
		app.WithDefaultOversLimit(cfg.DefaultOversLimit),
	), nil
}

// loadForms reads the form table from the corpus store. An empty path or a
// store without forms yields an empty table.
func loadForms(ctx context.Context, path string) (*form.Table, error) {
	log := logger.Named("server")
	if path == "" {
		log.Warn(ctx, "form_db not set; player form falls back to 0")
		return form.FromEntries(nil, nil), nil
	}
	store, err := repository.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	forms, err := store.LoadForms(ctx)
	if errors.Is(err, repository.ErrNoForms) {
		log.Warn(ctx, "form store is empty; run build-dataset first", logger.String("path", path))
		return form.FromEntries(nil, nil), nil
	}
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "player form loaded",
		logger.String("path", path),
		logger.Int("batsmen", forms.Players(form.Batsman)),
		logger.Int("bowlers", forms.Players(form.Bowler)),
	)
	return forms, nil
}

// newHandler registers docs, API and UI routes.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes system metrics until ctx ends.
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

// startServiceMetricsUpdater refreshes service gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
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

// updateServiceMetrics republishes model availability and form sizes.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	for name, ok := range stats.Models {
		metrics.SetModelAvailable(name, ok)
	}
	for role, n := range stats.FormPlayers {
		metrics.UpdateFormPlayers(role, n)
	}
}
