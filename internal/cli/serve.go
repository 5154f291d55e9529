package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/handlers"
	"github.com/KDE/macaw-movies/internal/library"
	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/metrics"
	"github.com/KDE/macaw-movies/internal/middleware"
	"github.com/KDE/macaw-movies/internal/posters"
	"github.com/KDE/macaw-movies/internal/startup"
)

const (
	shutdownTimeout = 30 * time.Second
	collectInterval = time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	var scanOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library over HTTP",
		Long: `Serve opens the database, upgrading its schema when needed, and serves
the operational API with health probes. Prometheus metrics are served on
a separate port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			startTime := time.Now()
			if err := a.load(cmd); err != nil {
				return err
			}
			startup.LogConfig(a.cfg)

			dbStart := time.Now()
			db, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close()) }()

			version, err := db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			startup.LogDatabaseInit(time.Since(dbStart), version, db.State())

			return serve(cmd.Context(), a.cfg, db, scanOnStart, startTime)
		},
	}
	cmd.Flags().BoolVar(&scanOnStart, "scan", false, "import pending watch paths once the server is up")
	return cmd
}

// serve runs the HTTP servers until ctx is cancelled.
func serve(ctx context.Context, cfg *startup.Config, db *database.Database, scanOnStart bool, startTime time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	info := startup.GetBuildInfo()
	metrics.AppInfo.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)
	metrics.InitializeMetrics()

	collector := metrics.NewCollector(db, db.Path(), collectInterval)
	collector.Start()
	defer collector.Stop()

	cache, err := posters.NewCache(cfg.PosterDir, cfg.PosterMaxSize, db)
	if err != nil {
		return err
	}
	scanner := library.NewScanner(db)
	h := handlers.New(db, cache, scanner)
	h.SetContext(ctx)

	router := h.Router()
	startup.LogHTTPRoutes(router)

	handler := middleware.Logger(middleware.DefaultLoggingConfig())(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.MetricsPort),
		Handler:           h.MetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{srv, metricsSrv} {
		go func(s *http.Server) {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(s)
	}

	startup.LogServerStarted(startup.ServerConfig{
		Listen:          cfg.Listen,
		MetricsPort:     cfg.MetricsPort,
		StartupDuration: time.Since(startTime),
	})

	if scanOnStart && h.StartScan(ctx) {
		logging.Info("Startup scan of pending watch paths started")
	}

	var serveErr error
	select {
	case <-ctx.Done():
		startup.LogShutdownInitiated(context.Cause(ctx).Error())
	case serveErr = <-errCh:
		logging.Error("Server error: %v", serveErr)
		startup.LogShutdownInitiated("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Metrics server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Metrics server stopped")
	}

	cancel()
	startup.LogShutdownStep("Waiting for library import to stop")
	h.WaitScan()
	startup.LogShutdownStepComplete("Library import stopped")

	startup.LogShutdownComplete()
	return serveErr
}
