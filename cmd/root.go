package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/corex-retail/sales-forecast/internal/adapters/http/api"
	"github.com/corex-retail/sales-forecast/internal/adapters/http/swagger"
	"github.com/corex-retail/sales-forecast/internal/adapters/predictor"
	app "github.com/corex-retail/sales-forecast/internal/app"
	"github.com/corex-retail/sales-forecast/internal/config"
	"github.com/corex-retail/sales-forecast/pkg/logger"
	"github.com/corex-retail/sales-forecast/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// serveFlags are the command line overrides applied on top of config.Load.
type serveFlags struct {
	configPath  string
	host        string
	port        int
	modelPath   string
	modelFormat string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	var flags serveFlags
	root := &cobra.Command{
		Use:          "forecast",
		Short:        "Sales forecast inference service",
		SilenceUsage: true,
		Long: `forecast serves monthly sales predictions from a pre-trained
gradient boosted tree ensemble over HTTP.

Running without a subcommand starts the server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &flags)
		},
	}
	addConfigFlags(root, &flags)

	root.AddCommand(newServeCmd(), newCheckCmd(), newProbeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &flags)
		},
	}
	addConfigFlags(cmd, &flags)
	return cmd
}

func addConfigFlags(cmd *cobra.Command, f *serveFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file (default $"+config.FileEnv+")")
	fs.StringVar(&f.host, "host", "", "listen host")
	fs.IntVarP(&f.port, "port", "p", 0, "listen port")
	fs.StringVarP(&f.modelPath, "model", "m", "", "model artifact path")
	fs.StringVar(&f.modelFormat, "model-format", "", "artifact format: "+strings.Join(predictor.Formats, ", "))
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig layers explicitly set flags over defaults, file and env.
func loadConfig(ctx context.Context, cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(ctx, f.configPath)
	if err != nil {
		return nil, err
	}
	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("model") {
		cfg.ModelPath = f.modelPath
	}
	if fs.Changed("model-format") {
		cfg.ModelFormat = f.modelFormat
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging configures the global logger from cfg.
func initLogging(cfg *config.Config, opts ...logger.Option) error {
	opts = append(opts, logger.WithFormat(cfg.LogFormat))
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, cmd, f)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	// A missing or broken model does not stop the process; /health still
	// answers and the other endpoints report model_unavailable.
	svc := app.New(
		app.WithLogger(log),
		app.WithModelPath(cfg.ModelPath),
		app.WithModelFormat(cfg.ModelFormat),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := newHTTPServer(ctx, cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", srv.Addr),
			logger.Bool("model_loaded", svc.ModelLoaded()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// newHTTPServer wires every route onto a fresh mux.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithCORSOrigin(cfg.CORSAllowOrigin),
		api.WithLogger(logger.Named("http")),
	)
	apiServer.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater periodically refreshes runtime gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var avgPauseMs float64
	if m.NumGC > 0 {
		avgPauseMs = float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine(), avgPauseMs)
}
