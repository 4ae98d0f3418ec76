// Salesvoiced is the voice-to-activity daemon for field sales teams.
//
// It accepts recorded voice notes over HTTP, transcribes them (falling
// back to local templates when the speech backend is down), extracts CRM
// fields from the transcript, and manages the resulting activities through
// a human review queue with analytics on top.
//
// Usage:
//
//	# Start with defaults
//	salesvoiced
//
//	# Start with a config file
//	salesvoiced --config /etc/salesvoice/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9000 STORAGE_PATH=/var/lib/salesvoice.sqlite salesvoiced
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/analytics"
	"github.com/salesvoice/salesvoice/internal/config"
	"github.com/salesvoice/salesvoice/internal/events"
	"github.com/salesvoice/salesvoice/internal/extraction"
	api "github.com/salesvoice/salesvoice/internal/http"
	"github.com/salesvoice/salesvoice/internal/logging"
	"github.com/salesvoice/salesvoice/internal/merge"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "salesvoiced",
	Short: "Voice-to-activity daemon for field sales teams",
	Long: `salesvoiced turns recorded voice notes into structured CRM activities.

It exposes an HTTP API for uploading audio, reviewing extraction drafts,
confirming classifications, and reading activity analytics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the salesvoiced HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("salesvoiced\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "salesvoiced: %v\n", err)
		os.Exit(1)
	}
}

// runServe wires the pipeline and blocks until shutdown:
// transcription gateway -> extraction -> merge policy -> activity store,
// all behind the HTTP API.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting salesvoiced",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Path))

	registry := prometheus.NewRegistry()

	gateway, pool, err := initTranscription(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer pool.Close()

	extractor, err := extraction.NewProvider(extraction.Config{
		Provider:     cfg.Extraction.Provider,
		PatternsPath: cfg.Extraction.PatternsPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize extraction: %w", err)
	}

	store, err := activity.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open activity store: %w", err)
	}
	defer store.Close()

	publisher, err := initPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	activitySvc := activity.NewService(store, cfg.Review, logger,
		activity.WithPublisher(publisher))
	analyticsSvc := analytics.NewService(store, logger)

	deps := api.Deps{
		Transcriber: &fallbackNotifier{inner: gateway, publisher: publisher, logger: logger},
		Extractor:   extractor,
		Activities:  activitySvc,
		Analytics:   analyticsSvc,
		MergePolicy: merge.NewPolicy(cfg.Merge),
	}

	srv, err := api.NewServer(cfg.Server, cfg.Auth, deps, logger, registry)
	if err != nil {
		return fmt.Errorf("initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}

// initLogger builds the structured logger from configuration.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	return logging.NewLogger(logCfg)
}

// initTranscription builds the gateway: remote backend when configured,
// fallback pool always.
func initTranscription(ctx context.Context, cfg *config.Config, logger *logging.Logger, registry *prometheus.Registry) (*transcribe.Gateway, *transcribe.FallbackPool, error) {
	var pool *transcribe.FallbackPool
	if cfg.Transcription.FallbackPoolPath != "" {
		var err error
		pool, err = transcribe.LoadFallbackPool(cfg.Transcription.FallbackPoolPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load fallback pool: %w", err)
		}
		if cfg.Transcription.WatchFallbackPool {
			if err := pool.Watch(cfg.Transcription.FallbackPoolPath); err != nil {
				logger.Warn(ctx, "fallback pool watch unavailable", zap.Error(err))
			}
		}
	} else {
		pool = transcribe.NewFallbackPool(nil, logger)
	}

	var backend transcribe.Backend
	if cfg.Transcription.BaseURL != "" {
		httpBackend, err := transcribe.NewHTTPBackend(cfg.Transcription)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("initialize transcription backend: %w", err)
		}
		backend = httpBackend
		logger.Info(ctx, "transcription backend configured",
			zap.String("base_url", cfg.Transcription.BaseURL),
			zap.String("model", cfg.Transcription.Model))
	} else {
		logger.Warn(ctx, "no transcription backend configured, all clips served from fallback pool")
	}

	metrics := transcribe.NewMetrics(registry)
	return transcribe.NewGateway(backend, pool, logger, metrics), pool, nil
}

// initPublisher connects to NATS when events are enabled.
func initPublisher(ctx context.Context, cfg *config.Config, logger *logging.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.Connect(cfg.Events.URL, cfg.Events.SubjectPrefix, logger)
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}
	logger.Info(ctx, "event publisher connected",
		zap.String("url", cfg.Events.URL),
		zap.String("subject_prefix", cfg.Events.SubjectPrefix))
	return publisher, nil
}
