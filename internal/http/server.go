// Package http provides the salesvoice HTTP API.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/analytics"
	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/config"
	"github.com/salesvoice/salesvoice/internal/extraction"
	"github.com/salesvoice/salesvoice/internal/logging"
	"github.com/salesvoice/salesvoice/internal/merge"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// Transcriber converts a clip to a transcript. The gateway satisfies this.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *capture.AudioClip) *transcribe.Result
}

// ActivityService is the review queue surface the API needs.
type ActivityService interface {
	Create(ctx context.Context, a *activity.Activity) (*activity.Activity, error)
	Get(ctx context.Context, id string) (*activity.Activity, error)
	ListPending(ctx context.Context, limit int) ([]*activity.Activity, error)
	Confirm(ctx context.Context, id string, confirmed bool, updates map[string]any) (*activity.Activity, error)
	UpdateStatus(ctx context.Context, id string, status activity.Status) (*activity.Activity, error)
}

// AnalyticsService is the reporting surface the API needs.
type AnalyticsService interface {
	Dashboard(ctx context.Context, months int) (*analytics.Dashboard, error)
	Performance(ctx context.Context, userID string, days int) (*analytics.UserPerformance, error)
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Transcriber Transcriber
	Extractor   extraction.Provider
	Activities  ActivityService
	Analytics   AnalyticsService
	MergePolicy merge.Policy
}

// Server provides the HTTP endpoints for the voice-to-activity pipeline.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *logging.Logger
	cfg    config.ServerConfig
}

// NewServer creates the HTTP server. registry may be nil to skip metrics.
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, deps Deps, logger *logging.Logger, registry *prometheus.Registry) (*Server, error) {
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.Activities == nil {
		return nil, fmt.Errorf("activity service is required")
	}
	if deps.Analytics == nil {
		return nil, fmt.Errorf("analytics service is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if registry != nil {
		m := newHTTPMetrics(registry)
		e.Use(m.middleware())
		e.GET("/metrics", m.handler())
	}
	if auth.Token.IsSet() {
		e.Use(bearerAuth(auth.Token.Value()))
	}

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		cfg:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/audio/upload", s.handleUpload, uploadRateLimiter(s.cfg.UploadRatePerMinute))
	v1.POST("/drafts", s.handleDraft)

	v1.POST("/activities", s.handleCreateActivity)
	v1.GET("/activities/pending-review", s.handlePendingReview)
	v1.GET("/activities/analytics/dashboard", s.handleDashboard)
	v1.GET("/activities/performance/user/:userID", s.handlePerformance)
	v1.GET("/activities/:id", s.handleGetActivity)
	v1.PUT("/activities/:id/confirm-classification", s.handleConfirmClassification)
	v1.PUT("/activities/:id/status", s.handleUpdateStatus)
}

// requestLogger logs each request and threads the request ID into the
// context so downstream service logs correlate.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)))
			return err
		}
	}
}

// bearerAuth enforces the static API token. Health and metrics stay open
// for probes and scrapers.
func bearerAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing api token")
		},
	})
}

// uploadRateLimiter throttles uploads per client IP.
func uploadRateLimiter(perMinute int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(float64(perMinute) / 60.0),
			Burst: perMinute,
		}),
	})
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "salesvoiced"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
