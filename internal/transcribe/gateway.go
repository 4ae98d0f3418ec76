package transcribe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/logging"
)

// Gateway is the transcription entry point for the pipeline. It never
// returns an error to its caller: remote failures degrade to a
// deterministic fallback result so the rest of the pipeline, and the UI,
// never block on backend unavailability. Fallback trades transcript
// fidelity for pipeline liveness.
type Gateway struct {
	backend Backend
	pool    *FallbackPool
	logger  *logging.Logger
	metrics *Metrics
}

// NewGateway creates a gateway. backend may be nil, in which case every
// clip is served from the fallback pool (degraded deployment).
func NewGateway(backend Backend, pool *FallbackPool, logger *logging.Logger, metrics *Metrics) *Gateway {
	if pool == nil {
		pool = NewFallbackPool(nil, logger)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Gateway{
		backend: backend,
		pool:    pool,
		logger:  logger,
		metrics: metrics,
	}
}

// Transcribe converts a clip into a transcript. The returned result always
// has a usable Text; Status tells the caller whether it is real or a
// fallback template.
func (g *Gateway) Transcribe(ctx context.Context, clip *capture.AudioClip) *Result {
	if clip == nil || len(clip.Data) == 0 {
		g.metrics.observe(StatusError, "", 0)
		return &Result{Status: StatusError, FailureReason: "empty clip"}
	}

	if g.backend == nil {
		return g.fallback(ctx, clip, "backend not configured")
	}

	start := time.Now()
	result, err := g.backend.Transcribe(ctx, clip)
	elapsed := time.Since(start)

	if err != nil {
		g.logger.Warn(ctx, "remote transcription failed, serving fallback",
			zap.String("clip_id", clip.ID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		g.metrics.observe(StatusFallback, "remote_failure", elapsed.Seconds())
		return g.fallbackResult(clip, err.Error())
	}

	result.Status = StatusSuccess
	g.metrics.observe(StatusSuccess, "", elapsed.Seconds())
	g.logger.Info(ctx, "transcription complete",
		zap.String("clip_id", clip.ID),
		zap.Bool("enhanced", result.Enhanced),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("elapsed", elapsed))
	return result
}

func (g *Gateway) fallback(ctx context.Context, clip *capture.AudioClip, reason string) *Result {
	g.logger.Warn(ctx, "serving fallback transcript",
		zap.String("clip_id", clip.ID),
		zap.String("reason", reason))
	g.metrics.observe(StatusFallback, "not_configured", 0)
	return g.fallbackResult(clip, reason)
}

func (g *Gateway) fallbackResult(clip *capture.AudioClip, reason string) *Result {
	tmpl := g.pool.Select(clip.ID)
	return &Result{
		Text:            tmpl.Text,
		Language:        tmpl.Language,
		Confidence:      fallbackConfidence,
		DurationSeconds: clip.Duration.Seconds(),
		Enhanced:        false,
		Status:          StatusFallback,
		FailureReason:   reason,
	}
}
