package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/events"
	"github.com/salesvoice/salesvoice/internal/logging"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// fallbackNotifier wraps the transcription gateway and publishes an event
// whenever a clip is served from the fallback pool, so operators notice
// backend degradation without tailing logs.
type fallbackNotifier struct {
	inner interface {
		Transcribe(ctx context.Context, clip *capture.AudioClip) *transcribe.Result
	}
	publisher events.Publisher
	logger    *logging.Logger
}

func (n *fallbackNotifier) Transcribe(ctx context.Context, clip *capture.AudioClip) *transcribe.Result {
	result := n.inner.Transcribe(ctx, clip)
	if result.Status == transcribe.StatusFallback {
		payload := map[string]any{
			"clipId": clip.ID,
			"reason": result.FailureReason,
		}
		if err := n.publisher.Publish(ctx, "transcription.fallback", payload); err != nil {
			n.logger.Warn(ctx, "fallback event publish failed",
				zap.String("clip_id", clip.ID), zap.Error(err))
		}
	}
	return result
}
