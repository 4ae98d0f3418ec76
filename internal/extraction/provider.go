package extraction

import (
	"context"
	"fmt"

	"github.com/salesvoice/salesvoice/internal/logging"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// NewProvider creates the configured extraction provider.
func NewProvider(cfg Config, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case "", "heuristic":
		var opts []Option
		if cfg.PatternsPath != "" {
			set, err := LoadPatternSet(cfg.PatternsPath)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithPatternSet(set))
		}
		return NewHeuristicEngine(logger, opts...), nil
	case "disabled":
		return &disabledProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown extraction provider: %q", cfg.Provider)
	}
}

// disabledProvider always reports zero confidence, forcing manual entry.
// Used when a deployment wants transcription without field extraction.
type disabledProvider struct{}

func (d *disabledProvider) Extract(_ context.Context, text string, _ *transcribe.Hints) (*Seed, error) {
	return &Seed{Description: text, Confidence: 0}, nil
}

var _ Provider = (*disabledProvider)(nil)
