// Package config provides configuration loading for salesvoiced.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the salesvoiced daemon.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Auth          AuthConfig          `koanf:"auth"`
	Transcription TranscriptionConfig `koanf:"transcription"`
	Extraction    ExtractionConfig    `koanf:"extraction"`
	Merge         MergeConfig         `koanf:"merge"`
	Review        ReviewConfig        `koanf:"review"`
	Storage       StorageConfig       `koanf:"storage"`
	Events        EventsConfig        `koanf:"events"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// UploadRatePerMinute caps POST /audio/upload per client token.
	UploadRatePerMinute int `koanf:"upload_rate_per_minute"`
}

// AuthConfig holds bearer-token authentication settings.
type AuthConfig struct {
	// Token is the static bearer token accepted by the API.
	// Empty token disables auth (local development only).
	Token Secret `koanf:"token"`
}

// TranscriptionConfig holds transcription backend settings.
type TranscriptionConfig struct {
	BaseURL string   `koanf:"base_url"`
	APIKey  Secret   `koanf:"api_key"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
	// RequestsPerMinute rate-limits calls to the remote backend.
	RequestsPerMinute int `koanf:"requests_per_minute"`
	// FallbackPoolPath points at the YAML file holding fallback
	// transcript templates. Empty uses the built-in pool.
	FallbackPoolPath string `koanf:"fallback_pool_path"`
	// WatchFallbackPool reloads the pool file on change.
	WatchFallbackPool bool `koanf:"watch_fallback_pool"`
}

// ExtractionConfig holds field extraction settings.
type ExtractionConfig struct {
	// Provider selects the extraction implementation: "heuristic" or "disabled".
	Provider string `koanf:"provider"`
	// PatternsPath points at a YAML vocabulary file that replaces the
	// built-in classification patterns. Empty uses the built-ins.
	PatternsPath string `koanf:"patterns_path"`
}

// MergeConfig holds the suggestion auto-apply policy thresholds.
// These are policy constants, not tuning knobs; the defaults match
// observed product behavior.
type MergeConfig struct {
	OverallThreshold        float64 `koanf:"overall_threshold"`
	CustomerNameThreshold   float64 `koanf:"customer_name_threshold"`
	ContactInfoThreshold    float64 `koanf:"contact_info_threshold"`
	EstimatedValueThreshold float64 `koanf:"estimated_value_threshold"`
}

// ReviewConfig holds review queue settings.
type ReviewConfig struct {
	// ConfirmationBar is the classification confidence at or above which
	// an activity is stored as already human-confirmed and skips the queue.
	ConfirmationBar float64 `koanf:"confirmation_bar"`
	DefaultLimit    int     `koanf:"default_limit"`
	MaxLimit        int     `koanf:"max_limit"`
}

// StorageConfig holds the SQLite store settings.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// EventsConfig holds NATS event publishing settings.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8790
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.UploadRatePerMinute == 0 {
		cfg.Server.UploadRatePerMinute = 30
	}

	if cfg.Transcription.Timeout == 0 {
		cfg.Transcription.Timeout = Duration(30 * time.Second)
	}
	if cfg.Transcription.RequestsPerMinute == 0 {
		cfg.Transcription.RequestsPerMinute = 60
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}

	if cfg.Extraction.Provider == "" {
		cfg.Extraction.Provider = "heuristic"
	}

	if cfg.Merge.OverallThreshold == 0 {
		cfg.Merge.OverallThreshold = 0.70
	}
	if cfg.Merge.CustomerNameThreshold == 0 {
		cfg.Merge.CustomerNameThreshold = 0.60
	}
	if cfg.Merge.ContactInfoThreshold == 0 {
		cfg.Merge.ContactInfoThreshold = 0.60
	}
	if cfg.Merge.EstimatedValueThreshold == 0 {
		cfg.Merge.EstimatedValueThreshold = 0.50
	}

	if cfg.Review.ConfirmationBar == 0 {
		cfg.Review.ConfirmationBar = 0.75
	}
	if cfg.Review.DefaultLimit == 0 {
		cfg.Review.DefaultLimit = 20
	}
	if cfg.Review.MaxLimit == 0 {
		cfg.Review.MaxLimit = 100
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "salesvoice.sqlite"
	}

	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://localhost:4222"
	}
	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "salesvoice"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown_timeout must be > 0")
	}
	if c.Server.UploadRatePerMinute < 1 {
		return fmt.Errorf("server upload_rate_per_minute must be >= 1")
	}

	if c.Transcription.Timeout.Duration() <= 0 {
		return fmt.Errorf("transcription timeout must be > 0")
	}
	if c.Transcription.RequestsPerMinute < 1 {
		return fmt.Errorf("transcription requests_per_minute must be >= 1")
	}

	switch c.Extraction.Provider {
	case "heuristic", "disabled":
	default:
		return fmt.Errorf("extraction provider must be 'heuristic' or 'disabled', got %q", c.Extraction.Provider)
	}

	for name, v := range map[string]float64{
		"merge overall_threshold":         c.Merge.OverallThreshold,
		"merge customer_name_threshold":   c.Merge.CustomerNameThreshold,
		"merge contact_info_threshold":    c.Merge.ContactInfoThreshold,
		"merge estimated_value_threshold": c.Merge.EstimatedValueThreshold,
		"review confirmation_bar":         c.Review.ConfirmationBar,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}

	if c.Review.DefaultLimit < 1 {
		return fmt.Errorf("review default_limit must be >= 1")
	}
	if c.Review.MaxLimit < c.Review.DefaultLimit {
		return fmt.Errorf("review max_limit must be >= default_limit")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events url is required when events are enabled")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}
