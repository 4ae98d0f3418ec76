package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/config"
)

// HTTPBackend sends clips to a speech-to-text HTTP service as multipart
// uploads. Calls are rate limited; there are no automatic retries because a
// clip is submitted at most once per capture (the user re-records instead).
type HTTPBackend struct {
	baseURL    string
	apiKey     config.Secret
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPBackend creates a backend client from config.
func NewHTTPBackend(cfg config.TranscriptionConfig) (*HTTPBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transcription base_url is required")
	}

	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &HTTPBackend{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Duration(),
		},
		limiter: rate.NewLimiter(perSecond, cfg.RequestsPerMinute),
	}, nil
}

// backendResponse is the wire shape returned by the backend.
type backendResponse struct {
	Text         string   `json:"text"`
	Language     string   `json:"language"`
	Confidence   float64  `json:"confidence"`
	Duration     float64  `json:"duration"`
	Enhanced     bool     `json:"enhanced"`
	CustomerInfo string   `json:"customer_info"`
	DealInfo     string   `json:"deal_info"`
	ActionItems  []string `json:"action_items"`
	Summary      string   `json:"summary"`
}

// Transcribe uploads the clip and decodes the backend response.
func (b *HTTPBackend) Transcribe(ctx context.Context, clip *capture.AudioClip) (*Result, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if b.model != "" {
		if err := writer.WriteField("model", b.model); err != nil {
			return nil, fmt.Errorf("write model field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("audio", clip.ID+".webm")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, fmt.Errorf("write audio payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if b.apiKey.IsSet() {
		req.Header.Set("Authorization", "Bearer "+b.apiKey.Value())
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read keeps error messages useful without slurping
		// arbitrary payloads.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}

	result := &Result{
		Text:            decoded.Text,
		Language:        decoded.Language,
		Confidence:      decoded.Confidence,
		DurationSeconds: decoded.Duration,
		Enhanced:        decoded.Enhanced,
		Status:          StatusSuccess,
	}
	if decoded.Enhanced {
		result.Hints = &Hints{
			CustomerInfo: decoded.CustomerInfo,
			DealInfo:     decoded.DealInfo,
			ActionItems:  decoded.ActionItems,
			Summary:      decoded.Summary,
		}
	}
	if result.DurationSeconds == 0 && clip.Duration > 0 {
		result.DurationSeconds = clip.Duration.Seconds()
	}
	return result, nil
}

var _ Backend = (*HTTPBackend)(nil)
