// Package transcribe turns finished audio clips into transcripts. A remote
// speech-to-text backend is tried first; any failure degrades to a
// deterministic fallback transcript so the pipeline never dead-ends on
// backend unavailability.
package transcribe

import (
	"context"

	"github.com/salesvoice/salesvoice/internal/capture"
)

// Status tells callers whether a result came from the real backend, the
// local fallback pool, or could not be produced at all. Callers branch on
// this flag, never on transcript content.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFallback Status = "fallback"
	StatusError    Status = "error"
)

// Hints are model-extracted CRM hints carried by enhanced backend results.
type Hints struct {
	CustomerInfo string   `json:"customer_info,omitempty"`
	DealInfo     string   `json:"deal_info,omitempty"`
	ActionItems  []string `json:"action_items,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// Result is a finished transcription. Created once per clip, never mutated.
type Result struct {
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// Enhanced marks results that already carry model-extracted hints.
	// Non-enhanced results carry only raw text and must go through the
	// extraction engine unaided.
	Enhanced bool   `json:"enhanced"`
	Hints    *Hints `json:"hints,omitempty"`

	Status Status `json:"status"`
	// FailureReason records why the remote call failed when Status is
	// fallback. Observability only; not surfaced to users.
	FailureReason string `json:"-"`
}

// Backend is the remote speech-to-text contract: clip in, transcript out.
type Backend interface {
	Transcribe(ctx context.Context, clip *capture.AudioClip) (*Result, error)
}
