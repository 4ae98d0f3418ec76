// Package extraction turns transcript text into a candidate activity draft:
// field values, an overall confidence, and per-field suggestions. It is
// deterministic on identical input text so the same transcript always
// yields the same candidate set.
package extraction

import (
	"context"

	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// Field names used by suggestions and the merge policy table.
const (
	FieldCustomerName   = "customerName"
	FieldContactInfo    = "contactInfo"
	FieldEstimatedValue = "estimatedValue"
	FieldPriority       = "priority"
	FieldCategory       = "category"
	FieldActivityType   = "activityType"
	FieldDueDate        = "dueDate"
)

// SuggestionState tracks what happened to a suggestion. Once it leaves
// Untouched the state is terminal for that suggestion instance; a new
// extraction run produces a fresh set.
type SuggestionState string

const (
	SuggestionUntouched SuggestionState = "untouched"
	SuggestionApplied   SuggestionState = "applied"
	SuggestionDismissed SuggestionState = "dismissed"
)

// Suggestion is a candidate field value surfaced for accept/reject.
type Suggestion struct {
	Field      string          `json:"field"`
	Value      string          `json:"value"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	State      SuggestionState `json:"state"`
}

// Seed is the extraction output an activity draft is built from.
type Seed struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ActivityType string   `json:"activity_type"`
	Priority     string   `json:"priority"`
	Category     string   `json:"category"`
	ActionItems  []string `json:"action_items"`
	Tags         []string `json:"tags"`

	CustomerName   string  `json:"customer_name,omitempty"`
	ContactInfo    string  `json:"contact_info,omitempty"`
	EstimatedValue float64 `json:"estimated_value,omitempty"`
	DueDate        string  `json:"due_date,omitempty"`

	// Confidence is the overall extraction confidence in [0,1]. Zero
	// means no structured data could be produced and the caller falls
	// back to fully manual entry.
	Confidence  float64      `json:"confidence"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Provider extracts a draft seed from transcript text. Hints from an
// enhanced transcription result may be nil.
type Provider interface {
	Extract(ctx context.Context, text string, hints *transcribe.Hints) (*Seed, error)
}

// Config holds extraction configuration.
type Config struct {
	// Provider selects the implementation: "heuristic" or "disabled".
	Provider string `json:"provider"`
	// PatternsPath optionally replaces the built-in vocabularies with a
	// YAML pattern set.
	PatternsPath string `json:"patterns_path,omitempty"`
}
