// Package activity holds the persisted activity model, its SQLite store,
// and the review queue service that gates machine classifications behind
// human confirmation.
package activity

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an activity does not exist.
var ErrNotFound = errors.New("activity not found")

// ValidationError reports a rejected input field. HTTP handlers map it to
// a 400 response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Status is the activity lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFollowUp  Status = "follow-up"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFollowUp, StatusCancelled:
		return true
	}
	return false
}

// Classification is the machine-suggested categorization riding on an
// activity. HumanConfirmed flips exactly once, when a reviewer confirms
// or corrects the suggestion.
type Classification struct {
	SuggestedCategory    string            `json:"suggestedCategory,omitempty"`
	SuggestedSubCategory string            `json:"suggestedSubCategory,omitempty"`
	Confidence           float64           `json:"confidence"`
	HumanConfirmed       bool              `json:"humanConfirmed"`
	ExtractedData        map[string]string `json:"extractedData,omitempty"`
}

// Activity is a persisted sales activity.
type Activity struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	ActivityType string   `json:"activityType"`
	Priority     string   `json:"priority"`
	Category     string   `json:"category"`
	Status       Status   `json:"status"`
	ActionItems  []string `json:"actionItems,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	CustomerName   string  `json:"customerName,omitempty"`
	ContactInfo    string  `json:"contactInfo,omitempty"`
	EstimatedValue float64 `json:"estimatedValue,omitempty"`
	DueDate        string  `json:"dueDate,omitempty"`

	Transcript     string         `json:"transcript,omitempty"`
	Classification Classification `json:"classification"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Validate checks the fields a caller controls.
func (a *Activity) Validate() error {
	if a.UserID == "" {
		return &ValidationError{Field: "userId", Message: "required"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if a.CustomerName == "" {
		return &ValidationError{Field: "customerName", Message: "required"}
	}
	if a.Status != "" && !a.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", a.Status)}
	}
	if a.EstimatedValue < 0 {
		return &ValidationError{Field: "estimatedValue", Message: "must be >= 0"}
	}
	if a.Classification.Confidence < 0 || a.Classification.Confidence > 1 {
		return &ValidationError{Field: "classification.confidence", Message: "must be in [0,1]"}
	}
	if a.DueDate != "" {
		if _, err := time.Parse("2006-01-02", a.DueDate); err != nil {
			return &ValidationError{Field: "dueDate", Message: "must be YYYY-MM-DD"}
		}
	}
	return nil
}
