package merge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/salesvoice/salesvoice/internal/extraction"
)

var (
	// ErrUnknownSuggestion is returned when no suggestion exists for the field.
	ErrUnknownSuggestion = errors.New("no suggestion for field")
	// ErrSuggestionSettled is returned when apply/dismiss would flip a
	// suggestion that already reached the opposite terminal state.
	ErrSuggestionSettled = errors.New("suggestion already settled")
)

// Draft is an editable activity candidate. Auto-applied suggestions are
// already folded into the fields; the rest wait in Suggestions for the
// user's verdict.
type Draft struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ActivityType string   `json:"activityType"`
	Priority     string   `json:"priority"`
	Category     string   `json:"category"`
	ActionItems  []string `json:"actionItems"`
	Tags         []string `json:"tags"`

	CustomerName   string  `json:"customerName,omitempty"`
	ContactInfo    string  `json:"contactInfo,omitempty"`
	EstimatedValue float64 `json:"estimatedValue,omitempty"`
	DueDate        string  `json:"dueDate,omitempty"`

	Confidence  float64                 `json:"confidence"`
	Suggestions []extraction.Suggestion `json:"suggestions"`
}

// BuildDraft folds a seed into a draft under the given policy. The input
// seed is not modified; suggestion states in the draft start from the
// policy verdict (applied or untouched).
//
// The classification fields (title, description, activityType, priority,
// category, actionItems, tags) enter the draft only when the overall
// confidence clears the policy bar; below it they stay out of the draft
// until the user applies the matching suggestions.
func BuildDraft(seed *extraction.Seed, policy Policy) *Draft {
	d := &Draft{
		Confidence:  seed.Confidence,
		Suggestions: make([]extraction.Suggestion, 0, len(seed.Suggestions)),
	}
	if seed.Confidence >= policy.OverallThreshold {
		d.Title = seed.Title
		d.Description = seed.Description
		d.ActivityType = seed.ActivityType
		d.Priority = seed.Priority
		d.Category = seed.Category
		d.ActionItems = append([]string(nil), seed.ActionItems...)
		d.Tags = append([]string(nil), seed.Tags...)
	}

	for _, s := range seed.Suggestions {
		s.State = extraction.SuggestionUntouched
		if policy.shouldAutoApply(seed.Confidence, s) {
			s.State = extraction.SuggestionApplied
			d.setField(s.Field, s.Value)
		}
		d.Suggestions = append(d.Suggestions, s)
	}
	return d
}

// ApplySuggestion accepts a pending suggestion, folding its value into the
// draft. Applying an already-applied suggestion is a no-op; applying a
// dismissed one fails because dismissal is terminal.
func (d *Draft) ApplySuggestion(field string) error {
	s, err := d.find(field)
	if err != nil {
		return err
	}
	switch s.State {
	case extraction.SuggestionApplied:
		return nil
	case extraction.SuggestionDismissed:
		return fmt.Errorf("apply %s: %w", field, ErrSuggestionSettled)
	}
	s.State = extraction.SuggestionApplied
	d.setField(s.Field, s.Value)
	return nil
}

// DismissSuggestion rejects a pending suggestion. Dismissing twice is a
// no-op; dismissing an applied suggestion fails.
func (d *Draft) DismissSuggestion(field string) error {
	s, err := d.find(field)
	if err != nil {
		return err
	}
	switch s.State {
	case extraction.SuggestionDismissed:
		return nil
	case extraction.SuggestionApplied:
		return fmt.Errorf("dismiss %s: %w", field, ErrSuggestionSettled)
	}
	s.State = extraction.SuggestionDismissed
	return nil
}

// VisibleSuggestions returns the suggestions still awaiting a verdict.
func (d *Draft) VisibleSuggestions() []extraction.Suggestion {
	var out []extraction.Suggestion
	for _, s := range d.Suggestions {
		if s.State == extraction.SuggestionUntouched {
			out = append(out, s)
		}
	}
	return out
}

// Counts returns how many suggestions sit in each state. The three always
// sum to len(d.Suggestions).
func (d *Draft) Counts() (applied, dismissed, untouched int) {
	for _, s := range d.Suggestions {
		switch s.State {
		case extraction.SuggestionApplied:
			applied++
		case extraction.SuggestionDismissed:
			dismissed++
		default:
			untouched++
		}
	}
	return applied, dismissed, untouched
}

func (d *Draft) find(field string) (*extraction.Suggestion, error) {
	for i := range d.Suggestions {
		if d.Suggestions[i].Field == field {
			return &d.Suggestions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSuggestion, field)
}

func (d *Draft) setField(field, value string) {
	switch field {
	case extraction.FieldCustomerName:
		d.CustomerName = value
	case extraction.FieldContactInfo:
		d.ContactInfo = value
	case extraction.FieldEstimatedValue:
		if v, err := parseAmount(value); err == nil {
			d.EstimatedValue = v
		}
	case extraction.FieldPriority:
		d.Priority = value
	case extraction.FieldCategory:
		d.Category = value
	case extraction.FieldActivityType:
		d.ActivityType = value
	case extraction.FieldDueDate:
		d.DueDate = value
	}
}

// parseAmount parses an extracted amount, tolerating thousands separators.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
