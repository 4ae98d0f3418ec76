// Package analytics derives read-only insight from stored activities:
// per-activity quality scores, the team dashboard, and per-user
// performance summaries.
package analytics

import (
	"math"
	"time"

	"github.com/salesvoice/salesvoice/internal/activity"
)

// Score weights. Completeness dominates because a well-filled record is
// worth more downstream than a confident but sparse one.
const (
	completenessWeight = 40.0
	confidenceWeight   = 35.0
	recencyWeight      = 25.0

	// recencyWindow is how long an activity keeps recency points.
	recencyWindow = 30 * 24 * time.Hour
)

// Score rates an activity's record quality on a 0-100 scale. Filling in
// more fields never lowers the score, and the result is always clamped
// to [0,100].
func Score(a *activity.Activity, now time.Time) int {
	score := completenessWeight*completeness(a) +
		confidenceWeight*confidence(a) +
		recencyWeight*recency(a, now)
	return clamp(int(math.Round(score)), 0, 100)
}

// completeness is the filled fraction of the fields that make a record
// actionable.
func completeness(a *activity.Activity) float64 {
	checks := []bool{
		a.Title != "",
		a.Description != "",
		a.CustomerName != "",
		a.ContactInfo != "",
		a.EstimatedValue > 0,
		a.DueDate != "",
		len(a.ActionItems) > 0,
		len(a.Tags) > 0,
	}
	filled := 0
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(checks))
}

// confidence is the classification confidence; a human-confirmed record
// counts as fully confident regardless of the machine's number.
func confidence(a *activity.Activity) float64 {
	if a.Classification.HumanConfirmed {
		return 1
	}
	c := a.Classification.Confidence
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// recency decays linearly from 1 to 0 over the recency window. Future
// timestamps count as fresh.
func recency(a *activity.Activity, now time.Time) float64 {
	age := now.Sub(a.UpdatedAt)
	if age <= 0 {
		return 1
	}
	if age >= recencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(recencyWindow)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
