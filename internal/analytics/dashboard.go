package analytics

import (
	"sort"
	"time"

	"github.com/salesvoice/salesvoice/internal/activity"
)

// Dashboard is the aggregate view over all activities.
type Dashboard struct {
	TotalActivities int     `json:"totalActivities"`
	TotalValue      float64 `json:"totalValue"`
	PendingReview   int     `json:"pendingReview"`
	AverageScore    float64 `json:"averageScore"`

	ByCategory map[string]int `json:"byCategory"`
	ByStatus   map[string]int `json:"byStatus"`
	// ByMonth keys are "2006-01" month stamps of activity creation.
	ByMonth map[string]int `json:"byMonth"`

	// TrendPercent compares activity volume in the last seven days with
	// the seven days before that, as a percentage change.
	TrendPercent float64 `json:"trendPercent"`

	// RecentActivities holds the newest activities for the dashboard feed.
	RecentActivities []*activity.Activity `json:"recentActivities"`
}

const (
	trendWindow = 7 * 24 * time.Hour
	recentLimit = 5
)

// BuildDashboard aggregates activities into the dashboard view.
func BuildDashboard(activities []*activity.Activity, now time.Time) *Dashboard {
	d := &Dashboard{
		ByCategory: map[string]int{},
		ByStatus:   map[string]int{},
		ByMonth:    map[string]int{},
	}

	var current, previous int
	var scoreSum float64
	for _, a := range activities {
		d.TotalActivities++
		d.TotalValue += a.EstimatedValue
		if !a.Classification.HumanConfirmed {
			d.PendingReview++
		}
		d.ByCategory[a.Category]++
		d.ByStatus[string(a.Status)]++
		d.ByMonth[a.CreatedAt.Format("2006-01")]++
		scoreSum += float64(Score(a, now))

		age := now.Sub(a.CreatedAt)
		switch {
		case age < trendWindow:
			current++
		case age < 2*trendWindow:
			previous++
		}
	}

	if d.TotalActivities > 0 {
		d.AverageScore = scoreSum / float64(d.TotalActivities)
	}
	d.TrendPercent = trendPercent(current, previous)
	d.RecentActivities = newestFirst(activities, recentLimit)
	return d
}

// newestFirst returns up to limit activities ordered by creation time
// descending, without mutating the input slice.
func newestFirst(activities []*activity.Activity, limit int) []*activity.Activity {
	out := make([]*activity.Activity, len(activities))
	copy(out, activities)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// trendPercent is the percentage change between two periods. A zero
// baseline yields zero rather than a meaningless infinity.
func trendPercent(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return (float64(current) - float64(previous)) / float64(previous) * 100
}
