package analytics

import (
	"time"

	"github.com/salesvoice/salesvoice/internal/activity"
)

// UserPerformance summarizes one user's activity history.
type UserPerformance struct {
	UserID              string  `json:"userId"`
	TotalActivities     int     `json:"totalActivities"`
	CompletedActivities int     `json:"completedActivities"`
	CompletionRate      float64 `json:"completionRate"`
	TotalValue          float64 `json:"totalValue"`
	AverageScore        float64 `json:"averageScore"`
	Level               string  `json:"level"`
}

// Experience levels. A level needs both the activity volume and the
// average score for its tier; a user falls to the highest tier where both
// hold.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
	LevelMaster       = "Master"
)

type levelTier struct {
	name     string
	minTotal int
	minScore float64
}

var levelTiers = []levelTier{
	{LevelMaster, 400, 65},
	{LevelExpert, 150, 50},
	{LevelAdvanced, 50, 35},
	{LevelIntermediate, 10, 20},
}

// BuildUserPerformance summarizes the given user's activities. The input
// must already be filtered to a single user.
func BuildUserPerformance(userID string, activities []*activity.Activity, now time.Time) *UserPerformance {
	p := &UserPerformance{UserID: userID}

	var scoreSum float64
	for _, a := range activities {
		p.TotalActivities++
		p.TotalValue += a.EstimatedValue
		if a.Status == activity.StatusCompleted {
			p.CompletedActivities++
		}
		scoreSum += float64(Score(a, now))
	}

	if p.TotalActivities > 0 {
		p.CompletionRate = float64(p.CompletedActivities) / float64(p.TotalActivities)
		p.AverageScore = scoreSum / float64(p.TotalActivities)
	}
	p.Level = levelFor(p.TotalActivities, p.AverageScore)
	return p
}

func levelFor(total int, avgScore float64) string {
	for _, tier := range levelTiers {
		if total >= tier.minTotal && avgScore >= tier.minScore {
			return tier.name
		}
	}
	return LevelBeginner
}
