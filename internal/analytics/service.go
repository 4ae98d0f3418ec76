package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/logging"
)

// ActivitySource supplies the activities analytics reads. The store
// satisfies this.
type ActivitySource interface {
	List(ctx context.Context, f activity.Filter) ([]*activity.Activity, error)
}

// Service computes dashboards and performance summaries on demand. All
// reads go back to the source; nothing is cached.
type Service struct {
	source ActivitySource
	logger *logging.Logger
	now    func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the analytics service.
func NewService(source ActivitySource, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{source: source, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard aggregates activities into the dashboard view. months > 0
// restricts the view to the last N calendar months; zero means all time.
func (s *Service) Dashboard(ctx context.Context, months int) (*Dashboard, error) {
	now := s.now().UTC()
	filter := activity.Filter{}
	if months > 0 {
		filter.Since = now.AddDate(0, -months, 0)
	}
	activities, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	return BuildDashboard(activities, now), nil
}

// Performance summarizes one user's activity history. days > 0 restricts
// the summary to the last N days; zero means all time.
func (s *Service) Performance(ctx context.Context, userID string, days int) (*UserPerformance, error) {
	if userID == "" {
		return nil, &activity.ValidationError{Field: "userId", Message: "required"}
	}
	now := s.now().UTC()
	filter := activity.Filter{UserID: userID}
	if days > 0 {
		filter.Since = now.AddDate(0, 0, -days)
	}
	activities, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	return BuildUserPerformance(userID, activities, now), nil
}
