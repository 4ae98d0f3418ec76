package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/config"
	"github.com/salesvoice/salesvoice/internal/logging"
)

// EventPublisher receives lifecycle events. Implementations must tolerate
// being called on the request path; publish failures are logged, never
// surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Service wraps the store with the review queue policy: classifications at
// or above the confirmation bar are stored pre-confirmed, the rest queue
// for human review.
type Service struct {
	store     *Store
	publisher EventPublisher
	cfg       config.ReviewConfig
	logger    *logging.Logger
	now       func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithPublisher attaches an event publisher.
func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// NewService creates the review queue service.
func NewService(store *Store, cfg config.ReviewConfig, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new activity. Classification confidence
// at or above the confirmation bar skips the review queue.
func (s *Service) Create(ctx context.Context, a *Activity) (*Activity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	now := s.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if !a.Classification.HumanConfirmed && a.Classification.Confidence >= s.cfg.ConfirmationBar {
		a.Classification.HumanConfirmed = true
	}

	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	s.logger.Info(ctx, "activity created",
		zap.String("activity_id", a.ID),
		zap.String("category", a.Category),
		zap.Float64("confidence", a.Classification.Confidence),
		zap.Bool("queued_for_review", !a.Classification.HumanConfirmed))
	s.publish(ctx, "activity.created", a)
	return a, nil
}

// Get returns an activity by ID.
func (s *Service) Get(ctx context.Context, id string) (*Activity, error) {
	return s.store.Get(ctx, id)
}

// ListPending returns activities awaiting classification review, newest
// first. The limit is clamped to the configured bounds.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return s.store.ListPendingReview(ctx, limit)
}

// Confirm records a reviewer's verdict on an activity's classification.
//
// Updates carry human corrections keyed by JSON field name; they are
// applied to the stored fields on either verdict, and a malformed update
// leaves the record untouched. Confirming promotes the suggested category
// unless an update overrides it; rejecting discards the suggestions and
// keeps the plain fields. The first call settles the record; later calls
// return the settled activity unchanged.
func (s *Service) Confirm(ctx context.Context, id string, confirmed bool, updates map[string]any) (*Activity, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Classification.HumanConfirmed {
		return a, nil
	}

	reviewed := *a
	if err := applyUpdates(&reviewed, updates); err != nil {
		return nil, err
	}
	if confirmed {
		if _, corrected := updates["category"]; !corrected && reviewed.Classification.SuggestedCategory != "" {
			reviewed.Category = reviewed.Classification.SuggestedCategory
		}
		reviewed.Classification.SuggestedCategory = reviewed.Category
	} else {
		reviewed.Classification.SuggestedCategory = ""
		reviewed.Classification.SuggestedSubCategory = ""
	}
	reviewed.Classification.HumanConfirmed = true
	if err := reviewed.Validate(); err != nil {
		return nil, err
	}

	changed, err := s.store.ConfirmClassification(ctx, &reviewed, s.now().UTC())
	if err != nil {
		return nil, err
	}

	a, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info(ctx, "classification reviewed",
			zap.String("activity_id", id),
			zap.Bool("confirmed", confirmed),
			zap.String("category", a.Category))
		s.publish(ctx, "activity.classified", a)
	}
	return a, nil
}

// UpdateStatus moves an activity through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Activity, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	if err := s.store.UpdateStatus(ctx, id, status, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, event string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.logger.Warn(ctx, "event publish failed",
			zap.String("event", event), zap.Error(err))
	}
}
