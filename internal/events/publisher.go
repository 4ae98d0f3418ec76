// Package events publishes pipeline lifecycle events over NATS so other
// systems (CRM sync, notifications) can react without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/logging"
)

// Publisher emits a named event with a JSON payload.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
	Close()
}

// Envelope wraps every published payload.
type Envelope struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// NATSPublisher publishes events to subjects of the form
// "<prefix>.<event>", e.g. "salesvoice.activity.created".
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

// Connect dials NATS and returns a publisher on the given subject prefix.
func Connect(url, prefix string, logger *logging.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewNATSPublisher(nc, prefix, logger), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger, now: time.Now}
}

// Publish emits the event. Publishing is fire-and-forget; NATS buffers
// while disconnected and an overflow surfaces as an error here.
func (p *NATSPublisher) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(Envelope{
		Event:      event,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}

	subject := p.prefix + "." + event
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug(ctx, "event published", zap.String("subject", subject))
	return nil
}

// Close flushes and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Flush(); err != nil {
		p.logger.Warn(context.Background(), "nats flush failed", zap.Error(err))
	}
	p.nc.Close()
}

// NopPublisher drops all events. Used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close()                                     {}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NopPublisher{}
)
