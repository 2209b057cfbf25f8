// Package outbox moves rendered notifications off the request path.
package outbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Outbox accepts messages for delivery.
type Outbox interface {
	Enqueue(ctx context.Context, msg mail.Message) error
}

// Deliverer makes the single delivery attempt for a message and records the outcome.
type Deliverer struct {
	sender  mail.Sender
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDeliverer wraps sender with logging and metrics.
func NewDeliverer(sender mail.Sender, metrics *observability.Metrics, logger *zap.Logger) *Deliverer {
	return &Deliverer{sender: sender, metrics: metrics, logger: logger}
}

// Deliver sends msg once. Failures are logged at warn and returned.
func (d *Deliverer) Deliver(ctx context.Context, msg mail.Message) error {
	if err := d.sender.Send(ctx, msg); err != nil {
		d.metrics.NotificationFailed(string(msg.Kind))
		d.logger.Warn("notification delivery failed",
			zap.String("kind", string(msg.Kind)),
			zap.String("track_id", msg.TrackID),
			zap.Error(err))
		return err
	}
	d.metrics.NotificationSent(string(msg.Kind))
	d.logger.Debug("notification delivered",
		zap.String("kind", string(msg.Kind)),
		zap.String("track_id", msg.TrackID))
	return nil
}

// InlineOutbox delivers during Enqueue.
type InlineOutbox struct {
	deliverer *Deliverer
}

// NewInlineOutbox builds an outbox that sends synchronously.
func NewInlineOutbox(deliverer *Deliverer) *InlineOutbox {
	return &InlineOutbox{deliverer: deliverer}
}

// Enqueue sends msg immediately.
func (o *InlineOutbox) Enqueue(ctx context.Context, msg mail.Message) error {
	return o.deliverer.Deliver(ctx, msg)
}
