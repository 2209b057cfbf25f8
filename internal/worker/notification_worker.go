package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/outbox"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// queue is the consuming side of the Redis outbox.
type queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*mail.Message, error)
}

// OutboxWorker drains queued notifications. Each message gets one delivery attempt.
type OutboxWorker struct {
	queue        queue
	deliverer    *outbox.Deliverer
	logger       *zap.Logger
	pollTimeout  time.Duration
	errorBackoff time.Duration
}

// NewOutboxWorker builds a worker over the given queue.
func NewOutboxWorker(q queue, deliverer *outbox.Deliverer, logger *zap.Logger) *OutboxWorker {
	return &OutboxWorker{
		queue:        q,
		deliverer:    deliverer,
		logger:       logger,
		pollTimeout:  5 * time.Second,
		errorBackoff: time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	w.logger.Info("outbox worker started")
	defer w.logger.Info("outbox worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Warn("outbox dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.errorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}
		// Delivery failures are already logged; the message is dropped either way.
		_ = w.deliverer.Deliver(ctx, *msg)
	}
}
