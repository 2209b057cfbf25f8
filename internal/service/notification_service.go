package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/outbox"
)

// NotificationService turns ticket events into mails and hands them to the outbox.
// Every failure is logged and returned to the dispatcher, never to the request.
type NotificationService struct {
	dispatcher events.Dispatcher
	renderer   *mail.Renderer
	outbox     outbox.Outbox
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, renderer *mail.Renderer, box outbox.Outbox, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		renderer:   renderer,
		outbox:     box,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
}

// handleTicketCreated queues the requester confirmation and the owner assignment.
// One failing does not stop the other.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	confirmErr := n.enqueue(ctx, n.renderer.TicketConfirmation(&payload.Ticket))

	assignment, err := n.renderer.OwnerAssignment(&payload.Ticket, &payload.Owner, payload.Category)
	if err != nil {
		n.logger.Warn("render owner assignment failed", zap.String("track_id", event.TrackID), zap.Error(err))
		return errors.Join(confirmErr, err)
	}
	return errors.Join(confirmErr, n.enqueue(ctx, assignment))
}

func (n *NotificationService) handleTicketResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.enqueue(ctx, n.renderer.TicketResolved(&payload.Ticket))
}

func (n *NotificationService) enqueue(ctx context.Context, msg mail.Message) error {
	if err := n.outbox.Enqueue(ctx, msg); err != nil {
		n.logger.Warn("notification not queued",
			zap.String("kind", string(msg.Kind)),
			zap.String("track_id", msg.TrackID),
			zap.Error(err))
		return err
	}
	return nil
}
