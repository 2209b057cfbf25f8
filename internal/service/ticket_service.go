package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	replies     repository.ReplyRepository
	attachments repository.AttachmentRepository
	categories  repository.CategoryRepository
	tx          repository.TxRunner
	gate        *AllowListGate
	trackIDs    *TrackIDGenerator
	validator   *AttachmentValidator
	selector    *AssignmentSelector
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	ReplyRepo      repository.ReplyRepository
	AttachmentRepo repository.AttachmentRepository
	CategoryRepo   repository.CategoryRepository
	StaffRepo      repository.StaffRepository
	AllowListRepo  repository.AllowListRepository
	TxRunner       repository.TxRunner
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger

	AttachmentMaxBytes int64
	TrackIDMaxAttempts int
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		replies:     deps.ReplyRepo,
		attachments: deps.AttachmentRepo,
		categories:  deps.CategoryRepo,
		tx:          deps.TxRunner,
		gate:        NewAllowListGate(deps.AllowListRepo),
		trackIDs:    NewTrackIDGenerator(deps.TicketRepo, deps.TrackIDMaxAttempts),
		validator:   NewAttachmentValidator(deps.AttachmentMaxBytes),
		selector:    NewAssignmentSelector(deps.StaffRepo),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         now,
	}
}

// CreateTicketInput describes a submission from the public form.
type CreateTicketInput struct {
	Name           string
	Email          string
	CategoryID     int64
	Priority       domain.TicketPriority
	Subject        string
	Message        string
	EmpCategory    string
	EmpSubCategory string
	EmpIssue       string
	Attachments    []AttachmentInput
}

// CreateTicketResult is the stored ticket with its assignment.
type CreateTicketResult struct {
	Ticket *domain.Ticket
	Reply  *domain.Reply
	Owner  *domain.StaffMember
}

// TicketDetails is a ticket with its reply thread.
type TicketDetails struct {
	Ticket  *domain.Ticket
	Replies []domain.Reply
}

// UpdateTicketInput carries a partial admin edit. Nil fields are left unchanged.
type UpdateTicketInput struct {
	CategoryID *int64
	Priority   *domain.TicketPriority
	Subject    *string
	Status     *domain.TicketStatus
	DueDate    *time.Time
	Message    *string
}

// UpdateTicketResult reports what an edit changed.
type UpdateTicketResult struct {
	Ticket *domain.Ticket
	// Reply is nil when the edit carried no message.
	Reply    *domain.Reply
	Resolved bool
}

// ListTicketsInput describes the admin list filters.
type ListTicketsInput struct {
	CategoryID *int64
	OwnerID    *int64
	Search     *string
	Page       int
	PerPage    int
}

// TicketPage is one page of tickets.
type TicketPage struct {
	Items   []domain.Ticket
	Total   int
	Page    int
	PerPage int
}

// CreateTicket runs the submission workflow. Gate, track id, attachment and assignment
// failures return before anything is written; the ticket, its first reply and its
// attachments commit together; notifications go out only after the commit.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreateTicketResult, error) {
	if err := s.gate.Check(ctx, input.Email); err != nil {
		return nil, err
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": int(input.Priority)})
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}

	trackID, err := s.trackIDs.Generate(ctx)
	if err != nil {
		return nil, err
	}
	attachments, err := s.validator.Validate(trackID, input.Attachments)
	if err != nil {
		return nil, err
	}
	owner, err := s.selector.Select(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TrackID:        trackID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		CategoryID:     category.ID,
		Priority:       input.Priority,
		Status:         domain.TicketStatusNew,
		Subject:        strings.TrimSpace(input.Subject),
		Message:        input.Message,
		OwnerID:        owner.ID,
		EmpCategory:    input.EmpCategory,
		EmpSubCategory: input.EmpSubCategory,
		EmpIssue:       input.EmpIssue,
		DueDate:        DueDate(input.Priority, s.now()),
	}
	reply := &domain.Reply{
		Name:        ticket.Name,
		Message:     ticket.Message,
		MessageHTML: MessageHTML(ticket.Message),
		AuthorRole:  domain.AuthorRoleCustomer,
	}

	err = s.tx.WithinTx(ctx, func(store repository.TicketStore) error {
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		reply.TicketID = ticket.ID
		if err := store.Replies.Create(ctx, reply); err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].TicketID = ticket.ID
			attachments[i].ReplyID = &reply.ID
			if err := store.Attachments.Create(ctx, &attachments[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("track id already in use", map[string]any{"track_id": trackID})
		}
		return nil, apperrors.MapError(err)
	}
	ticket.Attachments = attachments
	reply.Attachments = attachments

	s.metrics.TicketCreated()
	s.logger.Info("ticket created",
		zap.String("track_id", ticket.TrackID),
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("owner_id", owner.ID))

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket, events.TicketCreatedPayload{
		Ticket:   *ticket,
		Owner:    *owner,
		Category: category.Name,
	}))
	return &CreateTicketResult{Ticket: ticket, Reply: reply, Owner: owner}, nil
}

// GetTicket loads a ticket and its thread for the dashboard.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
	}
	return s.withThread(ctx, ticket)
}

// ViewTicket loads a ticket by the public track id and requester email pair.
func (s *TicketService) ViewTicket(ctx context.Context, trackID, email string) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByTrackAndEmail(ctx, strings.TrimSpace(trackID), strings.TrimSpace(email))
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"trackid": trackID})
	}
	return s.withThread(ctx, ticket)
}

// UpdateTicket applies an admin edit. A non-empty message becomes one staff reply
// authored by actor instead of changing the stored message. Setting the status to
// Resolved notifies the requester; that notification never affects the result.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.StaffMember, id int64, input UpdateTicketInput) (*UpdateTicketResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
	}
	if err := s.applyEdit(ctx, ticket, input); err != nil {
		return nil, err
	}

	var reply *domain.Reply
	if hasMessage(input.Message) {
		reply = &domain.Reply{
			TicketID:    ticket.ID,
			Name:        actor.Name,
			Message:     *input.Message,
			MessageHTML: MessageHTML(*input.Message),
			AuthorRole:  domain.AuthorRoleStaff,
			StaffID:     actor.ID,
		}
	}

	if err := s.saveEdit(ctx, ticket, hasTicketFields(input), reply); err != nil {
		return nil, err
	}

	result := &UpdateTicketResult{Ticket: ticket, Reply: reply}
	if input.Status != nil && *input.Status == domain.TicketStatusResolved {
		result.Resolved = true
		s.publishEvent(ctx, events.NewEvent(events.EventTicketResolved, ticket, events.TicketResolvedPayload{Ticket: *ticket}))
	}
	return result, nil
}

// UpdateByTrackAndEmail is the requester's self-service edit. The pair is the only
// credential. A non-empty message becomes one customer reply.
func (s *TicketService) UpdateByTrackAndEmail(ctx context.Context, trackID, email string, message *string) (*UpdateTicketResult, error) {
	ticket, err := s.tickets.GetByTrackAndEmail(ctx, strings.TrimSpace(trackID), strings.TrimSpace(email))
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"trackid": trackID})
	}

	result := &UpdateTicketResult{Ticket: ticket}
	if !hasMessage(message) {
		return result, nil
	}
	reply := &domain.Reply{
		TicketID:    ticket.ID,
		Name:        ticket.Name,
		Message:     *message,
		MessageHTML: MessageHTML(*message),
		AuthorRole:  domain.AuthorRoleCustomer,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, apperrors.MapError(err)
	}
	result.Reply = reply
	return result, nil
}

// ListTickets returns one page of tickets matching the filters. An empty page is not an error.
func (s *TicketService) ListTickets(ctx context.Context, input ListTicketsInput) (*TicketPage, error) {
	page, perPage := normalizePage(input.Page, input.PerPage)
	items, total, err := s.tickets.List(ctx, repository.TicketFilter{
		CategoryID: input.CategoryID,
		OwnerID:    input.OwnerID,
		SearchTerm: input.Search,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// ListByCategoryName resolves the category by exact name, then lists its tickets.
func (s *TicketService) ListByCategoryName(ctx context.Context, name string, input ListTicketsInput) (*TicketPage, error) {
	category, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, notFoundOr(err, "category", map[string]any{"name": name})
	}
	input.CategoryID = &category.ID
	return s.ListTickets(ctx, input)
}

// DeleteTicket removes a ticket with its replies and attachments. Only admins may delete.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.StaffMember, id int64) error {
	if actor == nil || !actor.IsAdmin {
		return apperrors.NewForbiddenReason(apperrors.ReasonNotAdmin, "You do not have permission to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
	}
	s.logger.Info("ticket deleted", zap.Int64("ticket_id", id), zap.Int64("staff_id", actor.ID))
	return nil
}

func (s *TicketService) applyEdit(ctx context.Context, ticket *domain.Ticket, input UpdateTicketInput) error {
	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("unknown category", map[string]any{"category": *input.CategoryID})
			}
			return apperrors.MapError(err)
		}
		ticket.CategoryID = *input.CategoryID
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": int(*input.Priority)})
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": int(*input.Status)})
		}
		ticket.Status = *input.Status
	}
	if input.Subject != nil {
		ticket.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.DueDate != nil {
		due := *input.DueDate
		ticket.DueDate = &due
	}
	return nil
}

func (s *TicketService) saveEdit(ctx context.Context, ticket *domain.Ticket, updateTicket bool, reply *domain.Reply) error {
	if !updateTicket && reply == nil {
		return nil
	}
	err := s.tx.WithinTx(ctx, func(store repository.TicketStore) error {
		if updateTicket {
			if err := store.Tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}
		if reply != nil {
			return store.Replies.Create(ctx, reply)
		}
		return nil
	})
	return apperrors.MapError(err)
}

func (s *TicketService) withThread(ctx context.Context, ticket *domain.Ticket) (*TicketDetails, error) {
	replies, err := s.replies.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket.Attachments = ticket.Attachments[:0]
	for _, att := range attachments {
		if att.Type == domain.AttachmentTypeSubmission {
			ticket.Attachments = append(ticket.Attachments, att)
		}
	}
	for i := range replies {
		for _, att := range attachments {
			if att.ReplyID != nil && *att.ReplyID == replies[i].ID {
				replies[i].Attachments = append(replies[i].Attachments, att)
			}
		}
	}
	return &TicketDetails{Ticket: ticket, Replies: replies}, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("event", string(event.Type)),
			zap.String("track_id", event.TrackID),
			zap.Error(err))
	}
}

// MessageHTML escapes the message and turns line breaks into <br /> tags.
func MessageHTML(message string) string {
	return nl2br.Replace(html.EscapeString(message))
}

var nl2br = strings.NewReplacer("\r\n", "<br />\r\n", "\n", "<br />\n", "\r", "<br />\r")

func hasMessage(message *string) bool {
	return message != nil && strings.TrimSpace(*message) != ""
}

func hasTicketFields(input UpdateTicketInput) bool {
	return input.CategoryID != nil || input.Priority != nil || input.Subject != nil ||
		input.Status != nil || input.DueDate != nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
