package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest is the public submission form.
type CreateTicketRequest struct {
	Name        string              `json:"name" validate:"required,max=255"`
	Email       string              `json:"email" validate:"required,email,max=1000"`
	Category    int64               `json:"category" validate:"required,gt=0"`
	Priority    json.Number         `json:"priority"`
	Subject     string              `json:"subject" validate:"max=250"`
	Message     string              `json:"message" validate:"required,max=2000"`
	EmpCat      string              `json:"emp_cat" validate:"max=250"`
	EmpSubCat   string              `json:"emp_sub_cat" validate:"max=250"`
	EmpIssue    string              `json:"emp_issue" validate:"max=250"`
	Attachments []AttachmentRequest `json:"attachments" validate:"dive"`
}

// AttachmentRequest describes one uploaded file.
type AttachmentRequest struct {
	RealName string `json:"real_name" validate:"required,max=255"`
	Size     int64  `json:"size" validate:"gte=0"`
}

// ViewTicketRequest is the track id and email pair.
type ViewTicketRequest struct {
	TrackID string `json:"trackid" validate:"required,max=13"`
	Email   string `json:"email" validate:"required,email,max=1000"`
}

// SelfUpdateRequest is the requester's follow-up.
type SelfUpdateRequest struct {
	Message *string `json:"message" validate:"omitempty,max=2000"`
}

// UpdateTicketRequest is a partial admin edit. Codes arrive as numbers or
// numeric strings; due_date as RFC3339 or YYYY-MM-DD.
type UpdateTicketRequest struct {
	Category json.Number `json:"category"`
	Priority json.Number `json:"priority"`
	Status   json.Number `json:"status"`
	Subject  *string     `json:"subject" validate:"omitempty,max=250"`
	DueDate  *string     `json:"due_date"`
	Message  *string     `json:"message" validate:"omitempty,max=2000"`
}

// TicketResponse is the ticket read shape.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	TrackID       string                `json:"trackid"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Category      int64                 `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	PriorityLabel string                `json:"priority_label"`
	Status        domain.TicketStatus   `json:"status"`
	StatusLabel   string                `json:"status_label"`
	Subject       string                `json:"subject"`
	Message       string                `json:"message"`
	Owner         int64                 `json:"owner"`
	EmpCat        string                `json:"emp_cat"`
	EmpSubCat     string                `json:"emp_sub_cat"`
	EmpIssue      string                `json:"emp_issue"`
	TimeWorked    string                `json:"time_worked"`
	DueDate       *time.Time            `json:"due_date"`
	Attachments   []string              `json:"attachments"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ReplyResponse is one thread entry.
type ReplyResponse struct {
	ID          int64             `json:"id"`
	TicketID    int64             `json:"replyto"`
	Name        string            `json:"name"`
	Message     string            `json:"message"`
	MessageHTML string            `json:"message_html"`
	StaffID     int64             `json:"staffid"`
	AuthorRole  domain.AuthorRole `json:"author_role"`
	Read        bool              `json:"read"`
	Attachments []string          `json:"attachments"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PageMeta describes a listing page.
type PageMeta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		TrackID:       ticket.TrackID,
		Name:          ticket.Name,
		Email:         ticket.Email,
		Category:      ticket.CategoryID,
		Priority:      ticket.Priority,
		PriorityLabel: ticket.Priority.Label(),
		Status:        ticket.Status,
		StatusLabel:   ticket.Status.Label(),
		Subject:       ticket.Subject,
		Message:       ticket.Message,
		Owner:         ticket.OwnerID,
		EmpCat:        ticket.EmpCategory,
		EmpSubCat:     ticket.EmpSubCategory,
		EmpIssue:      ticket.EmpIssue,
		TimeWorked:    ticket.TimeWorked,
		DueDate:       ticket.DueDate,
		Attachments:   ticket.AttachmentRefs(),
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a page of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewReplyResponse maps a reply.
func NewReplyResponse(reply *domain.Reply) ReplyResponse {
	return ReplyResponse{
		ID:          reply.ID,
		TicketID:    reply.TicketID,
		Name:        reply.Name,
		Message:     reply.Message,
		MessageHTML: reply.MessageHTML,
		StaffID:     reply.StaffID,
		AuthorRole:  reply.AuthorRole,
		Read:        reply.Read,
		Attachments: reply.AttachmentRefs(),
		CreatedAt:   reply.CreatedAt,
	}
}

// NewReplyResponses maps a thread.
func NewReplyResponses(replies []domain.Reply) []ReplyResponse {
	items := make([]ReplyResponse, 0, len(replies))
	for i := range replies {
		items = append(items, NewReplyResponse(&replies[i]))
	}
	return items
}
