package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler serves the public, unauthenticated ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	catalog *service.StaffService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, catalog *service.StaffService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, catalog: catalog}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		return err
	}

	attachments := make([]service.AttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.AttachmentInput{RealName: att.RealName, Size: att.Size})
	}
	result, err := h.tickets.CreateTicket(c.UserContext(), service.CreateTicketInput{
		Name:           req.Name,
		Email:          req.Email,
		CategoryID:     req.Category,
		Priority:       priority,
		Subject:        req.Subject,
		Message:        req.Message,
		EmpCategory:    req.EmpCat,
		EmpSubCategory: req.EmpSubCat,
		EmpIssue:       req.EmpIssue,
		Attachments:    attachments,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"message":       "Ticket created successfully and assigned to a user!",
		"data":          dto.NewTicketResponse(result.Ticket),
		"assigned_user": result.Owner.Name,
		"attachments":   result.Ticket.AttachmentRefs(),
	})
}

// ViewTicket POST /view-ticket.
func (h *TicketsHandler) ViewTicket(c *fiber.Ctx) error {
	var req dto.ViewTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	details, err := h.tickets.ViewTicket(c.UserContext(), req.TrackID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewTicketResponse(details.Ticket),
		"replies": dto.NewReplyResponses(details.Replies),
	})
}

// UpdateByTrackAndEmail PUT /tickets/:trackid/:email.
func (h *TicketsHandler) UpdateByTrackAndEmail(c *fiber.Ctx) error {
	var req dto.SelfUpdateRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return apperrors.NewValidationError("invalid email", nil)
	}

	result, err := h.tickets.UpdateByTrackAndEmail(c.UserContext(), c.Params("trackid"), email, req.Message)
	if err != nil {
		return err
	}
	resp := fiber.Map{
		"success": true,
		"message": "Ticket updated successfully.",
		"ticket":  dto.NewTicketResponse(result.Ticket),
	}
	if result.Reply != nil {
		resp["reply"] = dto.NewReplyResponse(result.Reply)
	}
	return c.JSON(resp)
}

// ListCategories GET /categories.
func (h *TicketsHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categoryResponses(categories)})
}

// parsePriority accepts the code as a JSON number or numeric string. Absent means Unset.
func parsePriority(raw json.Number) (domain.TicketPriority, error) {
	code, err := parseCode(raw, "priority", validPriority, "must be one of 0, 1, 2, 3")
	if err != nil || code == nil {
		return domain.TicketPriorityUnset, err
	}
	return domain.TicketPriority(*code), nil
}

func validPriority(n int) bool { return domain.TicketPriority(n).Valid() }

func validStatus(n int) bool { return domain.TicketStatus(n).Valid() }

func categoryResponses(categories []domain.Category) []dto.CategoryResponse {
	resp := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, dto.NewCategoryResponse(&categories[i]))
	}
	return resp
}
