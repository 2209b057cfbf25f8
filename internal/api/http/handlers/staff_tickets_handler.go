package handlers

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// StaffTicketsHandler serves the dashboard ticket endpoints.
type StaffTicketsHandler struct {
	tickets *service.TicketService
	export  *service.ExportService
	logger  *zap.Logger
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService, export *service.ExportService, logger *zap.Logger) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService, export: export, logger: logger}
}

// ListTickets GET /admin/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	input, err := parseListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListTickets(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page))
}

// ListByCategoryName GET /admin/categories/:name/tickets.
func (h *StaffTicketsHandler) ListByCategoryName(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return apperrors.NewValidationError("invalid category name", nil)
	}
	return h.listCategory(c, name)
}

// CategoryListing serves a fixed category, such as /admin/request-tickets.
func (h *StaffTicketsHandler) CategoryListing(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.listCategory(c, name)
	}
}

func (h *StaffTicketsHandler) listCategory(c *fiber.Ctx, name string) error {
	input, err := parseListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListByCategoryName(c.UserContext(), name, input)
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page))
}

// GetTicket GET /admin/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	details, err := h.tickets.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"ticket":  dto.NewTicketResponse(details.Ticket),
		"replies": dto.NewReplyResponses(details.Replies),
	})
}

// UpdateTicket PUT /admin/tickets/:id.
func (h *StaffTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input, err := updateInput(&req)
	if err != nil {
		return err
	}

	result, err := h.tickets.UpdateTicket(c.UserContext(), staff, id, input)
	if err != nil {
		return err
	}
	message := "Ticket updated successfully."
	if result.Resolved {
		message = "Ticket resolved and notification email sent."
	}
	resp := fiber.Map{
		"success": true,
		"message": message,
		"ticket":  dto.NewTicketResponse(result.Ticket),
	}
	if result.Reply != nil {
		resp["reply"] = dto.NewReplyResponse(result.Reply)
	}
	return c.JSON(resp)
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *StaffTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), staff, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Ticket deleted successfully"})
}

// ExportTickets GET /admin/export-tickets streams the CSV as a download.
func (h *StaffTicketsHandler) ExportTickets(c *fiber.Ctx) error {
	file, err := os.CreateTemp("", "tickets-*.csv")
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	rows, err := h.export.WriteCSV(c.UserContext(), file)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.logger.Info("tickets exported", zap.Int("rows", rows))

	fileName := fmt.Sprintf("tickets_export_%s.csv", time.Now().UTC().Format("2006-01-02_15-04-05"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.SendFile(file.Name())
}

func updateInput(req *dto.UpdateTicketRequest) (service.UpdateTicketInput, error) {
	input := service.UpdateTicketInput{Subject: req.Subject, Message: req.Message}

	category, err := parseCode(req.Category, "category", func(n int) bool { return n > 0 }, "must be a positive number")
	if err != nil {
		return input, err
	}
	if category != nil {
		id := int64(*category)
		input.CategoryID = &id
	}
	priority, err := parseCode(req.Priority, "priority", validPriority, "must be one of 0, 1, 2, 3")
	if err != nil {
		return input, err
	}
	if priority != nil {
		p := domain.TicketPriority(*priority)
		input.Priority = &p
	}
	status, err := parseCode(req.Status, "status", validStatus, "must be one of 0, 1, 2, 3, 4, 5")
	if err != nil {
		return input, err
	}
	if status != nil {
		st := domain.TicketStatus(*status)
		input.Status = &st
	}
	if input.DueDate, err = parseDueDate(req.DueDate); err != nil {
		return input, err
	}
	return input, nil
}

func parseListQuery(c *fiber.Ctx) (service.ListTicketsInput, error) {
	var input service.ListTicketsInput
	category, err := parseInt64Query(c, "category")
	if err != nil {
		return input, err
	}
	owner, err := parseInt64Query(c, "owner")
	if err != nil {
		return input, err
	}
	input.CategoryID = category
	input.OwnerID = owner
	if search := c.Query("search"); search != "" {
		input.Search = &search
	}
	input.Page = parseInt(c.Query("page"), 1)
	input.PerPage = parseInt(c.Query("perPage"), 0)
	return input, nil
}

func pageResponse(page *service.TicketPage) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    dto.NewTicketResponses(page.Items),
		"meta":    dto.PageMeta{Total: page.Total, Page: page.Page, PerPage: page.PerPage},
	}
}
