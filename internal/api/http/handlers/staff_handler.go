package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StaffHandler exposes login and the admin-only account, allow-list and catalog endpoints.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService}
}

// Login handles POST /admin/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	staff, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(staff),
			"auth":  dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
		},
	})
}

// ListStaff handles GET /admin/users.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	list, err := h.staffService.ListStaff(c.UserContext(), actor)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, dto.NewStaffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": resp})
}

// CreateStaff handles POST /admin/users.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.CreateStaff(c.UserContext(), actor, staffInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "data": dto.NewStaffResponse(member)})
}

// UpdateStaff handles PUT /admin/users/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.StaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.UpdateStaff(c.UserContext(), actor, id, staffInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewStaffResponse(member)})
}

// DeleteStaff handles DELETE /admin/users/:id.
func (h *StaffHandler) DeleteStaff(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.staffService.DeleteStaff(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted successfully"})
}

// ListAllowedEmails handles GET /admin/allowed-emails.
func (h *StaffHandler) ListAllowedEmails(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.staffService.ListAllowedEmails(c.UserContext(), actor)
	if err != nil {
		return err
	}
	resp := make([]dto.AllowedEmailResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, dto.NewAllowedEmailResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": resp})
}

// AddAllowedEmail handles POST /admin/allowed-emails.
func (h *StaffHandler) AddAllowedEmail(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AllowedEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.staffService.AddAllowedEmail(c.UserContext(), actor, req.Email, req.Locked)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "data": dto.NewAllowedEmailResponse(entry)})
}

// SetAllowedEmailLock handles PUT /admin/allowed-emails/:id.
func (h *StaffHandler) SetAllowedEmailLock(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AllowedEmailLockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.staffService.SetAllowedEmailLock(c.UserContext(), actor, id, *req.Locked)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewAllowedEmailResponse(entry)})
}

// ListCategories handles GET /admin/categories.
func (h *StaffHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.staffService.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categoryResponses(categories)})
}

func staffInput(req dto.StaffRequest) service.StaffInput {
	return service.StaffInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	}
}
