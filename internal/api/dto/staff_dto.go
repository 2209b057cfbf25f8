package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries an issued access token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffRequest creates or replaces a staff account. Password is optional on update.
type StaffRequest struct {
	Username string `json:"user" validate:"required,max=100"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
	IsAdmin  bool   `json:"isadmin"`
}

// StaffResponse hides the password hash.
type StaffResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"user"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isadmin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowedEmailRequest adds an address to the allow-list.
type AllowedEmailRequest struct {
	Email  string `json:"email" validate:"required,email,max=1000"`
	Locked bool   `json:"locked"`
}

// AllowedEmailLockRequest toggles the lock flag.
type AllowedEmailLockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

// AllowedEmailResponse payload.
type AllowedEmailResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryResponse payload.
type CategoryResponse struct {
	ID         int64                 `json:"id"`
	Name       string                `json:"name"`
	Priority   domain.TicketPriority `json:"priority"`
	AutoAssign bool                  `json:"autoassign"`
}

func NewStaffResponse(member *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:        member.ID,
		Username:  member.Username,
		Name:      member.Name,
		Email:     member.Email,
		IsAdmin:   member.IsAdmin,
		CreatedAt: member.CreatedAt,
		UpdatedAt: member.UpdatedAt,
	}
}

func NewAllowedEmailResponse(entry *domain.AllowedEmail) AllowedEmailResponse {
	return AllowedEmailResponse{ID: entry.ID, Email: entry.Email, Locked: entry.Locked, CreatedAt: entry.CreatedAt}
}

func NewCategoryResponse(category *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:         category.ID,
		Name:       category.Name,
		Priority:   category.Priority,
		AutoAssign: category.AutoAssign,
	}
}
