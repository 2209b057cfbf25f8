package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// StaffService manages staff accounts, the allow-list and the category catalog.
type StaffService struct {
	staff      repository.StaffRepository
	allowList  repository.AllowListRepository
	categories repository.CategoryRepository
	bcryptCost int
}

// StaffDependencies encapsulates repositories required for administration.
type StaffDependencies struct {
	StaffRepo     repository.StaffRepository
	AllowListRepo repository.AllowListRepository
	CategoryRepo  repository.CategoryRepository
	BcryptCost    int
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	return &StaffService{
		staff:      deps.StaffRepo,
		allowList:  deps.AllowListRepo,
		categories: deps.CategoryRepo,
		bcryptCost: deps.BcryptCost,
	}
}

// StaffInput carries staff account fields. Password is optional on update.
type StaffInput struct {
	Username string
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

func requireAdmin(actor *domain.StaffMember) error {
	if actor == nil || !actor.IsAdmin {
		return apperrors.NewForbiddenReason(apperrors.ReasonNotAdmin, "admin privileges required")
	}
	return nil
}

// ListStaff returns all staff accounts.
func (s *StaffService) ListStaff(ctx context.Context, actor *domain.StaffMember) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.List(ctx)
	return staff, apperrors.MapError(err)
}

// CreateStaff adds an account with a hashed password.
func (s *StaffService) CreateStaff(ctx context.Context, actor *domain.StaffMember, input StaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	member := &domain.StaffMember{
		Username:     strings.TrimSpace(input.Username),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, conflictOr(err, "username or email already in use")
	}
	return member, nil
}

// UpdateStaff replaces account fields, re-hashing the password only when one is given.
func (s *StaffService) UpdateStaff(ctx context.Context, actor *domain.StaffMember, id int64, input StaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	member, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	member.Username = strings.TrimSpace(input.Username)
	member.Name = strings.TrimSpace(input.Name)
	member.Email = strings.TrimSpace(input.Email)
	member.IsAdmin = input.IsAdmin
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		member.PasswordHash = hash
	}
	if err := s.staff.Update(ctx, member); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, conflictOr(err, "username or email already in use")
	}
	return member, nil
}

// DeleteStaff removes an account. Admins cannot delete themselves, and owners of
// existing tickets cannot be removed.
func (s *StaffService) DeleteStaff(ctx context.Context, actor *domain.StaffMember, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == id {
		return apperrors.NewForbidden("You cannot delete your own account")
	}
	if err := s.staff.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return apperrors.NewConflict("user still owns tickets", map[string]any{"user_id": id})
		}
		return notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	return nil
}

// ListAllowedEmails returns the allow-list.
func (s *StaffService) ListAllowedEmails(ctx context.Context, actor *domain.StaffMember) ([]domain.AllowedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	entries, err := s.allowList.List(ctx)
	return entries, apperrors.MapError(err)
}

// AddAllowedEmail permits a new address.
func (s *StaffService) AddAllowedEmail(ctx context.Context, actor *domain.StaffMember, email string, locked bool) (*domain.AllowedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	entry := &domain.AllowedEmail{Email: strings.TrimSpace(email), Locked: locked}
	if err := s.allowList.Create(ctx, entry); err != nil {
		return nil, conflictOr(err, "email already allowed")
	}
	return entry, nil
}

// SetAllowedEmailLock locks or unlocks an address.
func (s *StaffService) SetAllowedEmailLock(ctx context.Context, actor *domain.StaffMember, id int64, locked bool) (*domain.AllowedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.allowList.SetLocked(ctx, id, locked); err != nil {
		return nil, notFoundOr(err, "allowed email", map[string]any{"id": id})
	}
	entry, err := s.allowList.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "allowed email", map[string]any{"id": id})
	}
	return entry, nil
}

// ListCategories returns the submission form categories.
func (s *StaffService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	return categories, apperrors.MapError(err)
}

func conflictOr(err error, message string) error {
	if repository.IsUniqueViolation(err) {
		return apperrors.NewConflict(message, nil)
	}
	return apperrors.MapError(err)
}
