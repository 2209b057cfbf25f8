package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AllowListGate decides whether an address may open tickets.
type AllowListGate struct {
	allowList repository.AllowListRepository
}

// NewAllowListGate constructs the gate.
func NewAllowListGate(allowList repository.AllowListRepository) *AllowListGate {
	return &AllowListGate{allowList: allowList}
}

// Check matches the trimmed address case-insensitively. It is read only.
func (g *AllowListGate) Check(ctx context.Context, email string) error {
	entry, err := g.allowList.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewForbiddenReason(apperrors.ReasonNotAllowed,
				"The email is not in the allowed list. Ticket creation denied.")
		}
		return apperrors.MapError(err)
	}
	if entry.Locked {
		return apperrors.NewForbiddenReason(apperrors.ReasonLocked, "The email is locked. Ticket creation denied.")
	}
	return nil
}
