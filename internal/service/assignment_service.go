package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentSelector picks the owner of a new ticket uniformly at random from the
// non-admin staff. It keeps no history and does not balance load.
type AssignmentSelector struct {
	staff repository.StaffRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAssignmentSelector creates the selector.
func NewAssignmentSelector(staff repository.StaffRepository) *AssignmentSelector {
	return &AssignmentSelector{staff: staff, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Select returns the chosen owner, or Unavailable when the pool is empty.
func (s *AssignmentSelector) Select(ctx context.Context) (*domain.StaffMember, error) {
	pool, err := s.staff.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(pool) == 0 {
		return nil, apperrors.NewUnavailable("No users available to assign the ticket.")
	}

	s.mu.Lock()
	idx := s.rnd.Intn(len(pool))
	s.mu.Unlock()

	owner := pool[idx]
	return &owner, nil
}
