package service

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DueDate derives the deadline from the priority code at creation time.
func DueDate(priority domain.TicketPriority, createdAt time.Time) *time.Time {
	var offset time.Duration
	switch priority {
	case domain.TicketPriorityLow:
		offset = 24 * time.Hour
	case domain.TicketPriorityMedium:
		offset = 8 * time.Hour
	case domain.TicketPriorityHigh:
		offset = 4 * time.Hour
	default:
		return nil
	}
	due := createdAt.Add(offset)
	return &due
}
