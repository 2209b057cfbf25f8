package domain

import "time"

// StaffMember models a support agent or administrator.
type StaffMember struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
