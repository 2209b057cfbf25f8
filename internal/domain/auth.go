package domain

import "time"

// Token represents issued access token metadata.
type Token struct {
	Value     string
	StaffID   int64
	IsAdmin   bool
	ExpiresAt time.Time
}
