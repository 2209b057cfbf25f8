package domain

import "time"

// AllowedEmail is an address permitted to open tickets unless locked.
type AllowedEmail struct {
	ID        int64
	Email     string
	Locked    bool
	CreatedAt time.Time
}
