package domain

// Category groups tickets on the submission form.
type Category struct {
	ID         int64
	Name       string
	Priority   TicketPriority
	AutoAssign bool
}

// Well known category names used by the scoped listings.
const (
	CategoryRequest  = "Submit a Request"
	CategoryIncident = "Submit an incident"
)
