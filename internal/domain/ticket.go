package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus int

const (
	TicketStatusNew          TicketStatus = 0
	TicketStatusWaitingReply TicketStatus = 1
	TicketStatusReplied      TicketStatus = 2
	TicketStatusResolved     TicketStatus = 3
	TicketStatusInProgress   TicketStatus = 4
	TicketStatusOnHold       TicketStatus = 5
)

var statusLabels = map[TicketStatus]string{
	TicketStatusNew:          "New",
	TicketStatusWaitingReply: "Waiting reply",
	TicketStatusReplied:      "Replied",
	TicketStatusResolved:     "Resolved",
	TicketStatusInProgress:   "In progress",
	TicketStatusOnHold:       "On hold",
}

// Valid reports whether s is a known status code.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the dashboard label for the status.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// TicketPriority enumerates urgency. Higher codes up to High shorten the due date.
type TicketPriority int

const (
	TicketPriorityLow    TicketPriority = 0
	TicketPriorityMedium TicketPriority = 1
	TicketPriorityHigh   TicketPriority = 2
	TicketPriorityUnset  TicketPriority = 3
)

var priorityLabels = map[TicketPriority]string{
	TicketPriorityLow:    "Low",
	TicketPriorityMedium: "Medium",
	TicketPriorityHigh:   "High",
	TicketPriorityUnset:  "Unset",
}

// Valid reports whether p is a known priority code.
func (p TicketPriority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

// Label returns the dashboard label for the priority.
func (p TicketPriority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return "Unknown"
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             int64
	TrackID        string
	Name           string
	Email          string
	CategoryID     int64
	Priority       TicketPriority
	Status         TicketStatus
	Subject        string
	Message        string
	OwnerID        int64
	EmpCategory    string
	EmpSubCategory string
	EmpIssue       string
	TimeWorked     string
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Attachments    []Attachment
}

// AttachmentRefs returns the "<id>#<real_name>" references for the ticket's attachments.
func (t *Ticket) AttachmentRefs() []string {
	return attachmentRefs(t.Attachments)
}
