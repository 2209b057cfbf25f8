package domain

import "time"

// AuthorRole tells who wrote a reply.
type AuthorRole string

const (
	AuthorRoleCustomer AuthorRole = "customer"
	AuthorRoleStaff    AuthorRole = "staff"
)

// Reply is one entry in a ticket's message thread.
type Reply struct {
	ID          int64
	TicketID    int64
	Name        string
	Message     string
	MessageHTML string
	AuthorRole  AuthorRole
	// StaffID is 0 for customer replies.
	StaffID     int64
	Read        bool
	Rating      *int
	CreatedAt   time.Time
	Attachments []Attachment
}

// AttachmentRefs returns the "<id>#<real_name>" references for the reply's attachments.
func (r *Reply) AttachmentRefs() []string {
	return attachmentRefs(r.Attachments)
}
