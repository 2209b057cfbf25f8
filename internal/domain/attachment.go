package domain

import (
	"strconv"
	"time"
)

// AttachmentType flags where an attachment was uploaded from.
type AttachmentType int

const (
	AttachmentTypeSubmission AttachmentType = 0
	AttachmentTypeReply      AttachmentType = 1
)

// Attachment stores metadata for a file accepted with a ticket or reply.
type Attachment struct {
	ID        int64
	TicketID  int64
	ReplyID   *int64
	TrackID   string
	SavedName string
	RealName  string
	Size      int64
	Type      AttachmentType
	CreatedAt time.Time
}

// Ref renders the reference pair as "<id>#<real_name>".
func (a Attachment) Ref() string {
	return strconv.FormatInt(a.ID, 10) + "#" + a.RealName
}

func attachmentRefs(attachments []Attachment) []string {
	refs := make([]string, 0, len(attachments))
	for _, att := range attachments {
		refs = append(refs, att.Ref())
	}
	return refs
}
