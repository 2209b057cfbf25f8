package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "New", TicketStatusNew.Label())
	assert.Equal(t, "Resolved", TicketStatusResolved.Label())
	assert.Equal(t, "On hold", TicketStatusOnHold.Label())
	assert.Equal(t, "Unknown", TicketStatus(9).Label())
	assert.False(t, TicketStatus(-1).Valid())
}

func TestPriorityLabels(t *testing.T) {
	assert.Equal(t, "Low", TicketPriorityLow.Label())
	assert.Equal(t, "High", TicketPriorityHigh.Label())
	assert.True(t, TicketPriorityUnset.Valid())
	assert.False(t, TicketPriority(4).Valid())
}

func TestAttachmentRefs(t *testing.T) {
	ticket := &Ticket{Attachments: []Attachment{
		{ID: 7, RealName: "screen.png"},
		{ID: 8, RealName: "log.txt"},
	}}

	assert.Equal(t, []string{"7#screen.png", "8#log.txt"}, ticket.AttachmentRefs())

	reply := &Reply{}
	assert.Empty(t, reply.AttachmentRefs())
	assert.NotNil(t, reply.AttachmentRefs())
}
