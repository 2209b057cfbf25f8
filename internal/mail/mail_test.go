package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{ID: 12, TrackID: "ABC-DEF-123", Name: "Ann <admin>", Email: "ann+x@allowed.test", Message: "**printer** is down\n<script>alert(1)</script>"}
}

func TestLinks(t *testing.T) {
	r := NewRenderer("Help Desk", "https://help.example.test")
	ticket := sampleTicket()

	assert.Equal(t, "https://help.example.test/ticket-details?email=ann%2Bx%40allowed.test&trackid=ABC-DEF-123", r.RequesterLink(ticket))
	assert.Equal(t, "https://help.example.test/admin/tickets/12", r.OwnerLink(ticket))
	assert.Equal(t, "https://help.example.test/ticket-status/ABC-DEF-123", r.StatusLink(ticket))
}

func TestOwnerAssignmentSanitizesMessage(t *testing.T) {
	r := NewRenderer("Help Desk", "https://help.example.test")
	owner := &domain.StaffMember{Name: "Bob", Email: "bob@example.test"}

	msg, err := r.OwnerAssignment(sampleTicket(), owner, domain.CategoryIncident)
	require.NoError(t, err)

	assert.Equal(t, KindOwnerAssignment, msg.Kind)
	assert.Equal(t, "bob@example.test", msg.To)
	assert.Contains(t, msg.HTMLBody, "<strong>printer</strong>")
	assert.NotContains(t, msg.HTMLBody, "<script>")
	assert.Contains(t, msg.HTMLBody, "Ann &lt;admin&gt;")
	assert.Contains(t, msg.PlainBody, "/admin/tickets/12")
}

func TestConfirmationAndResolvedRecipients(t *testing.T) {
	r := NewRenderer("Help Desk", "https://help.example.test")
	ticket := sampleTicket()

	confirmation := r.TicketConfirmation(ticket)
	assert.Equal(t, ticket.Email, confirmation.To)
	assert.Contains(t, confirmation.Subject, ticket.TrackID)
	assert.Contains(t, confirmation.PlainBody, "/ticket-details?")

	resolved := r.TicketResolved(ticket)
	assert.Equal(t, KindTicketResolved, resolved.Kind)
	assert.Contains(t, resolved.PlainBody, "/ticket-status/ABC-DEF-123")
}

func TestSMTPSenderBuildsMultipart(t *testing.T) {
	d := &recordingDialer{}
	s := &SMTPSender{from: "noreply@example.test", fromName: "Help Desk", dialer: d}

	err := s.Send(context.Background(), Message{Kind: KindTicketResolved, To: "a@allowed.test", Subject: "Resolved", PlainBody: "done", HTMLBody: "<p>done</p>"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	assert.Equal(t, []string{"a@allowed.test"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Resolved"}, d.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
}

func TestSMTPSenderWrapsFailure(t *testing.T) {
	boom := errors.New("connection refused")
	s := &SMTPSender{dialer: &recordingDialer{err: boom}}

	err := s.Send(context.Background(), Message{Kind: KindTicketConfirmation, To: "a@allowed.test"})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{}), context.Canceled)
}
