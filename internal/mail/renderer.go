package mail

import (
	"bytes"
	"fmt"
	"html"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Renderer turns ticket events into mail bodies. Customer text is treated as
// markdown and sanitized before it reaches an HTML body.
type Renderer struct {
	siteTitle string
	baseURL   string
	md        goldmark.Markdown
	policy    *bluemonday.Policy
}

// NewRenderer builds a renderer whose links point at baseURL.
func NewRenderer(siteTitle, baseURL string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)
	return &Renderer{
		siteTitle: siteTitle,
		baseURL:   baseURL,
		md:        md,
		policy:    bluemonday.UGCPolicy(),
	}
}

// RequesterLink is the self-service page for the ticket.
func (r *Renderer) RequesterLink(ticket *domain.Ticket) string {
	query := url.Values{}
	query.Set("trackid", ticket.TrackID)
	query.Set("email", ticket.Email)
	return r.baseURL + "/ticket-details?" + query.Encode()
}

// OwnerLink is the dashboard page for the ticket.
func (r *Renderer) OwnerLink(ticket *domain.Ticket) string {
	return fmt.Sprintf("%s/admin/tickets/%d", r.baseURL, ticket.ID)
}

// StatusLink is the public status page for the ticket.
func (r *Renderer) StatusLink(ticket *domain.Ticket) string {
	return r.baseURL + "/ticket-status/" + url.PathEscape(ticket.TrackID)
}

// MessageHTML converts markdown to sanitized HTML.
func (r *Renderer) MessageHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// TicketConfirmation is sent to the requester once the ticket is stored.
func (r *Renderer) TicketConfirmation(ticket *domain.Ticket) Message {
	link := r.RequesterLink(ticket)
	subject := fmt.Sprintf("[%s] Ticket received: %s", ticket.TrackID, r.siteTitle)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>We received your ticket. Your tracking ID is <strong>%s</strong>.</p>
			<p><a href="%s">View your ticket</a></p>
			<p>%s</p>
		</body>
		</html>
	`, html.EscapeString(ticket.Name), html.EscapeString(ticket.TrackID), html.EscapeString(link), html.EscapeString(r.siteTitle))

	plainBody := fmt.Sprintf(`
Hello %s,

We received your ticket. Your tracking ID is %s.

View your ticket:
%s

%s
	`, ticket.Name, ticket.TrackID, link, r.siteTitle)

	return Message{Kind: KindTicketConfirmation, TrackID: ticket.TrackID, To: ticket.Email, Subject: subject, PlainBody: plainBody, HTMLBody: htmlBody}
}

// OwnerAssignment is sent to the staff member the ticket was assigned to.
func (r *Renderer) OwnerAssignment(ticket *domain.Ticket, owner *domain.StaffMember, category string) (Message, error) {
	link := r.OwnerLink(ticket)
	subject := fmt.Sprintf("[%s] New ticket assigned to you", ticket.TrackID)

	body, err := r.MessageHTML(ticket.Message)
	if err != nil {
		return Message{}, err
	}

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>Ticket <strong>%s</strong> from %s (%s) was assigned to you as Assigned User.</p>
			<div>%s</div>
			<p><a href="%s">Open the ticket</a></p>
		</body>
		</html>
	`, html.EscapeString(owner.Name), html.EscapeString(ticket.TrackID), html.EscapeString(ticket.Name),
		html.EscapeString(category), body, html.EscapeString(link))

	plainBody := fmt.Sprintf(`
Hello %s,

Ticket %s from %s (%s) was assigned to you as Assigned User.

%s

Open the ticket:
%s
	`, owner.Name, ticket.TrackID, ticket.Name, category, ticket.Message, link)

	return Message{Kind: KindOwnerAssignment, TrackID: ticket.TrackID, To: owner.Email, Subject: subject, PlainBody: plainBody, HTMLBody: htmlBody}, nil
}

// TicketResolved is sent to the requester when staff mark the ticket resolved.
func (r *Renderer) TicketResolved(ticket *domain.Ticket) Message {
	link := r.StatusLink(ticket)
	subject := fmt.Sprintf("[%s] Your ticket has been resolved", ticket.TrackID)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>Your ticket <strong>%s</strong> has been resolved.</p>
			<p><a href="%s">Check the ticket status</a></p>
			<p>%s</p>
		</body>
		</html>
	`, html.EscapeString(ticket.Name), html.EscapeString(ticket.TrackID), html.EscapeString(link), html.EscapeString(r.siteTitle))

	plainBody := fmt.Sprintf(`
Hello %s,

Your ticket %s has been resolved.

Check the ticket status:
%s

%s
	`, ticket.Name, ticket.TrackID, link, r.siteTitle)

	return Message{Kind: KindTicketResolved, TrackID: ticket.TrackID, To: ticket.Email, Subject: subject, PlainBody: plainBody, HTMLBody: htmlBody}
}
