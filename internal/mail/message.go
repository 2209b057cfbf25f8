package mail

// Kind labels a notification for logs and metrics.
type Kind string

const (
	KindTicketConfirmation Kind = "ticket_confirmation"
	KindOwnerAssignment    Kind = "owner_assignment"
	KindTicketResolved     Kind = "ticket_resolved"
)

// Message is a fully rendered email, ready to queue or send.
type Message struct {
	Kind      Kind   `json:"kind"`
	TrackID   string `json:"track_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	PlainBody string `json:"plain_body"`
	HTMLBody  string `json:"html_body"`
}
