package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/repotest"
)

type recordingOutbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (o *recordingOutbox) Enqueue(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return o.err
}

func (o *recordingOutbox) kinds() []mail.Kind {
	o.mu.Lock()
	defer o.mu.Unlock()
	kinds := make([]mail.Kind, 0, len(o.msgs))
	for _, msg := range o.msgs {
		kinds = append(kinds, msg.Kind)
	}
	return kinds
}

type testEnv struct {
	db      *repotest.DB
	tickets *TicketService
	outbox  *recordingOutbox
	now     time.Time
	agent   domain.StaffMember
	admin   domain.StaffMember
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := repotest.New()
	db.Now = func() time.Time { return fixedNow }

	box := &recordingOutbox{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, mail.NewRenderer("Help Desk", "https://help.example.test"), box, zap.NewNop()).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketRepo:     db.Tickets(),
		ReplyRepo:      db.Replies(),
		AttachmentRepo: db.Attachments(),
		CategoryRepo:   db.Categories(),
		StaffRepo:      db.Staff(),
		AllowListRepo:  db.AllowList(),
		TxRunner:       db,
		Dispatcher:     dispatcher,
		Metrics:        observability.NewMetrics(),
		Logger:         zap.NewNop(),
		Now:            func() time.Time { return fixedNow },
	})

	return &testEnv{
		db:      db,
		tickets: svc,
		outbox:  box,
		now:     fixedNow,
		agent:   db.AddStaff(domain.StaffMember{Username: "agent", Name: "Agent", Email: "agent@example.test"}),
		admin:   db.AddStaff(domain.StaffMember{Username: "admin", Name: "Admin", Email: "admin@example.test", IsAdmin: true}),
	}
}

func (e *testEnv) create(t *testing.T, input CreateTicketInput) *CreateTicketResult {
	t.Helper()
	result, err := e.tickets.CreateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return result
}

func validInput() CreateTicketInput {
	return CreateTicketInput{Name: "A", Email: "a@allowed.test", CategoryID: 1, Priority: domain.TicketPriorityLow, Message: "help"}
}

func strPtr(s string) *string { return &s }
