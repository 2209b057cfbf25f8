package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var trackIDPattern = regexp.MustCompile(`^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$`)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	domainErr := apperrors.ToDomainError(err)
	reason, _ := domainErr.Details["reason"].(string)
	return reason
}

func TestCreateTicketEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)

	result := env.create(t, validInput())

	ticket := result.Ticket
	assert.Regexp(t, trackIDPattern, ticket.TrackID)
	assert.Equal(t, env.agent.ID, ticket.OwnerID)
	assert.Equal(t, env.agent.ID, result.Owner.ID)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, env.now.Add(24*time.Hour), *ticket.DueDate)

	replies, err := env.db.Replies().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, int64(0), replies[0].StaffID)
	assert.Equal(t, domain.AuthorRoleCustomer, replies[0].AuthorRole)
	assert.False(t, replies[0].Read)
	assert.Equal(t, "help", replies[0].Message)

	assert.Equal(t, []mail.Kind{mail.KindTicketConfirmation, mail.KindOwnerAssignment}, env.outbox.kinds())
	assert.Equal(t, "a@allowed.test", env.outbox.msgs[0].To)
	assert.Equal(t, "agent@example.test", env.outbox.msgs[1].To)
}

func TestCreateTicketAllowListIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("A@Allowed.Test", false)

	input := validInput()
	input.Email = "  a@allowed.test "
	result := env.create(t, input)
	assert.Equal(t, "a@allowed.test", result.Ticket.Email)
}

func TestCreateTicketRejectedByAllowList(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(env *testEnv)
		reason string
	}{
		{name: "absent", setup: func(*testEnv) {}, reason: apperrors.ReasonNotAllowed},
		{name: "locked", setup: func(env *testEnv) { env.db.AllowEmail("a@allowed.test", true) }, reason: apperrors.ReasonLocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tc.setup(env)

			_, err := env.tickets.CreateTicket(context.Background(), validInput())

			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
			assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
			assert.Equal(t, tc.reason, reasonOf(t, err))
			assert.Zero(t, env.db.TicketCount())
			assert.Zero(t, env.db.ReplyCount())
			assert.Empty(t, env.outbox.kinds())
		})
	}
}

func TestCreateTicketAttachmentLimit(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)

	input := validInput()
	input.Attachments = []AttachmentInput{
		{RealName: "ok.png", Size: 10},
		{RealName: "huge.iso", Size: DefaultAttachmentMaxBytes + 1},
	}
	_, err := env.tickets.CreateTicket(context.Background(), input)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePayloadTooLarge))
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
	assert.Zero(t, env.db.AttachmentCount())
	assert.Zero(t, env.db.TicketCount())

	input.Attachments = []AttachmentInput{{RealName: "exact.bin", Size: DefaultAttachmentMaxBytes}, {RealName: "notes.txt", Size: 3}}
	result := env.create(t, input)

	assert.Equal(t, 2, env.db.AttachmentCount())
	refs := result.Ticket.AttachmentRefs()
	require.Len(t, refs, 2)
	assert.Regexp(t, `^\d+#exact\.bin$`, refs[0])
	assert.Equal(t, refs, result.Reply.AttachmentRefs())

	details, err := env.tickets.GetTicket(context.Background(), result.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, refs, details.Ticket.AttachmentRefs())
	assert.Equal(t, refs, details.Replies[0].AttachmentRefs())
}

func TestCreateTicketWithoutAssignableStaff(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	require.NoError(t, env.db.Staff().Delete(context.Background(), env.agent.ID))

	_, err := env.tickets.CreateTicket(context.Background(), validInput())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
	assert.Equal(t, 500, apperrors.ToDomainError(err).HTTPStatus)
	assert.Zero(t, env.db.TicketCount())
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)

	input := validInput()
	input.CategoryID = 999
	_, err := env.tickets.CreateTicket(context.Background(), input)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	input = validInput()
	input.Priority = 7
	_, err = env.tickets.CreateTicket(context.Background(), input)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestCreateTicketDueDateByPriority(t *testing.T) {
	cases := []struct {
		priority domain.TicketPriority
		want     *time.Duration
	}{
		{domain.TicketPriorityLow, durPtr(24 * time.Hour)},
		{domain.TicketPriorityMedium, durPtr(8 * time.Hour)},
		{domain.TicketPriorityHigh, durPtr(4 * time.Hour)},
		{domain.TicketPriorityUnset, nil},
	}
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)

	for _, tc := range cases {
		input := validInput()
		input.Priority = tc.priority
		result := env.create(t, input)
		if tc.want == nil {
			assert.Nil(t, result.Ticket.DueDate, "priority %d", tc.priority)
			continue
		}
		require.NotNil(t, result.Ticket.DueDate, "priority %d", tc.priority)
		assert.Equal(t, env.now.Add(*tc.want), *result.Ticket.DueDate)
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }

func TestCreateTicketRollsBackOnReplyFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	env.db.FailReplyCreate = errors.New("disk full")

	_, err := env.tickets.CreateTicket(context.Background(), validInput())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
	assert.Zero(t, env.db.TicketCount())
	assert.Empty(t, env.outbox.kinds())
}

func TestCreateTicketSurvivesNotificationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	env.outbox.err = errors.New("relay down")

	result, err := env.tickets.CreateTicket(context.Background(), validInput())

	require.NoError(t, err)
	assert.NotZero(t, result.Ticket.ID)
	assert.Len(t, env.outbox.kinds(), 2)
}

func TestUpdateTicketMessageCreatesReply(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket
	ctx := context.Background()

	for _, empty := range []*string{nil, strPtr(""), strPtr("   ")} {
		result, err := env.tickets.UpdateTicket(ctx, &env.admin, ticket.ID, UpdateTicketInput{Message: empty, Subject: strPtr("Printer")})
		require.NoError(t, err)
		assert.Nil(t, result.Reply)
	}
	assert.Equal(t, 1, env.db.ReplyCount())

	result, err := env.tickets.UpdateTicket(ctx, &env.admin, ticket.ID, UpdateTicketInput{Message: strPtr("on it\nsoon")})
	require.NoError(t, err)
	require.NotNil(t, result.Reply)
	assert.Equal(t, 2, env.db.ReplyCount())
	assert.Equal(t, domain.AuthorRoleStaff, result.Reply.AuthorRole)
	assert.Equal(t, env.admin.ID, result.Reply.StaffID)
	assert.Equal(t, "on it<br />\nsoon", result.Reply.MessageHTML)

	stored, err := env.db.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "help", stored.Message)
	assert.Equal(t, "Printer", stored.Subject)
}

func TestUpdateTicketFields(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket
	ctx := context.Background()

	category := int64(2)
	priority := domain.TicketPriorityHigh
	status := domain.TicketStatusInProgress
	due := env.now.Add(72 * time.Hour)
	result, err := env.tickets.UpdateTicket(ctx, &env.agent, ticket.ID, UpdateTicketInput{
		CategoryID: &category, Priority: &priority, Status: &status, DueDate: &due,
	})
	require.NoError(t, err)
	assert.False(t, result.Resolved)
	assert.Equal(t, category, result.Ticket.CategoryID)
	assert.Equal(t, due, *result.Ticket.DueDate)

	bad := domain.TicketStatus(42)
	_, err = env.tickets.UpdateTicket(ctx, &env.agent, ticket.ID, UpdateTicketInput{Status: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = env.tickets.UpdateTicket(ctx, &env.agent, 4242, UpdateTicketInput{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestResolveNotifiesAndIgnoresDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket
	env.outbox.err = errors.New("relay down")

	resolved := domain.TicketStatusResolved
	result, err := env.tickets.UpdateTicket(context.Background(), &env.agent, ticket.ID, UpdateTicketInput{Status: &resolved})

	require.NoError(t, err)
	assert.True(t, result.Resolved)
	assert.Equal(t, domain.TicketStatusResolved, result.Ticket.Status)
	kinds := env.outbox.kinds()
	assert.Equal(t, mail.KindTicketResolved, kinds[len(kinds)-1])
}

func TestUpdateByTrackAndEmail(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket
	ctx := context.Background()

	_, err := env.tickets.UpdateByTrackAndEmail(ctx, ticket.TrackID, "other@allowed.test", strPtr("hi"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	result, err := env.tickets.UpdateByTrackAndEmail(ctx, ticket.TrackID, ticket.Email, strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, result.Reply)

	result, err = env.tickets.UpdateByTrackAndEmail(ctx, ticket.TrackID, ticket.Email, strPtr("<b>still</b> broken"))
	require.NoError(t, err)
	require.NotNil(t, result.Reply)
	assert.Equal(t, domain.AuthorRoleCustomer, result.Reply.AuthorRole)
	assert.Equal(t, int64(0), result.Reply.StaffID)
	assert.Equal(t, "A", result.Reply.Name)
	assert.Equal(t, "&lt;b&gt;still&lt;/b&gt; broken", result.Reply.MessageHTML)

	details, err := env.tickets.ViewTicket(ctx, ticket.TrackID, ticket.Email)
	require.NoError(t, err)
	assert.Len(t, details.Replies, 2)
}

func TestDeleteTicketRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket
	ctx := context.Background()

	err := env.tickets.DeleteTicket(ctx, &env.agent, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
	assert.Equal(t, apperrors.ReasonNotAdmin, reasonOf(t, err))
	assert.Equal(t, 1, env.db.TicketCount())

	require.NoError(t, env.tickets.DeleteTicket(ctx, &env.admin, ticket.ID))
	assert.Zero(t, env.db.TicketCount())
	assert.Zero(t, env.db.ReplyCount())

	err = env.tickets.DeleteTicket(ctx, &env.admin, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListTickets(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ctx := context.Background()

	page, err := env.tickets.ListTickets(ctx, ListTicketsInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPerPage, page.PerPage)

	for i, msg := range []string{"printer jam", "vpn down", "printer toner"} {
		input := validInput()
		input.Message = msg
		input.CategoryID = int64(i%2 + 1)
		env.create(t, input)
	}

	page, err = env.tickets.ListTickets(ctx, ListTicketsInput{Search: strPtr("PRINTER")})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = env.tickets.ListTickets(ctx, ListTicketsInput{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	owner := env.agent.ID
	page, err = env.tickets.ListTickets(ctx, ListTicketsInput{OwnerID: &owner, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPerPage, page.PerPage)
	assert.Len(t, page.Items, 3)

	page, err = env.tickets.ListByCategoryName(ctx, domain.CategoryRequest, ListTicketsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = env.tickets.ListByCategoryName(ctx, "Submit a request", ListTicketsInput{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestViewTicketRequiresMatchingPair(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)
	ticket := env.create(t, validInput()).Ticket

	_, err := env.tickets.ViewTicket(context.Background(), ticket.TrackID, "b@allowed.test")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	details, err := env.tickets.ViewTicket(context.Background(), ticket.TrackID, ticket.Email)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, details.Ticket.ID)
	assert.Len(t, details.Replies, 1)
}
