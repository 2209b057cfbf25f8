package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("helpdesk_test"),
		postgres.WithUsername("helpdesk"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, persistence.RunMigrations(pg.Pool, logger))
	return pg.Pool
}

func seedOwner(t *testing.T, pool *pgxpool.Pool) *domain.StaffMember {
	t.Helper()
	staff := &domain.StaffMember{Username: "agent", Name: "Agent Smith", Email: "agent@example.test", PasswordHash: "x"}
	require.NoError(t, repository.NewStaffRepository(pool).Create(context.Background(), staff))
	return staff
}

func TestTicketLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	owner := seedOwner(t, pool)

	categories, err := repository.NewCategoryRepository(pool).List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	ticket := &domain.Ticket{
		TrackID:    "ABC-123-XYZ",
		Name:       "A",
		Email:      "a@allowed.test",
		CategoryID: categories[0].ID,
		Priority:   domain.TicketPriorityLow,
		Status:     domain.TicketStatusNew,
		Message:    "help",
		OwnerID:    owner.ID,
		DueDate:    &due,
	}

	err = repository.NewTxRunner(pool).WithinTx(ctx, func(store repository.TicketStore) error {
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		reply := &domain.Reply{TicketID: ticket.ID, Name: "A", Message: "help", MessageHTML: "help", AuthorRole: domain.AuthorRoleCustomer}
		if err := store.Replies.Create(ctx, reply); err != nil {
			return err
		}
		return store.Attachments.Create(ctx, &domain.Attachment{
			TicketID: ticket.ID, TrackID: ticket.TrackID, SavedName: "ABC-123-XYZ_x.png", RealName: "x.png", Size: 10,
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "00:00:00", ticket.TimeWorked)

	tickets := repository.NewTicketRepository(pool)
	exists, err := tickets.TrackIDExists(ctx, "ABC-123-XYZ")
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := tickets.GetByTrackAndEmail(ctx, "ABC-123-XYZ", "a@allowed.test")
	require.NoError(t, err)
	require.NotNil(t, found.DueDate)
	assert.True(t, due.Equal(*found.DueDate))

	term := "abc-123"
	list, total, err := tickets.List(ctx, repository.TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	for _, wildcard := range []string{"%", "_", `\`} {
		term := wildcard
		_, total, err := tickets.List(ctx, repository.TicketFilter{SearchTerm: &term})
		require.NoError(t, err)
		assert.Zero(t, total, "search %q", wildcard)
	}

	rows, err := tickets.ListForExport(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Agent Smith", rows[0].OwnerName)

	dup := *ticket
	err = tickets.Create(ctx, &dup)
	assert.True(t, repository.IsUniqueViolation(err))

	require.NoError(t, tickets.Delete(ctx, ticket.ID))
	replies, err := repository.NewReplyRepository(pool).ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
	attachments, err := repository.NewAttachmentRepository(pool).ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestTxRunnerRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	owner := seedOwner(t, pool)
	boom := errors.New("boom")

	err := repository.NewTxRunner(pool).WithinTx(ctx, func(store repository.TicketStore) error {
		ticket := &domain.Ticket{TrackID: "ROL-LBA-CK1", Name: "A", Email: "a@x.test", CategoryID: 1, Message: "m", OwnerID: owner.ID}
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repository.NewTicketRepository(pool).GetByTrackAndEmail(ctx, "ROL-LBA-CK1", "a@x.test")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestAllowListCaseInsensitive(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := repository.NewAllowListRepository(pool)

	entry := &domain.AllowedEmail{Email: "Someone@Example.test"}
	require.NoError(t, repo.Create(ctx, entry))

	found, err := repo.GetByEmail(ctx, "someone@example.TEST")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, found.ID)

	require.NoError(t, repo.SetLocked(ctx, entry.ID, true))
	found, err = repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, found.Locked)

	err = repo.Create(ctx, &domain.AllowedEmail{Email: "someone@example.test"})
	assert.True(t, repository.IsUniqueViolation(err))
}

func TestStaffOwnerRestrict(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	owner := seedOwner(t, pool)

	ticket := &domain.Ticket{TrackID: "OWN-ERR-EST", Name: "A", Email: "a@x.test", CategoryID: 1, Message: "m", OwnerID: owner.ID}
	require.NoError(t, repository.NewTicketRepository(pool).Create(ctx, ticket))

	staff := repository.NewStaffRepository(pool)
	err := staff.Delete(ctx, owner.ID)
	assert.True(t, repository.IsForeignKeyViolation(err))

	assignable, err := staff.ListAssignable(ctx)
	require.NoError(t, err)
	assert.Len(t, assignable, 1)
}
