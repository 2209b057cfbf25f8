package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/repotest"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func seedTicket(t *testing.T, db *repotest.DB, trackID string) {
	t.Helper()
	owner := db.AddStaff(domain.StaffMember{Username: "owner-" + trackID, Name: "Owner", Email: trackID + "@staff.test"})
	require.NoError(t, db.Tickets().Create(context.Background(), &domain.Ticket{
		TrackID: trackID, Name: "A", Email: "a@allowed.test", CategoryID: 1, OwnerID: owner.ID,
	}))
}

func TestTrackIDGeneratorShape(t *testing.T) {
	gen := NewTrackIDGenerator(repotest.New().Tickets(), 0)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Regexp(t, trackIDPattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestTrackIDGeneratorRetriesOnCollision(t *testing.T) {
	db := repotest.New()
	seedTicket(t, db, "AAA-AAA-AAA")

	gen := NewTrackIDGenerator(db.Tickets(), 3)
	gen.random = bytes.NewReader(append(make([]byte, 9), bytes.Repeat([]byte{1}, 9)...))

	id, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBB-BBB-BBB", id)
}

func TestTrackIDGeneratorGivesUp(t *testing.T) {
	db := repotest.New()
	seedTicket(t, db, "AAA-AAA-AAA")

	gen := NewTrackIDGenerator(db.Tickets(), 5)
	gen.random = bytes.NewReader(make([]byte, 5*9))

	_, err := gen.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
}

func TestAttachmentValidatorNames(t *testing.T) {
	v := NewAttachmentValidator(0)
	v.token = func() string { return "feedbeef" }

	attachments, err := v.Validate("ABC-DEF-GHJ", []AttachmentInput{
		{RealName: "report.final.PDF", Size: 1},
		{RealName: "../../README", Size: DefaultAttachmentMaxBytes},
	})
	require.NoError(t, err)
	require.Len(t, attachments, 2)
	assert.Equal(t, "ABC-DEF-GHJ_feedbeef.PDF", attachments[0].SavedName)
	assert.Equal(t, "ABC-DEF-GHJ_feedbeef", attachments[1].SavedName)
	assert.Equal(t, domain.AttachmentTypeSubmission, attachments[0].Type)

	_, err = v.Validate("ABC-DEF-GHJ", []AttachmentInput{{RealName: "big.zip", Size: DefaultAttachmentMaxBytes + 1}})
	require.Error(t, err)
	assert.Equal(t, "Attachment big.zip exceeds the size limit of 2MB.", apperrors.ToDomainError(err).Message)
}

func TestAssignmentSelectorSkipsAdmins(t *testing.T) {
	db := repotest.New()
	db.AddStaff(domain.StaffMember{Username: "root", Name: "Root", Email: "root@staff.test", IsAdmin: true})
	agents := map[int64]int{}
	for _, name := range []string{"ann", "bob", "cyd"} {
		agents[db.AddStaff(domain.StaffMember{Username: name, Name: name, Email: name + "@staff.test"}).ID] = 0
	}

	selector := NewAssignmentSelector(db.Staff())
	for i := 0; i < 300; i++ {
		owner, err := selector.Select(context.Background())
		require.NoError(t, err)
		_, ok := agents[owner.ID]
		require.True(t, ok, "admin %d selected", owner.ID)
		agents[owner.ID]++
	}
	for id, hits := range agents {
		assert.Greater(t, hits, 0, "staff %d never selected", id)
	}
}

func TestDueDate(t *testing.T) {
	assert.Equal(t, fixedNow.Add(24*time.Hour), *DueDate(domain.TicketPriorityLow, fixedNow))
	assert.Nil(t, DueDate(domain.TicketPriority(9), fixedNow))
}
