package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("smtp down")
	var calls []string

	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "requester")
		return boom
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "owner")
		return nil
	})
	d.Subscribe(EventTicketResolved, func(context.Context, Event) error {
		calls = append(calls, "resolved")
		return nil
	})

	ticket := &domain.Ticket{ID: 3, TrackID: "AAA-BBB-CCC"}
	err := d.Publish(context.Background(), NewEvent(EventTicketCreated, ticket, nil))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"requester", "owner"}, calls)
}

func TestNewEventStampsIdentity(t *testing.T) {
	ticket := &domain.Ticket{ID: 9, TrackID: "QWE-RTY-UIO"}
	a := NewEvent(EventTicketResolved, ticket, TicketResolvedPayload{Ticket: *ticket})
	b := NewEvent(EventTicketResolved, ticket, nil)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(9), a.TicketID)
	assert.Equal(t, "QWE-RTY-UIO", a.TrackID)
	assert.False(t, a.Timestamp.IsZero())
}
