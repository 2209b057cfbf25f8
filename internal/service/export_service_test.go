package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestExportWritesHeaderOnlyWhenEmpty(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer

	n, err := NewExportService(env.db.Tickets()).WriteCSV(context.Background(), &buf)

	require.NoError(t, err)
	assert.Zero(t, n)
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{ExportHeader}, records)
}

func TestExportRows(t *testing.T) {
	env := newTestEnv(t)
	env.db.AllowEmail("a@allowed.test", false)

	input := validInput()
	input.Message = "line one\nline \"two\", with comma"
	input.Subject = "VPN"
	first := env.create(t, input).Ticket

	input.Priority = domain.TicketPriorityUnset
	input.CategoryID = 2
	second := env.create(t, input).Ticket
	status := domain.TicketStatusOnHold
	_, err := env.tickets.UpdateTicket(context.Background(), &env.admin, second.ID, UpdateTicketInput{Status: &status})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := NewExportService(env.db.Tickets()).WriteCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Len(t, records[0], 14)

	row := records[1]
	assert.Equal(t, first.TrackID, row[1])
	assert.Equal(t, "2026-03-14 09:30:00", row[2])
	assert.Equal(t, domain.CategoryIncident, row[6])
	assert.Equal(t, "Critical", row[7])
	assert.Equal(t, "Open", row[8])
	assert.Equal(t, "VPN", row[9])
	assert.Equal(t, input.Message, row[10])
	assert.Equal(t, "Agent", row[11])
	assert.Equal(t, fixedNow.Add(24*time.Hour).Format(exportTimeLayout), row[13])

	row = records[2]
	assert.Equal(t, domain.CategoryRequest, row[6])
	assert.Equal(t, "Low", row[7])
	assert.Equal(t, "Unknown", row[8])
	assert.Empty(t, row[13])
}

func TestExportLabels(t *testing.T) {
	assert.Equal(t, "High", ExportPriorityLabel(1))
	assert.Equal(t, "Medium", ExportPriorityLabel(2))
	assert.Equal(t, "Pending", ExportStatusLabel(1))
	assert.Equal(t, "Resolved", ExportStatusLabel(2))
	assert.Equal(t, "Closed", ExportStatusLabel(3))
}
