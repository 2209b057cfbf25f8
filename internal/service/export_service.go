package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ExportHeader is the fixed CSV column order.
var ExportHeader = []string{
	"ID", "Track ID", "Date", "Last Update", "Name", "Email", "Category",
	"Priority", "Status", "Subject", "Message", "Owner", "Time Worked", "Due Date",
}

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportService writes the ticket export.
type ExportService struct {
	tickets repository.TicketRepository
}

// NewExportService constructs the service.
func NewExportService(tickets repository.TicketRepository) *ExportService {
	return &ExportService{tickets: tickets}
}

// WriteCSV writes the header and one row per ticket joined with its category and owner.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.tickets.ListForExport(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeader); err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	for _, row := range rows {
		if err := writer.Write(exportRecord(row)); err != nil {
			return 0, apperrors.NewInternalError(err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return len(rows), nil
}

func exportRecord(row repository.ExportRow) []string {
	due := ""
	if row.DueDate != nil {
		due = formatExportTime(*row.DueDate)
	}
	return []string{
		strconv.FormatInt(row.ID, 10),
		row.TrackID,
		formatExportTime(row.CreatedAt),
		formatExportTime(row.UpdatedAt),
		row.Name,
		row.Email,
		row.CategoryName,
		ExportPriorityLabel(row.Priority),
		ExportStatusLabel(row.Status),
		row.Subject,
		row.Message,
		row.OwnerName,
		row.TimeWorked,
		due,
	}
}

func formatExportTime(t time.Time) string {
	return t.UTC().Format(exportTimeLayout)
}

// ExportPriorityLabel is the export's own priority vocabulary; it does not follow
// domain.TicketPriority.Label.
func ExportPriorityLabel(p domain.TicketPriority) string {
	switch p {
	case 0:
		return "Critical"
	case 1:
		return "High"
	case 2:
		return "Medium"
	default:
		return "Low"
	}
}

// ExportStatusLabel is the export's own status vocabulary.
func ExportStatusLabel(s domain.TicketStatus) string {
	switch s {
	case 0:
		return "Open"
	case 1:
		return "Pending"
	case 2:
		return "Resolved"
	case 3:
		return "Closed"
	default:
		return "Unknown"
	}
}
