package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures admin list parameters.
type TicketFilter struct {
	CategoryID *int64
	OwnerID    *int64
	SearchTerm *string
	Limit      int
	Offset     int
}

// ExportRow is a ticket joined with its category and owner names.
type ExportRow struct {
	ID           int64
	TrackID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string
	Email        string
	CategoryName string
	Priority     domain.TicketPriority
	Status       domain.TicketStatus
	Subject      string
	Message      string
	OwnerName    string
	TimeWorked   string
	DueDate      *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByTrackAndEmail(ctx context.Context, trackID, email string) (*domain.Ticket, error)
	TrackIDExists(ctx context.Context, trackID string) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	ListForExport(ctx context.Context) ([]ExportRow, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, track_id, name, email, category_id, priority, status, subject, message,
               owner_id, emp_cat, emp_sub_cat, emp_issue, time_worked, due_date, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (track_id, name, email, category_id, priority, status, subject, message,
                             owner_id, emp_cat, emp_sub_cat, emp_issue, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, time_worked, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.TrackID,
		ticket.Name,
		ticket.Email,
		ticket.CategoryID,
		ticket.Priority,
		ticket.Status,
		ticket.Subject,
		ticket.Message,
		ticket.OwnerID,
		ticket.EmpCategory,
		ticket.EmpSubCategory,
		ticket.EmpIssue,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.TimeWorked, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category_id=$1, priority=$2, status=$3, subject=$4, due_date=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.CategoryID,
		ticket.Priority,
		ticket.Status,
		ticket.Subject,
		ticket.DueDate,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetByTrackAndEmail(ctx context.Context, trackID, email string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE track_id=$1 AND email=$2`
	return scanTicket(r.db.QueryRow(ctx, query, trackID, email))
}

func (r *ticketRepository) TrackIDExists(ctx context.Context, trackID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE track_id=$1)`, trackID).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, containsPattern(*filter.SearchTerm))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(track_id) LIKE %[1]s ESCAPE '\' OR LOWER(name) LIKE %[1]s ESCAPE '\' OR LOWER(email) LIKE %[1]s ESCAPE '\'`+
				` OR LOWER(subject) LIKE %[1]s ESCAPE '\' OR LOWER(message) LIKE %[1]s ESCAPE '\')`, p))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, total, rows.Err()
}

func (r *ticketRepository) ListForExport(ctx context.Context) ([]ExportRow, error) {
	const query = `
        SELECT t.id, t.track_id, t.created_at, t.updated_at, t.name, t.email, c.name,
               t.priority, t.status, t.subject, t.message, s.name, t.time_worked, t.due_date
        FROM tickets t
        JOIN categories c ON c.id = t.category_id
        JOIN staff_members s ON s.id = t.owner_id
        ORDER BY t.id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(
			&row.ID,
			&row.TrackID,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.Name,
			&row.Email,
			&row.CategoryName,
			&row.Priority,
			&row.Status,
			&row.Subject,
			&row.Message,
			&row.OwnerName,
			&row.TimeWorked,
			&row.DueDate,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into a lower-case substring LIKE pattern
// with its wildcards escaped.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TrackID,
		&ticket.Name,
		&ticket.Email,
		&ticket.CategoryID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Subject,
		&ticket.Message,
		&ticket.OwnerID,
		&ticket.EmpCategory,
		&ticket.EmpSubCategory,
		&ticket.EmpIssue,
		&ticket.TimeWorked,
		&ticket.DueDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
