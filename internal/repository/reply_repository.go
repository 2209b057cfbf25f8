package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ReplyRepository manages ticket thread replies.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reply, error)
}

type replyRepository struct {
	db DBTX
}

// NewReplyRepository builds repository.
func NewReplyRepository(db DBTX) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *domain.Reply) error {
	const query = `
        INSERT INTO replies (ticket_id, name, message, message_html, author_role, staff_id, read, rating)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		reply.TicketID,
		reply.Name,
		reply.Message,
		reply.MessageHTML,
		reply.AuthorRole,
		reply.StaffID,
		reply.Read,
		reply.Rating,
	).Scan(&reply.ID, &reply.CreatedAt)
}

func (r *replyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reply, error) {
	const query = `
        SELECT id, ticket_id, name, message, message_html, author_role, staff_id, read, rating, created_at
        FROM replies WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Reply{}
	for rows.Next() {
		var reply domain.Reply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.Name,
			&reply.Message,
			&reply.MessageHTML,
			&reply.AuthorRole,
			&reply.StaffID,
			&reply.Read,
			&reply.Rating,
			&reply.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, rows.Err()
}
