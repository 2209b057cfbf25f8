package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AllowListRepository manages the addresses permitted to open tickets.
type AllowListRepository interface {
	// GetByEmail matches case-insensitively on the whole address.
	GetByEmail(ctx context.Context, email string) (*domain.AllowedEmail, error)
	GetByID(ctx context.Context, id int64) (*domain.AllowedEmail, error)
	List(ctx context.Context) ([]domain.AllowedEmail, error)
	Create(ctx context.Context, entry *domain.AllowedEmail) error
	SetLocked(ctx context.Context, id int64, locked bool) error
}

type allowListRepository struct {
	db DBTX
}

// NewAllowListRepository creates repository.
func NewAllowListRepository(db DBTX) AllowListRepository {
	return &allowListRepository{db: db}
}

func (r *allowListRepository) GetByEmail(ctx context.Context, email string) (*domain.AllowedEmail, error) {
	const query = `SELECT id, email, locked, created_at FROM allowed_emails WHERE LOWER(email)=LOWER($1)`
	return scanAllowedEmail(r.db.QueryRow(ctx, query, email))
}

func (r *allowListRepository) GetByID(ctx context.Context, id int64) (*domain.AllowedEmail, error) {
	const query = `SELECT id, email, locked, created_at FROM allowed_emails WHERE id=$1`
	return scanAllowedEmail(r.db.QueryRow(ctx, query, id))
}

func (r *allowListRepository) List(ctx context.Context) ([]domain.AllowedEmail, error) {
	rows, err := r.db.Query(ctx, `SELECT id, email, locked, created_at FROM allowed_emails ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AllowedEmail{}
	for rows.Next() {
		entry, err := scanAllowedEmail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func (r *allowListRepository) Create(ctx context.Context, entry *domain.AllowedEmail) error {
	const query = `
        INSERT INTO allowed_emails (email, locked)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, entry.Email, entry.Locked).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *allowListRepository) SetLocked(ctx context.Context, id int64, locked bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE allowed_emails SET locked=$1 WHERE id=$2`, locked, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAllowedEmail(row pgx.Row) (*domain.AllowedEmail, error) {
	var entry domain.AllowedEmail
	if err := row.Scan(&entry.ID, &entry.Email, &entry.Locked, &entry.CreatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}
