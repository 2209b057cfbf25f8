package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context) ([]domain.StaffMember, error)
	// ListAssignable returns the non-admin staff that new tickets can be given to.
	ListAssignable(ctx context.Context) ([]domain.StaffMember, error)
}

type staffRepository struct {
	db DBTX
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DBTX) StaffRepository {
	return &staffRepository{db: db}
}

const staffColumns = `id, username, name, email, password_hash, is_admin, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (username, name, email, password_hash, is_admin)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		staff.Username,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.IsAdmin,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET username=$1, name=$2, email=$3, password_hash=$4, is_admin=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	return r.db.QueryRow(ctx, query,
		staff.Username,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.IsAdmin,
		staff.ID,
	).Scan(&staff.UpdatedAt)
}

func (r *staffRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM staff_members WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*domain.StaffMember, error) {
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE id=$1`, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *staffRepository) List(ctx context.Context) ([]domain.StaffMember, error) {
	return r.list(ctx, `SELECT `+staffColumns+` FROM staff_members ORDER BY id ASC`)
}

func (r *staffRepository) ListAssignable(ctx context.Context) ([]domain.StaffMember, error) {
	return r.list(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE is_admin=FALSE ORDER BY id ASC`)
}

func (r *staffRepository) list(ctx context.Context, query string) ([]domain.StaffMember, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StaffMember{}
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.Username,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.IsAdmin,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
