// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// DB is a goroutine-safe in-memory stand-in for the Postgres schema.
// It mirrors the constraints the service relies on: unique track ids and
// emails, cascading ticket deletes and RESTRICT on ticket owners.
type DB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq         int64
	tickets     map[int64]domain.Ticket
	replies     []domain.Reply
	attachments []domain.Attachment
	staff       map[int64]domain.StaffMember
	categories  []domain.Category
	allowed     []domain.AllowedEmail

	// Now stamps created_at/updated_at. Defaults to time.Now.
	Now func() time.Time
	// FailReplyCreate, when set, is returned by the next reply insert.
	FailReplyCreate error
}

// New returns an empty database seeded with the two default categories.
func New() *DB {
	return &DB{
		tickets: map[int64]domain.Ticket{},
		staff:   map[int64]domain.StaffMember{},
		categories: []domain.Category{
			{ID: 1, Name: domain.CategoryIncident, Priority: domain.TicketPriorityUnset, AutoAssign: true},
			{ID: 2, Name: domain.CategoryRequest, Priority: domain.TicketPriorityUnset, AutoAssign: true},
		},
		seq: 100,
		Now: time.Now,
	}
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}

// Tickets exposes the ticket repository.
func (db *DB) Tickets() repository.TicketRepository { return ticketRepo{db} }

// Replies exposes the reply repository.
func (db *DB) Replies() repository.ReplyRepository { return replyRepo{db} }

// Attachments exposes the attachment repository.
func (db *DB) Attachments() repository.AttachmentRepository { return attachmentRepo{db} }

// Staff exposes the staff repository.
func (db *DB) Staff() repository.StaffRepository { return staffRepo{db} }

// Categories exposes the category repository.
func (db *DB) Categories() repository.CategoryRepository { return categoryRepo{db} }

// AllowList exposes the allow-list repository.
func (db *DB) AllowList() repository.AllowListRepository { return allowListRepo{db} }

// WithinTx runs fn and restores the previous state if it fails.
func (db *DB) WithinTx(_ context.Context, fn func(store repository.TicketStore) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	tickets := make(map[int64]domain.Ticket, len(db.tickets))
	for k, v := range db.tickets {
		tickets[k] = v
	}
	replies := append([]domain.Reply(nil), db.replies...)
	attachments := append([]domain.Attachment(nil), db.attachments...)
	db.mu.Unlock()

	err := fn(repository.TicketStore{Tickets: db.Tickets(), Replies: db.Replies(), Attachments: db.Attachments()})
	if err != nil {
		db.mu.Lock()
		db.tickets, db.replies, db.attachments = tickets, replies, attachments
		db.mu.Unlock()
	}
	return err
}

// AddStaff inserts a staff member directly and returns it with its id.
func (db *DB) AddStaff(member domain.StaffMember) domain.StaffMember {
	_ = db.Staff().Create(context.Background(), &member)
	return member
}

// AllowEmail inserts an allow-list entry directly.
func (db *DB) AllowEmail(email string, locked bool) domain.AllowedEmail {
	entry := domain.AllowedEmail{Email: email, Locked: locked}
	_ = db.AllowList().Create(context.Background(), &entry)
	return entry
}

// AddCategory inserts a category directly.
func (db *DB) AddCategory(category domain.Category) domain.Category {
	db.mu.Lock()
	defer db.mu.Unlock()
	if category.ID == 0 {
		category.ID = db.nextID()
	}
	db.categories = append(db.categories, category)
	return category
}

// TicketCount returns the number of stored tickets.
func (db *DB) TicketCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.tickets)
}

// ReplyCount returns the number of stored replies across all tickets.
func (db *DB) ReplyCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.replies)
}

// AttachmentCount returns the number of stored attachments across all tickets.
func (db *DB) AttachmentCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.attachments)
}

type ticketRepo struct{ db *DB }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.tickets {
		if existing.TrackID == ticket.TrackID {
			return uniqueViolation("tickets_track_id_key")
		}
	}
	if _, ok := r.db.staff[ticket.OwnerID]; !ok {
		return foreignKeyViolation("tickets_owner_id_fkey")
	}
	now := r.db.Now()
	ticket.ID = r.db.nextID()
	ticket.TimeWorked = "00:00:00"
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	stored.Attachments = nil
	r.db.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.CategoryID = ticket.CategoryID
	stored.Priority = ticket.Priority
	stored.Status = ticket.Status
	stored.Subject = ticket.Subject
	stored.DueDate = ticket.DueDate
	stored.UpdatedAt = r.db.Now()
	r.db.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r ticketRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.db.tickets, id)

	replies := r.db.replies[:0]
	for _, reply := range r.db.replies {
		if reply.TicketID != id {
			replies = append(replies, reply)
		}
	}
	r.db.replies = replies

	attachments := r.db.attachments[:0]
	for _, att := range r.db.attachments {
		if att.TicketID != id {
			attachments = append(attachments, att)
		}
	}
	r.db.attachments = attachments
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) GetByTrackAndEmail(_ context.Context, trackID, email string) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, ticket := range r.db.tickets {
		if ticket.TrackID == trackID && ticket.Email == email {
			return &ticket, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r ticketRepo) TrackIDExists(_ context.Context, trackID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, ticket := range r.db.tickets {
		if ticket.TrackID == trackID {
			return true, nil
		}
	}
	return false, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	term := ""
	if filter.SearchTerm != nil {
		term = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	matched := []domain.Ticket{}
	for _, ticket := range r.db.tickets {
		if filter.CategoryID != nil && ticket.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if term != "" && !matchesTerm(ticket, term) {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Ticket{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matchesTerm(ticket domain.Ticket, term string) bool {
	for _, field := range []string{ticket.TrackID, ticket.Name, ticket.Email, ticket.Subject, ticket.Message} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (r ticketRepo) ListForExport(_ context.Context) ([]repository.ExportRow, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var rows []repository.ExportRow
	for _, ticket := range r.db.tickets {
		row := repository.ExportRow{
			ID:         ticket.ID,
			TrackID:    ticket.TrackID,
			CreatedAt:  ticket.CreatedAt,
			UpdatedAt:  ticket.UpdatedAt,
			Name:       ticket.Name,
			Email:      ticket.Email,
			Priority:   ticket.Priority,
			Status:     ticket.Status,
			Subject:    ticket.Subject,
			Message:    ticket.Message,
			OwnerName:  r.db.staff[ticket.OwnerID].Name,
			TimeWorked: ticket.TimeWorked,
			DueDate:    ticket.DueDate,
		}
		for _, category := range r.db.categories {
			if category.ID == ticket.CategoryID {
				row.CategoryName = category.Name
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

type replyRepo struct{ db *DB }

func (r replyRepo) Create(_ context.Context, reply *domain.Reply) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.FailReplyCreate; err != nil {
		r.db.FailReplyCreate = nil
		return err
	}
	if _, ok := r.db.tickets[reply.TicketID]; !ok {
		return foreignKeyViolation("replies_ticket_id_fkey")
	}
	reply.ID = r.db.nextID()
	reply.CreatedAt = r.db.Now()
	stored := *reply
	stored.Attachments = nil
	r.db.replies = append(r.db.replies, stored)
	return nil
}

func (r replyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Reply, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	result := []domain.Reply{}
	for _, reply := range r.db.replies {
		if reply.TicketID == ticketID {
			result = append(result, reply)
		}
	}
	return result, nil
}

type attachmentRepo struct{ db *DB }

func (r attachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[attachment.TicketID]; !ok {
		return foreignKeyViolation("attachments_ticket_id_fkey")
	}
	attachment.ID = r.db.nextID()
	attachment.CreatedAt = r.db.Now()
	r.db.attachments = append(r.db.attachments, *attachment)
	return nil
}

func (r attachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.Attachment
	for _, att := range r.db.attachments {
		if att.TicketID == ticketID {
			result = append(result, att)
		}
	}
	return result, nil
}

type staffRepo struct{ db *DB }

func (r staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.checkStaffUnique(*staff); err != nil {
		return err
	}
	now := r.db.Now()
	staff.ID = r.db.nextID()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.db.staff[staff.ID] = *staff
	return nil
}

func (db *DB) checkStaffUnique(staff domain.StaffMember) error {
	for id, existing := range db.staff {
		if id == staff.ID {
			continue
		}
		if strings.EqualFold(existing.Email, staff.Email) {
			return uniqueViolation("staff_members_email_key")
		}
		if existing.Username == staff.Username {
			return uniqueViolation("staff_members_username_key")
		}
	}
	return nil
}

func (r staffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.staff[staff.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.db.checkStaffUnique(*staff); err != nil {
		return err
	}
	staff.CreatedAt = stored.CreatedAt
	staff.UpdatedAt = r.db.Now()
	r.db.staff[staff.ID] = *staff
	return nil
}

func (r staffRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.staff[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, ticket := range r.db.tickets {
		if ticket.OwnerID == id {
			return foreignKeyViolation("tickets_owner_id_fkey")
		}
	}
	delete(r.db.staff, id)
	return nil
}

func (r staffRepo) GetByID(_ context.Context, id int64) (*domain.StaffMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	staff, ok := r.db.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &staff, nil
}

func (r staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, staff := range r.db.staff {
		if strings.EqualFold(staff.Email, email) {
			return &staff, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r staffRepo) List(_ context.Context) ([]domain.StaffMember, error) {
	return r.list(func(domain.StaffMember) bool { return true }), nil
}

func (r staffRepo) ListAssignable(_ context.Context) ([]domain.StaffMember, error) {
	return r.list(func(s domain.StaffMember) bool { return !s.IsAdmin }), nil
}

func (r staffRepo) list(keep func(domain.StaffMember) bool) []domain.StaffMember {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	result := []domain.StaffMember{}
	for _, staff := range r.db.staff {
		if keep(staff) {
			result = append(result, staff)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type categoryRepo struct{ db *DB }

func (r categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.Category{}, r.db.categories...), nil
}

func (r categoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, category := range r.db.categories {
		if category.ID == id {
			return &category, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r categoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, category := range r.db.categories {
		if category.Name == name {
			return &category, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type allowListRepo struct{ db *DB }

func (r allowListRepo) GetByEmail(_ context.Context, email string) (*domain.AllowedEmail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, entry := range r.db.allowed {
		if strings.EqualFold(entry.Email, email) {
			return &entry, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r allowListRepo) GetByID(_ context.Context, id int64) (*domain.AllowedEmail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, entry := range r.db.allowed {
		if entry.ID == id {
			return &entry, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r allowListRepo) List(_ context.Context) ([]domain.AllowedEmail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.AllowedEmail{}, r.db.allowed...), nil
}

func (r allowListRepo) Create(_ context.Context, entry *domain.AllowedEmail) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.allowed {
		if strings.EqualFold(existing.Email, entry.Email) {
			return uniqueViolation("allowed_emails_email_lower_idx")
		}
	}
	entry.ID = r.db.nextID()
	entry.CreatedAt = r.db.Now()
	r.db.allowed = append(r.db.allowed, *entry)
	return nil
}

func (r allowListRepo) SetLocked(_ context.Context, id int64, locked bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.allowed {
		if r.db.allowed[i].ID == id {
			r.db.allowed[i].Locked = locked
			return nil
		}
	}
	return pgx.ErrNoRows
}
