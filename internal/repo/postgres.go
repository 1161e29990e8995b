package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/birthdays/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgBirthdayRepo is the Postgres implementation of BirthdayRepo.
type pgBirthdayRepo struct {
	db db
}

// NewPostgresRepo constructs a BirthdayRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresRepo(db db) BirthdayRepo {
	return &pgBirthdayRepo{db: db}
}

const birthdayColumns = `id, user_id, name, birth_date, notes, reminder_days, created_at, updated_at`

// Save inserts a new birthday row. ON CONFLICT DO NOTHING turns a duplicate
// ID into a zero-row insert instead of an error, which maps to ErrConflict.
func (r *pgBirthdayRepo) Save(ctx context.Context, b *domain.Birthday) error {
	const q = `
		INSERT INTO birthdays (` + birthdayColumns + `)
		VALUES (@id, @user_id, @name, @birth_date, @notes, @reminder_days, @created_at, @updated_at)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.db.Exec(ctx, q, birthdayArgs(b))
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Save: birthday already exists: %w", domain.ErrConflict)
	}
	return nil
}

// FindByID retrieves a birthday by primary key.
func (r *pgBirthdayRepo) FindByID(ctx context.Context, id domain.BirthdayID) (*domain.Birthday, error) {
	const q = `SELECT ` + birthdayColumns + ` FROM birthdays WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id.String()})
	result, err := scanBirthday(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}
	return result, nil
}

// FindByOwner returns all birthdays for userID. Rows come back in insertion
// order; callers sort.
func (r *pgBirthdayRepo) FindByOwner(ctx context.Context, userID string) ([]*domain.Birthday, error) {
	const q = `
		SELECT ` + birthdayColumns + `
		FROM birthdays
		WHERE user_id = @user_id
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
	}
	defer rows.Close()

	var out []*domain.Birthday
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: rows: %w", err)
	}

	return out, nil
}

// Update overwrites the mutable columns. user_id and created_at are never rewritten.
func (r *pgBirthdayRepo) Update(ctx context.Context, b *domain.Birthday) error {
	const q = `
		UPDATE birthdays
		SET name          = @name,
		    birth_date    = @birth_date,
		    notes         = @notes,
		    reminder_days = @reminder_days,
		    updated_at    = @updated_at
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, birthdayArgs(b))
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a birthday by primary key.
func (r *pgBirthdayRepo) Delete(ctx context.Context, id domain.BirthdayID) error {
	const q = `DELETE FROM birthdays WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id.String()})
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// birthdayArgs maps every column of b to a named argument.
// Nil notes and reminder days become NULL. Reminder days fit an INTEGER
// column because the domain caps them at MaxReminderDays.
func birthdayArgs(b *domain.Birthday) pgx.NamedArgs {
	var reminder *int32
	if d := b.ReminderDays(); d != nil {
		v := int32(*d)
		reminder = &v
	}
	return pgx.NamedArgs{
		"id":            b.ID().String(),
		"user_id":       b.UserID(),
		"name":          b.Name(),
		"birth_date":    pgtype.Date{Time: b.BirthDate().Time(), Valid: true},
		"notes":         b.Notes(),
		"reminder_days": reminder,
		"created_at":    b.CreatedAt(),
		"updated_at":    b.UpdatedAt(),
	}
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanBirthday to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanBirthday maps a single database row into a domain.Birthday by way of its
// wire record, so the same validation applies to every backend.
func scanBirthday(s scanner) (*domain.Birthday, error) {
	var (
		rec       domain.BirthdayRecord
		birthDate pgtype.Date
		notes     pgtype.Text
		reminder  pgtype.Int4
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := s.Scan(&rec.ID, &rec.UserID, &rec.Name, &birthDate, &notes, &reminder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.BirthDate = birthDate.Time.Format(domain.TimestampLayout)
	rec.CreatedAt = createdAt.Time.UTC().Format(domain.TimestampLayout)
	rec.UpdatedAt = updatedAt.Time.UTC().Format(domain.TimestampLayout)
	if notes.Valid {
		n := notes.String
		rec.Notes = &n
	}
	if reminder.Valid {
		d := int(reminder.Int32)
		rec.ReminderDays = &d
	}

	return domain.FromRecord(rec)
}
