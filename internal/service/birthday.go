// Package service contains the business logic for the Birthdays API.
// Services validate inputs, enforce ownership, and orchestrate repo calls.
// No storage code lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/repo"
)

// CreateInput carries the caller-supplied fields for BirthdayService.Create.
// Notes and ReminderDays are optional; nil means absent.
type CreateInput struct {
	UserID       string
	Name         string
	BirthDate    string
	Notes        *string
	ReminderDays *int
}

// UpdateInput carries a partial update for BirthdayService.Update.
// A nil field is left unchanged; a non-nil Notes pointing at a blank string
// clears the notes.
type UpdateInput struct {
	ID           string
	UserID       string
	Name         *string
	BirthDate    *string
	Notes        *string
	ReminderDays *int
}

// BirthdayService implements the create/get/list/update/delete lifecycle of
// birthdays on behalf of an authenticated owner.
type BirthdayService struct {
	repo  repo.BirthdayRepo
	clock domain.Clock
	newID func() string
}

// Option customises a BirthdayService.
type Option func(*BirthdayService)

// WithIDGenerator replaces the default UUIDv4 generator used by Create.
func WithIDGenerator(fn func() string) Option {
	return func(s *BirthdayService) { s.newID = fn }
}

// NewBirthdayService constructs a BirthdayService backed by the provided repo.
// clock supplies "today" for every date calculation.
func NewBirthdayService(r repo.BirthdayRepo, clock domain.Clock, opts ...Option) *BirthdayService {
	s := &BirthdayService{repo: r, clock: clock, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in and persists a new birthday owned by in.UserID.
// Returns domain.ErrValidation if input violates business rules.
// Returns domain.ErrConflict if the generated id is already taken.
func (s *BirthdayService) Create(ctx context.Context, in CreateInput) (*domain.Birthday, error) {
	if err := requireOwner(in.UserID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	date, err := domain.ParseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}
	id, err := domain.NewBirthdayID(s.newID())
	if err != nil {
		return nil, fmt.Errorf("service.BirthdayService.Create: %w", err)
	}

	b, err := domain.NewBirthday(domain.BirthdayParams{
		ID:           id,
		UserID:       in.UserID,
		Name:         name,
		BirthDate:    date,
		Notes:        normalizeNotes(in.Notes),
		ReminderDays: in.ReminderDays,
		Now:          s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("service.BirthdayService.Create: %w", err)
	}
	return b, nil
}

// Get returns the birthday with the given id, or (nil, nil) if none exists.
// Returns domain.ErrForbidden if the birthday belongs to another owner.
func (s *BirthdayService) Get(ctx context.Context, id, owner string) (*domain.Birthday, error) {
	bid, err := parseRequest(id, owner)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.FindByID(ctx, bid)
	if err != nil {
		return nil, fmt.Errorf("service.BirthdayService.Get: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	if !b.OwnedBy(owner) {
		return nil, fmt.Errorf("service.BirthdayService.Get: %w", domain.ErrForbidden)
	}
	return b, nil
}

// List returns every birthday owned by owner, soonest upcoming first.
// Ties keep the repo's order. Always returns a non-nil slice.
func (s *BirthdayService) List(ctx context.Context, owner string) ([]*domain.Birthday, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	birthdays, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("service.BirthdayService.List: %w", err)
	}
	if birthdays == nil {
		return []*domain.Birthday{}, nil
	}
	sortByUpcoming(birthdays, s.clock.Now())
	return birthdays, nil
}

// Update applies the supplied fields to an existing birthday.
// Returns domain.ErrValidation for invalid input, domain.ErrNotFound if the
// birthday does not exist (or vanished before the write), and
// domain.ErrForbidden if it belongs to another owner.
func (s *BirthdayService) Update(ctx context.Context, in UpdateInput) (*domain.Birthday, error) {
	bid, err := parseRequest(in.ID, in.UserID)
	if err != nil {
		return nil, err
	}

	// Validate everything before loading so a bad request never reaches storage.
	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", domain.ErrValidation)
		}
	}
	var date domain.BirthDate
	if in.BirthDate != nil {
		if date, err = domain.ParseBirthDate(*in.BirthDate); err != nil {
			return nil, err
		}
	}
	if in.ReminderDays != nil {
		if err := domain.ValidateReminderDays(*in.ReminderDays); err != nil {
			return nil, err
		}
	}

	b, err := s.loadOwned(ctx, bid, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("service.BirthdayService.Update: %w", err)
	}

	now := s.clock.Now()
	if in.Name != nil || in.BirthDate != nil || in.Notes != nil {
		if in.Name == nil {
			name = b.Name()
		}
		if in.BirthDate == nil {
			date = b.BirthDate()
		}
		notes := b.Notes()
		if in.Notes != nil {
			notes = normalizeNotes(in.Notes)
		}
		b.UpdateInfo(name, date, notes, now)
	}
	if in.ReminderDays != nil {
		if err := b.UpdateReminder(*in.ReminderDays, now); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("service.BirthdayService.Update: %w", err)
	}
	return b, nil
}

// Delete removes the birthday with the given id.
// Returns domain.ErrNotFound if it does not exist (or was deleted concurrently)
// and domain.ErrForbidden if it belongs to another owner.
func (s *BirthdayService) Delete(ctx context.Context, id, owner string) error {
	bid, err := parseRequest(id, owner)
	if err != nil {
		return err
	}
	if _, err := s.loadOwned(ctx, bid, owner); err != nil {
		return fmt.Errorf("service.BirthdayService.Delete: %w", err)
	}
	if err := s.repo.Delete(ctx, bid); err != nil {
		return fmt.Errorf("service.BirthdayService.Delete: %w", err)
	}
	return nil
}

// loadOwned fetches a birthday that must exist and belong to owner.
func (s *BirthdayService) loadOwned(ctx context.Context, id domain.BirthdayID, owner string) (*domain.Birthday, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if !b.OwnedBy(owner) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return nil
}

func parseRequest(id, owner string) (domain.BirthdayID, error) {
	bid, err := domain.NewBirthdayID(id)
	if err != nil {
		return domain.BirthdayID{}, err
	}
	if err := requireOwner(owner); err != nil {
		return domain.BirthdayID{}, err
	}
	return bid, nil
}

// normalizeNotes trims notes and maps blank to absent.
func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// sortByUpcoming orders birthdays by days until their next occurrence,
// all measured against the same now.
func sortByUpcoming(birthdays []*domain.Birthday, now time.Time) {
	slices.SortStableFunc(birthdays, func(a, b *domain.Birthday) int {
		return a.BirthDate().DaysUntilNextOccurrence(now) - b.BirthDate().DaysUntilNextOccurrence(now)
	})
}
