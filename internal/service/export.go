package service

import (
	"context"
	"fmt"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/repo"
)

// ExportService assembles a flat export of every birthday a user owns.
type ExportService struct {
	repo  repo.BirthdayRepo
	clock domain.Clock
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(r repo.BirthdayRepo, clock domain.Clock) *ExportService {
	return &ExportService{repo: r, clock: clock}
}

// Export returns one ExportRow per birthday owned by owner, soonest upcoming
// first. Every derived field is computed against a single reading of the clock.
// Always returns a non-nil slice.
func (s *ExportService) Export(ctx context.Context, owner string) ([]domain.ExportRow, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	birthdays, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	now := s.clock.Now()
	sortByUpcoming(birthdays, now)

	rows := make([]domain.ExportRow, 0, len(birthdays))
	for _, b := range birthdays {
		date := b.BirthDate()
		row := domain.ExportRow{
			ID:             b.ID().String(),
			Name:           b.Name(),
			BirthDate:      date.Time(),
			ReminderDays:   b.ReminderDays(),
			Age:            date.Age(now),
			NextOccurrence: date.NextOccurrence(now),
			DaysUntil:      date.DaysUntilNextOccurrence(now),
		}
		if notes := b.Notes(); notes != nil {
			row.Notes = *notes
		}
		rows = append(rows, row)
	}
	return rows, nil
}
