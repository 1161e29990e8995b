// Package repo contains all persistence logic for the Birthdays API.
// BirthdayRepo is the contract the service layer depends on; each backend
// (Postgres, DynamoDB, Redis, in-memory) lives in its own file.
// No business logic lives here, only storage access and type mapping.
package repo

import (
	"context"

	"github.com/pkordes/birthdays/internal/domain"
)

// BirthdayRepo defines the persistence operations for Birthdays.
// Every write is existence-guarded and atomic at the storage layer: Save
// requires the ID to be absent, Update and Delete require it to be present.
// There is no version check, so two concurrent Updates both succeed and the
// later one wins.
type BirthdayRepo interface {
	// Save inserts a new birthday.
	// Returns domain.ErrConflict if a birthday with the same ID already exists.
	Save(ctx context.Context, b *domain.Birthday) error

	// FindByID retrieves a birthday by ID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, id domain.BirthdayID) (*domain.Birthday, error)

	// FindByOwner returns every birthday owned by userID, in no particular order.
	FindByOwner(ctx context.Context, userID string) ([]*domain.Birthday, error)

	// Update overwrites the mutable fields of an existing birthday.
	// Returns domain.ErrNotFound if no birthday with that ID exists.
	Update(ctx context.Context, b *domain.Birthday) error

	// Delete removes a birthday by ID.
	// Returns domain.ErrNotFound if no birthday with that ID exists.
	Delete(ctx context.Context, id domain.BirthdayID) error
}
