package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/birthdays/internal/domain"
)

// memoryBirthdayRepo is a thread-safe in-process BirthdayRepo.
// It stores wire records rather than entity pointers so callers can never
// mutate stored state without going through Update.
type memoryBirthdayRepo struct {
	mu      sync.RWMutex
	records map[string]domain.BirthdayRecord
	order   []string // insertion order, for deterministic FindByOwner output
}

// NewMemoryRepo constructs an empty in-memory BirthdayRepo.
// Intended for tests and local development; nothing survives a restart.
func NewMemoryRepo() BirthdayRepo {
	return &memoryBirthdayRepo{records: make(map[string]domain.BirthdayRecord)}
}

func (r *memoryBirthdayRepo) Save(_ context.Context, b *domain.Birthday) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := b.ID().String()
	if _, ok := r.records[id]; ok {
		return fmt.Errorf("repo.BirthdayRepo.Save: birthday already exists: %w", domain.ErrConflict)
	}
	r.records[id] = b.Record()
	r.order = append(r.order, id)
	return nil
}

func (r *memoryBirthdayRepo) FindByID(_ context.Context, id domain.BirthdayID) (*domain.Birthday, error) {
	r.mu.RLock()
	rec, ok := r.records[id.String()]
	r.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	b, err := domain.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}
	return b, nil
}

func (r *memoryBirthdayRepo) FindByOwner(_ context.Context, userID string) ([]*domain.Birthday, error) {
	r.mu.RLock()
	var recs []domain.BirthdayRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	out := make([]*domain.Birthday, 0, len(recs))
	for _, rec := range recs {
		b, err := domain.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryBirthdayRepo) Update(_ context.Context, b *domain.Birthday) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := b.ID().String()
	if _, ok := r.records[id]; !ok {
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", domain.ErrNotFound)
	}
	r.records[id] = b.Record()
	return nil
}

func (r *memoryBirthdayRepo) Delete(_ context.Context, id domain.BirthdayID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.String()
	if _, ok := r.records[key]; !ok {
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.records, key)
	for i, v := range r.order {
		if v == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
