package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/repo"
)

// createdAt is the fixed creation instant of every fixture.
var createdAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// birthdayFixture returns a valid birthday with a fresh ID owned by userID.
// Callers can mutate it through the entity methods after calling this function.
func birthdayFixture(t *testing.T, userID string) *domain.Birthday {
	t.Helper()
	id, err := domain.NewBirthdayID(uuid.NewString())
	require.NoError(t, err)
	date, err := domain.ParseBirthDate("1990-12-25")
	require.NoError(t, err)
	notes := "bring cake"
	days := 3

	b, err := domain.NewBirthday(domain.BirthdayParams{
		ID:           id,
		UserID:       userID,
		Name:         "Ada Lovelace",
		BirthDate:    date,
		Notes:        &notes,
		ReminderDays: &days,
		Now:          createdAt,
	})
	require.NoError(t, err)
	return b
}

// testRepoContract runs the behaviour every BirthdayRepo implementation must
// share. newRepo must return an empty repo on every call.
func testRepoContract(t *testing.T, newRepo func(t *testing.T) repo.BirthdayRepo) {
	ctx := context.Background()

	t.Run("SaveThenFind", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")

		require.NoError(t, r.Save(ctx, b))
		got, err := r.FindByID(ctx, b.ID())

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.Record(), got.Record())
	})

	t.Run("SaveWithoutOptionalFields", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		b.UpdateInfo(b.Name(), b.BirthDate(), nil, createdAt)

		require.NoError(t, r.Save(ctx, b))
		got, err := r.FindByID(ctx, b.ID())

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Notes())
		assert.Equal(t, b.Record(), got.Record())
	})

	t.Run("SaveBoundaryValues", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		earliest, err := domain.ParseBirthDate("0001-01-01")
		require.NoError(t, err)
		b.UpdateInfo(b.Name(), earliest, b.Notes(), createdAt)
		require.NoError(t, b.UpdateReminder(domain.MaxReminderDays, createdAt))

		require.NoError(t, r.Save(ctx, b))
		got, err := r.FindByID(ctx, b.ID())

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.Record(), got.Record())
	})

	t.Run("SaveDuplicateID", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		require.NoError(t, r.Save(ctx, b))

		err := r.Save(ctx, b)

		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		r := newRepo(t)
		id, err := domain.NewBirthdayID(uuid.NewString())
		require.NoError(t, err)

		got, err := r.FindByID(ctx, id)

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("FindByOwner", func(t *testing.T) {
		r := newRepo(t)
		mine1 := birthdayFixture(t, "owner-a")
		mine2 := birthdayFixture(t, "owner-a")
		theirs := birthdayFixture(t, "owner-b")
		for _, b := range []*domain.Birthday{mine1, mine2, theirs} {
			require.NoError(t, r.Save(ctx, b))
		}

		got, err := r.FindByOwner(ctx, "owner-a")

		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, b := range got {
			assert.Equal(t, "owner-a", b.UserID())
			ids = append(ids, b.ID().String())
		}
		assert.ElementsMatch(t, []string{mine1.ID().String(), mine2.ID().String()}, ids)
	})

	t.Run("FindByOwnerEmpty", func(t *testing.T) {
		r := newRepo(t)

		got, err := r.FindByOwner(ctx, "nobody")

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Update", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		require.NoError(t, r.Save(ctx, b))

		newDate, err := domain.ParseBirthDate("1815-12-10")
		require.NoError(t, err)
		later := createdAt.Add(time.Hour)
		b.UpdateInfo("Augusta Ada King", newDate, nil, later)
		require.NoError(t, b.UpdateReminder(0, later))

		require.NoError(t, r.Update(ctx, b))
		got, err := r.FindByID(ctx, b.ID())

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.Record(), got.Record())
		assert.True(t, got.CreatedAt().Equal(createdAt))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		r := newRepo(t)

		err := r.Update(ctx, birthdayFixture(t, "user-1"))

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		require.NoError(t, r.Save(ctx, b))

		require.NoError(t, r.Delete(ctx, b.ID()))

		got, err := r.FindByID(ctx, b.ID())
		require.NoError(t, err)
		assert.Nil(t, got)
		owned, err := r.FindByOwner(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, owned)
	})

	t.Run("DeleteTwice", func(t *testing.T) {
		r := newRepo(t)
		b := birthdayFixture(t, "user-1")
		require.NoError(t, r.Save(ctx, b))
		require.NoError(t, r.Delete(ctx, b.ID()))

		err := r.Delete(ctx, b.ID())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
