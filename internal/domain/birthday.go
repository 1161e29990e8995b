// Package domain contains the core types for the Birthdays API.
// This package performs no I/O and is imported by every other internal
// package (repo, service, handler).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for every date-time in the wire
// and persisted representation (millisecond precision, always UTC "Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// BirthdayID is the opaque identity of a Birthday.
type BirthdayID struct {
	value string
}

// NewBirthdayID returns a BirthdayID wrapping id.
// Returns ErrValidation if id is empty or whitespace-only.
func NewBirthdayID(id string) (BirthdayID, error) {
	if strings.TrimSpace(id) == "" {
		return BirthdayID{}, fmt.Errorf("%w: birthday id cannot be empty", ErrValidation)
	}
	return BirthdayID{value: id}, nil
}

// String returns the raw identifier.
func (id BirthdayID) String() string {
	return id.value
}

// Equal reports whether both IDs wrap the same value.
func (id BirthdayID) Equal(other BirthdayID) bool {
	return id.value == other.value
}

// IsZero reports whether id was never constructed.
func (id BirthdayID) IsZero() bool {
	return id.value == ""
}

// MaxReminderDays is the largest accepted reminder offset. An event recurs
// yearly, so an offset beyond one (leap) year never fires sooner.
const MaxReminderDays = 366

// BirthDate is a calendar date with no time-of-day or timezone semantics.
// The wrapped value is always midnight UTC of the date's own year/month/day.
// The zero BirthDate is "no date"; 0001-01-01 is a valid date.
type BirthDate struct {
	value time.Time
	valid bool
}

// dateLayouts are the accepted input formats, tried in order.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.RFC3339,
}

// NewBirthDate builds a BirthDate from the calendar date of t in t's own location.
func NewBirthDate(t time.Time) BirthDate {
	return BirthDate{value: midnight(t), valid: true}
}

// ParseBirthDate parses s as "2006-01-02" or an RFC 3339 date-time.
// Returns ErrValidation if s is blank or matches none of the accepted formats.
func ParseBirthDate(s string) (BirthDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BirthDate{}, fmt.Errorf("%w: birth date is required", ErrValidation)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewBirthDate(t), nil
		}
	}
	return BirthDate{}, fmt.Errorf("%w: invalid birth date %q", ErrValidation, s)
}

// Time returns the wrapped date at midnight UTC.
func (d BirthDate) Time() time.Time {
	return d.value
}

// String returns the date in the wire timestamp layout.
func (d BirthDate) String() string {
	return d.value.Format(TimestampLayout)
}

// Equal reports whether both values denote the same calendar date.
func (d BirthDate) Equal(other BirthDate) bool {
	return d.valid == other.valid && d.value.Equal(other.value)
}

// IsZero reports whether d was never constructed.
func (d BirthDate) IsZero() bool {
	return !d.valid
}

// Age returns the number of full years between the date and the calendar date of now.
func (d BirthDate) Age(now time.Time) int {
	today := midnight(now)
	age := today.Year() - d.value.Year()
	if today.Month() < d.value.Month() ||
		(today.Month() == d.value.Month() && today.Day() < d.value.Day()) {
		age--
	}
	return age
}

// NextOccurrence returns the first date on or after the calendar date of now
// that shares the wrapped month and day. A 29 February date falls on 1 March
// in non-leap years.
func (d BirthDate) NextOccurrence(now time.Time) time.Time {
	today := midnight(now)
	next := time.Date(today.Year(), d.value.Month(), d.value.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, d.value.Month(), d.value.Day(), 0, 0, 0, 0, time.UTC)
	}
	return next
}

// DaysUntilNextOccurrence returns the number of whole days from the calendar
// date of now to NextOccurrence(now). It is 0 when today is the occurrence.
func (d BirthDate) DaysUntilNextOccurrence(now time.Time) int {
	today := midnight(now)
	return int(d.NextOccurrence(now).Sub(today) / (24 * time.Hour))
}

// midnight returns midnight UTC of t's calendar date in t's own location.
// Working in UTC keeps day counts free of DST shifts.
func midnight(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// BirthdayParams carries the inputs for NewBirthday.
// Notes and ReminderDays are optional; nil means absent.
type BirthdayParams struct {
	ID           BirthdayID
	UserID       string
	Name         string
	BirthDate    BirthDate
	Notes        *string
	ReminderDays *int
	Now          time.Time
}

// Birthday is a reminder record owned by exactly one user.
// The ID, owner and creation time are fixed for the entity's lifetime; the
// remaining fields change only through UpdateInfo and UpdateReminder.
type Birthday struct {
	id           BirthdayID
	userID       string
	name         string
	birthDate    BirthDate
	notes        *string
	reminderDays *int
	createdAt    time.Time
	updatedAt    time.Time
}

// NewBirthday validates p and returns a new Birthday whose CreatedAt and
// UpdatedAt are both p.Now.
// Returns ErrValidation if any required field is missing or ReminderDays is
// outside [0, MaxReminderDays].
func NewBirthday(p BirthdayParams) (*Birthday, error) {
	switch {
	case p.ID.IsZero():
		return nil, fmt.Errorf("%w: birthday id is required", ErrValidation)
	case strings.TrimSpace(p.UserID) == "":
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	case strings.TrimSpace(p.Name) == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case p.BirthDate.IsZero():
		return nil, fmt.Errorf("%w: birth date is required", ErrValidation)
	}
	if p.ReminderDays != nil {
		if err := ValidateReminderDays(*p.ReminderDays); err != nil {
			return nil, err
		}
	}

	now := stamp(p.Now)
	return &Birthday{
		id:           p.ID,
		userID:       p.UserID,
		name:         p.Name,
		birthDate:    p.BirthDate,
		notes:        copyPtr(p.Notes),
		reminderDays: copyPtr(p.ReminderDays),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ID returns the birthday's identity.
func (b *Birthday) ID() BirthdayID { return b.id }

// UserID returns the owner's identifier.
func (b *Birthday) UserID() string { return b.userID }

// Name returns the display name.
func (b *Birthday) Name() string { return b.name }

// BirthDate returns the wrapped calendar date.
func (b *Birthday) BirthDate() BirthDate { return b.birthDate }

// Notes returns the free-text notes, or nil when absent.
func (b *Birthday) Notes() *string { return copyPtr(b.notes) }

// ReminderDays returns the reminder offset in days, or nil when absent.
func (b *Birthday) ReminderDays() *int { return copyPtr(b.reminderDays) }

// CreatedAt returns the creation timestamp.
func (b *Birthday) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the time of the last mutation.
func (b *Birthday) UpdatedAt() time.Time { return b.updatedAt }

// OwnedBy reports whether userID owns this birthday.
func (b *Birthday) OwnedBy(userID string) bool {
	return b.userID == userID
}

// UpdateInfo replaces name, birth date and notes and bumps UpdatedAt to now.
// Callers validate the inputs.
func (b *Birthday) UpdateInfo(name string, birthDate BirthDate, notes *string, now time.Time) {
	b.name = name
	b.birthDate = birthDate
	b.notes = copyPtr(notes)
	b.updatedAt = stamp(now)
}

// UpdateReminder sets the reminder offset and bumps UpdatedAt to now.
// Returns ErrValidation if days is out of range; the birthday is left untouched.
func (b *Birthday) UpdateReminder(days int, now time.Time) error {
	if err := ValidateReminderDays(days); err != nil {
		return err
	}
	b.reminderDays = &days
	b.updatedAt = stamp(now)
	return nil
}

// ValidateReminderDays returns ErrValidation unless 0 <= days <= MaxReminderDays.
func ValidateReminderDays(days int) error {
	switch {
	case days < 0:
		return fmt.Errorf("%w: reminder days must not be negative", ErrValidation)
	case days > MaxReminderDays:
		return fmt.Errorf("%w: reminder days must not exceed %d", ErrValidation, MaxReminderDays)
	}
	return nil
}

// stamp normalises a timestamp to the precision of the wire representation
// so that a round trip through BirthdayRecord is lossless.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
