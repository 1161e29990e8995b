package domain

import (
	"fmt"
	"time"
)

// BirthdayRecord is the flat representation of a Birthday used both for
// persistence and for API responses. Optional fields are nil when absent.
type BirthdayRecord struct {
	ID           string  `json:"id"                     dynamodbav:"id"`
	UserID       string  `json:"userId"                 dynamodbav:"userId"`
	Name         string  `json:"name"                   dynamodbav:"name"`
	BirthDate    string  `json:"birthDate"              dynamodbav:"birthDate"`
	Notes        *string `json:"notes,omitempty"        dynamodbav:"notes,omitempty"`
	ReminderDays *int    `json:"reminderDays,omitempty" dynamodbav:"reminderDays,omitempty"`
	CreatedAt    string  `json:"createdAt"              dynamodbav:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"              dynamodbav:"updatedAt"`
}

// Record returns the wire representation of b.
func (b *Birthday) Record() BirthdayRecord {
	return BirthdayRecord{
		ID:           b.id.String(),
		UserID:       b.userID,
		Name:         b.name,
		BirthDate:    b.birthDate.String(),
		Notes:        copyPtr(b.notes),
		ReminderDays: copyPtr(b.reminderDays),
		CreatedAt:    b.createdAt.Format(TimestampLayout),
		UpdatedAt:    b.updatedAt.Format(TimestampLayout),
	}
}

// FromRecord rebuilds a Birthday from its wire representation.
// Unlike NewBirthday it preserves the stored timestamps.
// Returns ErrValidation if the record is malformed.
func FromRecord(r BirthdayRecord) (*Birthday, error) {
	id, err := NewBirthdayID(r.ID)
	if err != nil {
		return nil, err
	}
	birthDate, err := ParseBirthDate(r.BirthDate)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTimestamp("createdAt", r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTimestamp("updatedAt", r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.ReminderDays != nil {
		if err := ValidateReminderDays(*r.ReminderDays); err != nil {
			return nil, err
		}
	}

	return &Birthday{
		id:           id,
		userID:       r.UserID,
		name:         r.Name,
		birthDate:    birthDate,
		notes:        copyPtr(r.Notes),
		reminderDays: copyPtr(r.ReminderDays),
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func parseTimestamp(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q", ErrValidation, field, s)
	}
	return stamp(t), nil
}
