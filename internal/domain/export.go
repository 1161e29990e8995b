package domain

import "time"

// ExportRow is a single row in a user's birthday export.
// Derived fields (Age, NextOccurrence, DaysUntil) are evaluated against the
// same instant for every row of one export.
type ExportRow struct {
	ID           string
	Name         string
	BirthDate    time.Time // midnight UTC
	Notes        string    // empty when absent
	ReminderDays *int

	Age            int
	NextOccurrence time.Time // midnight UTC
	DaysUntil      int
}
