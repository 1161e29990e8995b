package handler

import (
	"bytes"
	"encoding/json"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/birthdays/internal/domain"
)

// Wire types for the JSON API. They mirror the schemas in spec/openapi.yaml.

// Birthday is the response representation of a birthday.
type Birthday = domain.BirthdayRecord

// CreateBirthdayRequest is the body of POST /birthdays.
type CreateBirthdayRequest struct {
	Name         string  `json:"name"`
	BirthDate    string  `json:"birthDate"`
	Notes        *string `json:"notes,omitempty"`
	ReminderDays *int    `json:"reminderDays,omitempty"`
}

// UpdateBirthdayRequest is the body of PUT /birthdays/{id}.
// Every field is optional; omitted fields are left unchanged.
// "notes": null and "notes": "" both clear the notes.
type UpdateBirthdayRequest struct {
	Name         *string          `json:"name,omitempty"`
	BirthDate    *string          `json:"birthDate,omitempty"`
	Notes        Optional[string] `json:"notes"`
	ReminderDays *int             `json:"reminderDays,omitempty"`
}

// Optional distinguishes a JSON field that was omitted from one explicitly set
// to null. Set is true whenever the key was present.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only invoked when the key is present, null included.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Pagination describes the window returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// BirthdayList is the body of GET /birthdays.
type BirthdayList struct {
	Data       []Birthday `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ExportRow is one element of the JSON export.
type ExportRow struct {
	ID                      string             `json:"id"`
	Name                    string             `json:"name"`
	BirthDate               openapi_types.Date `json:"birthDate"`
	Notes                   *string            `json:"notes,omitempty"`
	ReminderDays            *int               `json:"reminderDays,omitempty"`
	Age                     int                `json:"age"`
	NextOccurrence          openapi_types.Date `json:"nextOccurrence"`
	DaysUntilNextOccurrence int                `json:"daysUntilNextOccurrence"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the envelope for every error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
