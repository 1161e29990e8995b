package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/birthdays/internal/calendar"
	"github.com/pkordes/birthdays/internal/domain"
)

// Export formats accepted by ?format=.
const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatICS  = "ics"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"id", "name", "birth_date", "notes", "reminder_days",
	"age", "next_occurrence", "days_until_next_occurrence",
}

// GetExport implements GET /birthdays/export.
// It returns every birthday the caller owns with its derived dates.
// Use ?format=csv for CSV or ?format=ics for an iCalendar feed; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		badRequest(w, "invalid format parameter")
		return
	}
	f := formatJSON
	if format != nil {
		f = *format
	}
	if f != formatJSON && f != formatCSV && f != formatICS {
		badRequest(w, "format must be one of json, csv, ics")
		return
	}

	rows, err := s.export.Export(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	switch f {
	case formatCSV:
		s.writeCSV(w, rows)
	case formatICS:
		s.writeICS(w, r, rows)
	default:
		writeJSON(w, http.StatusOK, buildJSONRows(rows))
	}
}

// buildJSONRows converts domain rows to the JSON response type.
func buildJSONRows(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		row := ExportRow{
			ID:                      r.ID,
			Name:                    r.Name,
			BirthDate:               openapi_types.Date{Time: r.BirthDate},
			ReminderDays:            r.ReminderDays,
			Age:                     r.Age,
			NextOccurrence:          openapi_types.Date{Time: r.NextOccurrence},
			DaysUntilNextOccurrence: r.DaysUntil,
		}
		if r.Notes != "" {
			row.Notes = &r.Notes
		}
		out = append(out, row)
	}
	return out
}

// writeCSV encodes rows as CSV with a header line.
func (s *Server) writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never fails
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="birthdays.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	buf.WriteTo(w)
}

// writeICS encodes rows as an iCalendar feed. Encoding happens into a buffer
// first so a failure can still be reported as a 500.
func (s *Server) writeICS(w http.ResponseWriter, r *http.Request, rows []domain.ExportRow) {
	var buf bytes.Buffer
	if err := calendar.Encode(&buf, rows, s.clock.Now()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="birthdays.ics"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	buf.WriteTo(w)
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// An absent reminder is encoded as an empty string.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	reminder := ""
	if r.ReminderDays != nil {
		reminder = strconv.Itoa(*r.ReminderDays)
	}
	return []string{
		r.ID,
		r.Name,
		r.BirthDate.Format("2006-01-02"),
		r.Notes,
		reminder,
		strconv.Itoa(r.Age),
		r.NextOccurrence.Format("2006-01-02"),
		strconv.Itoa(r.DaysUntil),
	}
}
