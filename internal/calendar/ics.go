// Package calendar renders birthday exports as iCalendar (RFC 5545) feeds.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/pkordes/birthdays/internal/domain"
)

const (
	productID = "-//pkordes//Birthdays API//EN"
	uidDomain = "birthdays.pkordes"
)

// emptyCalendar is written when there are no rows. The encoder refuses a
// VCALENDAR without children, but clients expect a valid (empty) feed.
const emptyCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:" + productID + "\r\n" +
	"CALSCALE:GREGORIAN\r\n" +
	"END:VCALENDAR\r\n"

// Encode writes one yearly all-day event per row to w. Each event starts on
// the row's next occurrence and, when ReminderDays is set, carries a display
// alarm that many days before. now stamps every event.
func Encode(w io.Writer, rows []domain.ExportRow, now time.Time) error {
	if len(rows) == 0 {
		_, err := io.WriteString(w, emptyCalendar)
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, row := range rows {
		cal.Children = append(cal.Children, newEvent(row, stamp).Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("calendar.Encode: %w", err)
	}
	return nil
}

func newEvent(row domain.ExportRow, stamp *ical.Prop) *ical.Event {
	summary := row.Name + "'s birthday"

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, row.ID+"@"+uidDomain)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.Set(stamp)

	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetDate(row.NextOccurrence)
	event.Props.Set(start)

	// Raw value so the encoder emits no VALUE=TEXT parameter.
	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.Value = recurrenceFor(row.BirthDate)
	event.Props.Set(rule)

	if row.Notes != "" {
		event.Props.SetText(ical.PropDescription, row.Notes)
	}

	if row.ReminderDays != nil {
		event.Children = append(event.Children, newAlarm(*row.ReminderDays, summary))
	}
	return event
}

func newAlarm(days int, description string) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, description)

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = triggerFor(days)
	alarm.Props.Set(trigger)
	return alarm
}

// recurrenceFor returns the yearly RRULE for a birth date. A 29 February
// date recurs on day 60 of the year: 29 February in leap years and 1 March
// otherwise, matching domain.BirthDate.NextOccurrence.
func recurrenceFor(birthDate time.Time) string {
	if birthDate.Month() == time.February && birthDate.Day() == 29 {
		return "FREQ=YEARLY;BYYEARDAY=60"
	}
	return "FREQ=YEARLY"
}

// triggerFor returns an RFC 5545 duration relative to the event start.
func triggerFor(days int) string {
	if days == 0 {
		return "PT0S"
	}
	return fmt.Sprintf("-P%dD", days)
}
