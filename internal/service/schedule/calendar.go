// internal/service/schedule/calendar.go

package schedule

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"stagemap/internal/domain/event"
)

// RenderCalendar builds an iCalendar feed with one VEVENT per stage event.
// UIDs are stable so subscribed calendars update in place.
func RenderCalendar(calendarName string, parent event.Event, stage event.Subsection, items []event.StageEvent, stamp time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(fmt.Sprintf("-//%s//stage schedule//EN", calendarName))
	cal.SetXWRCalName(fmt.Sprintf("%s: %s", parent.Title, stage.Name))

	location := stage.Name
	if parent.LocationName != "" {
		location = fmt.Sprintf("%s, %s", stage.Name, parent.LocationName)
	}

	for _, se := range items {
		ve := cal.AddEvent(fmt.Sprintf("%s@%s", se.ID, calendarName))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetCreatedTime(se.CreatedAt.UTC())
		ve.SetStartAt(se.StartTime.UTC())
		ve.SetEndAt(se.EndTime.UTC())
		ve.SetSummary(se.Title)
		ve.SetLocation(location)
		if se.Description != "" {
			ve.SetDescription(se.Description)
		}
	}

	return []byte(cal.Serialize())
}
