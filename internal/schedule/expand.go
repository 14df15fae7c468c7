// Package schedule turns a flat list of possibly multi-day events into
// per-day occurrences, sorted chronologically and bucketed by civil date.
//
// Everything here is pure: no I/O, no logging and no reads of the wall
// clock. Callers pass the display zone and, where needed, the current time.
package schedule

import (
	"fmt"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/model"
)

// DefaultStartTime is used for days without a schedule entry.
const DefaultStartTime = "00:00"

// Expand produces one occurrence per covered day of every event, in input
// order. Events with TotalDays <= 0 produce no occurrences. Output order is
// not chronological; see Sort and GroupByDay.
//
// StartDate must be parseable by zone; a malformed value aborts the whole
// expansion with an error naming the event.
func Expand(events []model.Event, zone civil.Zone) ([]model.Occurrence, error) {
	total := 0
	for _, ev := range events {
		if ev.TotalDays > 0 {
			total += ev.TotalDays
		}
	}
	out := make([]model.Occurrence, 0, total)

	for _, ev := range events {
		if ev.TotalDays <= 0 {
			continue
		}
		start, err := zone.ParseDate(ev.StartDate)
		if err != nil {
			return nil, fmt.Errorf("schedule: event %q: %w", ev.EventName, err)
		}
		for i := 0; i < ev.TotalDays; i++ {
			out = append(out, occurrence(ev, i, zone.AddDays(start, i), zone))
		}
	}
	return out, nil
}

func occurrence(ev model.Event, i int, day time.Time, zone civil.Zone) model.Occurrence {
	occ := model.Occurrence{
		Event:       ev,
		DayIndex:    i + 1,
		CurrentDate: zone.ISO(day),
		StartTime:   DefaultStartTime,
	}
	if ds, ok := ev.Day(i); ok {
		if ds.StartTime != "" {
			occ.StartTime = ds.StartTime
		}
		occ.EndTime = ds.EndTime
	}
	return occ
}
