package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayschedule/internal/civil"
	appLog "dayschedule/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT. Recurrence
// expansion and conversion into schedule events operate on this type.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	URL         string

	// Start/End are in the event's own timezone, or in the display zone for
	// floating and all-day values.
	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if present
	IsOverride bool       // true if this VEVENT overrides one recurring instance
}

// ParseICS parses a single ICS payload. Values without TZID or UTC marker
// are read as wall-clock time in zone. Broken VEVENTs are logged and
// skipped; the rest of the calendar is still returned.
func ParseICS(src Source, body []byte, zone civil.Zone) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp, zone)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, zone civil.Zone) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		out.URL = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, fmt.Errorf("DTSTART: %w", err)
		}
		out.Start = dateIn(start, zone)

		// DTEND of an all-day event is exclusive; a missing one means one day.
		if end, err := ve.GetAllDayEndAt(); err == nil {
			out.End = dateIn(end, zone)
		} else {
			out.End = zone.AddDays(out.Start, 1)
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("DTSTART: %w", err)
		}
		out.Start = floatingIn(start, dtStart, zone)

		if end, err := ve.GetEndAt(); err == nil {
			out.End = floatingIn(end, ve.GetProperty(ical.ComponentPropertyDtEnd), zone)
		} else {
			out.End = out.Start
		}
	}
	if out.End.Before(out.Start) {
		return out, fmt.Errorf("DTEND %s before DTSTART %s", out.End.Format(time.RFC3339), out.Start.Format(time.RFC3339))
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE can appear multiple times, each with a comma separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, tzidLocation(p, zone)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(ical.ComponentPropertyRecurrenceId); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, tzidLocation(ridProp, zone)); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a value without a time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func hasTZID(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	tz, ok := p.ICalParameters["TZID"]
	return ok && len(tz) > 0
}

func tzidLocation(p *ical.IANAProperty, zone civil.Zone) *time.Location {
	if hasTZID(p) {
		if loc, err := time.LoadLocation(p.ICalParameters["TZID"][0]); err == nil {
			return loc
		}
	}
	return zone.Location()
}

// dateIn keeps the calendar fields of t and places them at midnight in zone.
func dateIn(t time.Time, zone civil.Zone) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, zone.Location())
}

// floatingIn re-reads wall-clock values that the parser placed in
// time.Local (no TZID, no Z suffix) as wall-clock values of zone.
func floatingIn(t time.Time, p *ical.IANAProperty, zone civil.Zone) time.Time {
	if hasTZID(p) || t.Location() == time.UTC {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, zone.Location())
}

// parseICSTime parses a basic ICS DATE or DATE-TIME value. Values without a
// Z suffix are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
