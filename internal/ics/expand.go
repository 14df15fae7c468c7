package ics

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"dayschedule/internal/civil"
	appLog "dayschedule/internal/log"
	"dayschedule/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	// nightEndHour: a timed event ending before this hour on a later day is
	// shown as ending late on the previous day.
	nightEndHour = 6
)

// ExpandConfig controls recurrence expansion and conversion to events.
type ExpandConfig struct {
	// Zone is the display zone; every resulting event is expressed in it.
	Zone civil.Zone

	// RangeStart / RangeEnd bound which instances are produced (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps RRULE expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the produced events and the UIDs hit by the cap.
type ExpandResult struct {
	Events          []model.Event
	TruncatedEvents []string
}

// instance is one concrete start/end of a parsed event.
type instance struct {
	ev    ParsedEvent
	start time.Time
	end   time.Time
}

// ToEvents expands parsed VEVENTs into schedule events within the
// configured range:
//
//   - single events become one model.Event
//   - RRULE events become one model.Event per instance, minus EXDATEs
//   - RECURRENCE-ID overrides replace the matching instance
//
// Output is ordered by UID, then instance start.
func ToEvents(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]model.Event, 0)
	for _, uid := range slices.Sorted(maps.Keys(baseByUID)) {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			insts, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			for _, in := range insts {
				out = append(out, toEvent(in, cfg.Zone))
			}
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("ics: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = out
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]instance, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []instance {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []instance{applyOverride(ev, overrides, ev.Start, ev.End)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]instance, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event length so an instance that started
	// before the range but is still running is kept.
	dur := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(rangeStart, rangeEnd, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]instance, 0, len(starts))
	for _, start := range starts {
		var end time.Time
		if ev.AllDay {
			days := cfg.Zone.DaysBetween(ev.Start, ev.End)
			start = cfg.Zone.Midnight(start)
			end = cfg.Zone.AddDays(start, days)
		} else {
			end = start.Add(dur)
		}
		out = append(out, applyOverride(ev, overrides, start, end))
	}
	return out, hitCap
}

// applyOverride swaps in an override whose RECURRENCE-ID equals start.
func applyOverride(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time) instance {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(start) {
			return instance{ev: ov, start: ov.Start, end: ov.End}
		}
	}
	return instance{ev: ev, start: start, end: end}
}

// toEvent maps one instance onto the day-based event shape. Timed instances
// get the start time on their first day and the end time on their last day;
// an end before 06:00 on a later day stays with the previous day's night.
func toEvent(in instance, zone civil.Zone) model.Event {
	start := in.start.In(zone.Location())
	end := in.end.In(zone.Location())

	ev := model.Event{
		EventName:   in.ev.Summary,
		StartDate:   zone.DateKey(start),
		Location:    in.ev.Location,
		Description: in.ev.Description,
		URL:         in.ev.URL,
		SourceID:    in.ev.Source.ID,
	}

	if in.ev.AllDay {
		// DTEND is exclusive.
		ev.TotalDays = max(zone.DaysBetween(start, end), 1)
		return ev
	}

	lastDay := zone.Midnight(end)
	if !zone.SameDay(start, end) && end.Hour() < nightEndHour {
		lastDay = zone.AddDays(lastDay, -1)
	}
	ev.TotalDays = max(zone.DaysBetween(start, lastDay)+1, 1)

	ev.DailySchedule = make([]model.DaySchedule, ev.TotalDays)
	ev.DailySchedule[0].StartTime = start.Format(civil.ClockLayout)
	if end.After(start) {
		ev.DailySchedule[ev.TotalDays-1].EndTime = end.Format(civil.ClockLayout)
	}
	return ev
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
