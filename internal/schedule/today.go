package schedule

import (
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/model"
)

const (
	// fallbackEndTime stands in for an unspecified end time when deciding
	// rollover. It is never used for sorting.
	fallbackEndTime = "23:59"

	// rolloverHour: occurrences ending before this hour belong to the
	// night before.
	rolloverHour = 6
)

// IsToday reports whether day falls on the same civil date as now.
func IsToday(zone civil.Zone, now, day time.Time) bool {
	return zone.SameDay(now, day)
}

// Rollover reports whether the occurrence ends in the small hours
// (end hour < 6, empty end meaning 23:59). An unparseable end time never
// rolls over.
func Rollover(occ model.Occurrence) bool {
	end := occ.EndTime
	if end == "" {
		end = fallbackEndTime
	}
	hour, err := civil.ParseHour(end)
	if err != nil {
		return false
	}
	return hour < rolloverHour
}

// EffectiveDate returns the civil day the occurrence is displayed next to:
// its own date, or the following day when it rolls over. The grouping key
// (DateKey) is unaffected.
func EffectiveDate(occ model.Occurrence, zone civil.Zone) (time.Time, error) {
	day, err := zone.ParseDate(occ.DateKey())
	if err != nil {
		return time.Time{}, err
	}
	if Rollover(occ) {
		day = zone.AddDays(day, 1)
	}
	return day, nil
}
