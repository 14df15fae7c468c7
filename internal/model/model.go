package model

import "strings"

// DaySchedule is the time window of one day of a multi-day event.
// Both fields are "HH:MM" wall-clock strings in the display timezone and
// may be empty.
type DaySchedule struct {
	StartTime string `yaml:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime   string `yaml:"endTime,omitempty" json:"endTime,omitempty"`
}

// Event represents a possibly multi-day entry of the schedule as supplied by
// an event source (YAML file, ICS feed).
type Event struct {
	EventName string `yaml:"eventName" json:"eventName"`

	// StartDate is the first civil day of the event, either "2006-01-02" or a
	// full ISO date-time; only its date part in the display timezone matters.
	StartDate string `yaml:"startDate" json:"startDate"`

	// TotalDays is the number of consecutive civil days the event covers.
	TotalDays int `yaml:"totalDays" json:"totalDays"`

	// DailySchedule is indexed 0..TotalDays-1. Missing entries are allowed.
	DailySchedule []DaySchedule `yaml:"dailySchedule,omitempty" json:"dailySchedule,omitempty"`

	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`

	// SourceID names the event source this event was loaded from.
	SourceID string `yaml:"-" json:"sourceId,omitempty"`
}

// Day returns the schedule entry for the zero-based day index, reporting
// false when the event has no entry for it.
func (e Event) Day(i int) (DaySchedule, bool) {
	if i < 0 || i >= len(e.DailySchedule) {
		return DaySchedule{}, false
	}
	return e.DailySchedule[i], true
}

// Occurrence is one day of an Event after expansion.
type Occurrence struct {
	Event

	// DayIndex is the 1-based position within the event's span.
	DayIndex int `json:"dayIndex"`

	// CurrentDate is local midnight of this day as an ISO-8601 string with
	// the display zone offset, e.g. "2024-06-21T00:00:00+02:00".
	CurrentDate string `json:"currentDate"`

	// StartTime defaults to "00:00"; EndTime stays empty when not given.
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DateKey returns the date part ("YYYY-MM-DD") of CurrentDate.
func (o Occurrence) DateKey() string {
	if i := strings.IndexByte(o.CurrentDate, 'T'); i >= 0 {
		return o.CurrentDate[:i]
	}
	return o.CurrentDate
}
