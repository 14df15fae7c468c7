// Package civil implements calendar arithmetic in one fixed display
// timezone. Days are added on the civil calendar (year/month/day fields),
// never as multiples of 24 hours, so DST shifts cannot skip or repeat a date.
package civil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// KeyLayout is the layout of date keys ("YYYY-MM-DD").
	KeyLayout = "2006-01-02"
	// ClockLayout is the layout of "HH:MM" wall-clock strings.
	ClockLayout = "15:04"
)

// dateTimeLayouts are tried in order for zone-less date-time strings.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	KeyLayout,
}

// Zone is a fixed civil timezone.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA timezone name such as "Europe/Berlin".
func LoadZone(name string) (Zone, error) {
	if name == "" {
		return Zone{}, errors.New("civil: timezone name is empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("civil: load timezone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// In wraps an existing location. A nil location means UTC.
func In(loc *time.Location) Zone {
	if loc == nil {
		loc = time.UTC
	}
	return Zone{loc: loc}
}

// Location returns the underlying *time.Location.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) String() string {
	return z.Location().String()
}

// FromEpoch converts a Unix millisecond timestamp into the zone.
func (z Zone) FromEpoch(ms int64) time.Time {
	return time.UnixMilli(ms).In(z.Location())
}

// Parse reads an ISO date or date-time string. Strings carrying an offset
// (RFC 3339) are converted into the zone; zone-less strings are read as
// wall-clock time of the zone.
func (z Zone) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("civil: empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(z.Location()), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, z.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("civil: unrecognized date %q", s)
}

// ParseDate reads s like Parse and truncates the result to local midnight.
func (z Zone) ParseDate(s string) (time.Time, error) {
	t, err := z.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return z.Midnight(t), nil
}

// At combines a date key and an "HH:MM" wall-clock time into an instant.
func (z Zone) At(dateKey, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout+"T"+ClockLayout, dateKey+"T"+hhmm, z.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("civil: bad date/time %q %q: %w", dateKey, hhmm, err)
	}
	return t, nil
}

// Midnight returns 00:00 of t's civil day in the zone.
func (z Zone) Midnight(t time.Time) time.Time {
	y, m, d := t.In(z.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, z.Location())
}

// AddDays moves t by n civil days, keeping its wall-clock time.
func (z Zone) AddDays(t time.Time, n int) time.Time {
	lt := t.In(z.Location())
	y, m, d := lt.Date()
	return time.Date(y, m, d+n, lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), z.Location())
}

// ISO serializes t as RFC 3339 with the zone's offset.
func (z Zone) ISO(t time.Time) string {
	return t.In(z.Location()).Format(time.RFC3339)
}

// DateKey returns the "YYYY-MM-DD" key of t's civil day.
func (z Zone) DateKey(t time.Time) string {
	return t.In(z.Location()).Format(KeyLayout)
}

// SameDay reports whether a and b fall on the same civil day.
func (z Zone) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(z.Location()).Date()
	by, bm, bd := b.In(z.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// DayNumber renders the day of month without padding ("2").
func (z Zone) DayNumber(t time.Time) string {
	return strconv.Itoa(t.In(z.Location()).Day())
}

// WeekdayShort renders the abbreviated English weekday ("Mon").
func (z Zone) WeekdayShort(t time.Time) string {
	return t.In(z.Location()).Format("Mon")
}

// Heading renders the long label used for day sections ("Monday, June 20").
func (z Zone) Heading(t time.Time) string {
	return t.In(z.Location()).Format("Monday, January 2")
}

// ParseHour returns the hour component of an "HH:MM" string.
func ParseHour(hhmm string) (int, error) {
	h, _, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("civil: bad clock time %q", hhmm)
	}
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n > 23 {
		return 0, fmt.Errorf("civil: bad hour in %q", hhmm)
	}
	return n, nil
}

// DaysBetween counts civil days from a's date to b's date (negative when b
// is earlier).
func (z Zone) DaysBetween(a, b time.Time) int {
	ay, am, ad := a.In(z.Location()).Date()
	by, bm, bd := b.In(z.Location()).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
