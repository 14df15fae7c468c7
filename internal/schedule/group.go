package schedule

import (
	"fmt"
	"slices"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/model"
)

// AnchorPrefix prefixes the in-page anchor of every day group.
const AnchorPrefix = "date-"

// DayGroup holds the occurrences of one civil date in chronological order.
type DayGroup struct {
	// Key is the date part of the members' CurrentDate ("YYYY-MM-DD").
	Key         string
	Occurrences []model.Occurrence
}

// Anchor returns the stable navigation identifier of the group.
func (g DayGroup) Anchor() string {
	return Anchor(g.Key)
}

// Anchor returns "date-<key>".
func Anchor(dateKey string) string {
	return AnchorPrefix + dateKey
}

// StartsAt returns the instant an occurrence begins: its civil date
// combined with StartTime (empty meaning DefaultStartTime) in zone.
func StartsAt(occ model.Occurrence, zone civil.Zone) (time.Time, error) {
	start := occ.StartTime
	if start == "" {
		start = DefaultStartTime
	}
	return zone.At(occ.DateKey(), start)
}

// Sort returns a copy of occs ordered by start instant. Occurrences with
// equal instants keep their input order, which for Expand output means
// event order and then day order.
func Sort(occs []model.Occurrence, zone civil.Zone) ([]model.Occurrence, error) {
	type keyed struct {
		at  time.Time
		occ model.Occurrence
	}
	ks := make([]keyed, len(occs))
	for i, occ := range occs {
		at, err := StartsAt(occ, zone)
		if err != nil {
			return nil, fmt.Errorf("schedule: occurrence %q day %d: %w", occ.EventName, occ.DayIndex, err)
		}
		ks[i] = keyed{at: at, occ: occ}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		return a.at.Compare(b.at)
	})

	out := make([]model.Occurrence, len(ks))
	for i, k := range ks {
		out[i] = k.occ
	}
	return out, nil
}

// GroupByDay sorts occs and partitions them by date key. Groups appear in
// the order their first member appears in the sorted sequence, and members
// keep their sorted order.
func GroupByDay(occs []model.Occurrence, zone civil.Zone) ([]DayGroup, error) {
	sorted, err := Sort(occs, zone)
	if err != nil {
		return nil, err
	}

	groups := make([]DayGroup, 0)
	index := make(map[string]int)
	for _, occ := range sorted {
		key := occ.DateKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Key: key})
		}
		groups[i].Occurrences = append(groups[i].Occurrences, occ)
	}
	return groups, nil
}

// Build expands events and groups the result by day.
func Build(events []model.Event, zone civil.Zone) ([]DayGroup, error) {
	occs, err := Expand(events, zone)
	if err != nil {
		return nil, err
	}
	return GroupByDay(occs, zone)
}
