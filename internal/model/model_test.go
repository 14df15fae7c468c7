package model

import "testing"

func TestOccurrenceDateKey(t *testing.T) {
	tests := map[string]string{
		"2024-06-21T00:00:00+02:00": "2024-06-21",
		"2024-06-21":                "2024-06-21",
		"":                          "",
	}
	for in, want := range tests {
		if got := (Occurrence{CurrentDate: in}).DateKey(); got != want {
			t.Errorf("DateKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventDay(t *testing.T) {
	ev := Event{TotalDays: 3, DailySchedule: []DaySchedule{{StartTime: "10:00"}}}
	if ds, ok := ev.Day(0); !ok || ds.StartTime != "10:00" {
		t.Errorf("Day(0) = %+v, %v", ds, ok)
	}
	for _, i := range []int{-1, 1, 2} {
		if _, ok := ev.Day(i); ok {
			t.Errorf("Day(%d) should be absent", i)
		}
	}
}
