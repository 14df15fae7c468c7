package civil

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) Zone {
	t.Helper()
	z, err := LoadZone(name)
	if err != nil {
		t.Fatalf("LoadZone(%q): %v", name, err)
	}
	return z
}

func TestParse(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	tests := []struct {
		in   string
		want string
	}{
		{"2024-06-20", "2024-06-20T00:00:00+02:00"},
		{"2024-06-20T18:30", "2024-06-20T18:30:00+02:00"},
		{"2024-06-20T18:30:15", "2024-06-20T18:30:15+02:00"},
		{"2024-06-20T22:00:00Z", "2024-06-21T00:00:00+02:00"},
		{"2024-01-05T09:00:00+01:00", "2024-01-05T09:00:00+01:00"},
	}
	for _, tt := range tests {
		got, err := z.Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if s := z.ISO(got); s != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, s, tt.want)
		}
	}

	for _, bad := range []string{"", "20.06.2024", "tomorrow"} {
		if _, err := z.Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestAddDaysAcrossDST(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	start, err := z.ParseDate("2024-03-30")
	if err != nil {
		t.Fatal(err)
	}
	got := z.AddDays(start, 2)
	if z.ISO(got) != "2024-04-01T00:00:00+02:00" {
		t.Fatalf("AddDays = %s", z.ISO(got))
	}
	// 48 elapsed hours would land at 01:00 on April 1st.
	if z.DateKey(start.Add(48*time.Hour)) != "2024-04-01" || start.Add(48*time.Hour).In(z.Location()).Hour() != 1 {
		t.Fatal("sanity check on duration arithmetic failed")
	}
}

func TestAt(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	got, err := z.At("2024-12-31", "23:59")
	if err != nil {
		t.Fatal(err)
	}
	if z.ISO(got) != "2024-12-31T23:59:00+01:00" {
		t.Fatalf("At = %s", z.ISO(got))
	}
	if _, err := z.At("2024-12-31", "noon"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSameDay(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	a := time.Date(2024, 6, 20, 22, 30, 0, 0, time.UTC)
	b := time.Date(2024, 6, 21, 12, 0, 0, 0, z.Location())
	if !z.SameDay(a, b) {
		t.Fatal("expected same civil day in Berlin")
	}
	if In(time.UTC).SameDay(a, b) {
		t.Fatal("expected different days in UTC")
	}
}

func TestLabels(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	d, _ := z.ParseDate("2024-06-03")
	if got := z.DayNumber(d); got != "3" {
		t.Errorf("DayNumber = %q", got)
	}
	if got := z.WeekdayShort(d); got != "Mon" {
		t.Errorf("WeekdayShort = %q", got)
	}
	if got := z.Heading(d); got != "Monday, June 3" {
		t.Errorf("Heading = %q", got)
	}
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"03:00", 3, false},
		{"23:59", 23, false},
		{"7:15", 7, false},
		{"24:00", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHour(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHour(%q) err=%v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHour(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	z := mustZone(t, "Europe/Berlin")
	a, _ := z.ParseDate("2024-03-30")
	b, _ := z.ParseDate("2024-04-02")
	if got := z.DaysBetween(a, b); got != 3 {
		t.Fatalf("DaysBetween = %d, want 3", got)
	}
	if got := z.DaysBetween(b, a); got != -3 {
		t.Fatalf("DaysBetween reversed = %d, want -3", got)
	}
}
