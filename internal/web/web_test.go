package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/clock"
	"dayschedule/internal/config"
	"dayschedule/internal/events"
	"dayschedule/internal/model"
)

func newTestServer(t *testing.T, cfg *config.Config, evs []model.Event) (*Server, *events.Store) {
	t.Helper()
	zone, err := civil.LoadZone("Europe/Berlin")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	store := events.NewStore(evs, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	now := clock.Fixed(time.Date(2024, 6, 21, 9, 0, 0, 0, zone.Location()))
	return NewServer(cfg, zone, store, now), store
}

func testEvents() []model.Event {
	return []model.Event{
		{
			EventName: "Fest",
			StartDate: "2024-06-20",
			TotalDays: 2,
			DailySchedule: []model.DaySchedule{
				{StartTime: "18:00", EndTime: "23:00"},
				{StartTime: "10:00", EndTime: "02:00"},
			},
		},
		{
			EventName:     "Breakfast",
			StartDate:     "2024-06-21",
			TotalDays:     1,
			DailySchedule: []model.DaySchedule{{StartTime: "08:00", EndTime: "09:30"}},
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
}

func TestDaysAPI(t *testing.T) {
	s, _ := newTestServer(t, nil, testEvents())
	rec := get(t, s.Handler(), "/api/days")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Timezone string `json:"timezone"`
		Nav      []struct {
			Date   string `json:"date"`
			Anchor string `json:"anchor"`
			Today  bool   `json:"today"`
		} `json:"nav"`
		Days []struct {
			Date        string `json:"date"`
			Occurrences []struct {
				EventName     string `json:"eventName"`
				DayIndex      int    `json:"dayIndex"`
				StartTime     string `json:"startTime"`
				Rollover      bool   `json:"rollover"`
				EffectiveDate string `json:"effectiveDate"`
			} `json:"occurrences"`
		} `json:"days"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Timezone != "Europe/Berlin" {
		t.Errorf("timezone %q", resp.Timezone)
	}
	if len(resp.Nav) != 2 || resp.Nav[0].Today || !resp.Nav[1].Today || resp.Nav[1].Anchor != "date-2024-06-21" {
		t.Errorf("nav: %+v", resp.Nav)
	}
	if len(resp.Days) != 2 || resp.Days[0].Date != "2024-06-20" {
		t.Fatalf("days: %+v", resp.Days)
	}
	second := resp.Days[1].Occurrences
	if len(second) != 2 || second[0].EventName != "Breakfast" || second[1].EventName != "Fest" {
		t.Fatalf("second day order: %+v", second)
	}
	if !second[1].Rollover || second[1].EffectiveDate != "2024-06-22" || second[1].DayIndex != 2 {
		t.Errorf("fest day 2: %+v", second[1])
	}
}

func TestPageAndAgenda(t *testing.T) {
	s, _ := newTestServer(t, nil, testEvents())

	rec := get(t, s.Handler(), "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="date-2024-06-20"`) {
		t.Fatalf("page: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q", ct)
	}

	rec = get(t, s.Handler(), "/agenda.txt")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Friday, June 21 (today)") {
		t.Fatalf("agenda: %d %s", rec.Code, rec.Body.String())
	}

	if rec := get(t, s.Handler(), "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: %d", rec.Code)
	}
}

func TestBrokenEventIsServerError(t *testing.T) {
	s, _ := newTestServer(t, nil, []model.Event{{EventName: "bad", StartDate: "soon", TotalDays: 1}})
	rec := get(t, s.Handler(), "/api/days")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGroupsRebuiltAfterReload(t *testing.T) {
	s, store := newTestServer(t, nil, testEvents())
	if _, err := s.groups(); err != nil {
		t.Fatalf("groups: %v", err)
	}

	store.Set(testEvents()[1:], time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	groups, err := s.groups()
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Key != "2024-06-21" {
		t.Fatalf("stale groups: %+v", groups)
	}
}

func TestEventsAPI(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/events")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Fatalf("events: %d %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"events", "loadedAt", "timezone"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q in %s", key, rec.Body.String())
		}
	}
	if _, ok := body["loaded_at"]; ok {
		t.Errorf("snake_case key in %s", rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "door", Password: "secret"}
	s, _ := newTestServer(t, cfg, testEvents())
	h := s.Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health should bypass auth: %d", rec.Code)
	}
	if rec := get(t, h, "/api/days"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.SetBasicAuth("door", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with credentials, got %d", rec.Code)
	}
}
