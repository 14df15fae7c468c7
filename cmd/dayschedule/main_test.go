package main

import (
	"bytes"
	"context"
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

func berlin(t *testing.T) civil.Zone {
	t.Helper()
	zone, err := civil.LoadZone("Europe/Berlin")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return zone
}

func TestWriteAgendaFollowsClock(t *testing.T) {
	zone := berlin(t)
	store := events.NewStore([]model.Event{{
		EventName:     "Standup",
		StartDate:     "2024-06-20",
		TotalDays:     2,
		DailySchedule: []model.DaySchedule{{StartTime: "09:00", EndTime: "09:15"}},
	}}, time.Time{})

	tests := []struct {
		name  string
		now   time.Time
		today string
	}{
		{"first day", time.Date(2024, 6, 20, 8, 0, 0, 0, zone.Location()), "Thursday, June 20 (today)"},
		{"second day", time.Date(2024, 6, 21, 8, 0, 0, 0, zone.Location()), "Friday, June 21 (today)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeAgenda(&buf, store, zone, clock.Fixed(tt.now), false); err != nil {
				t.Fatalf("writeAgenda: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.today) {
				t.Fatalf("missing %q in:\n%s", tt.today, out)
			}
			if strings.Count(out, "(today)") != 1 {
				t.Fatalf("expected one today heading:\n%s", out)
			}
		})
	}
}

func TestCaptureOptionsAnchor(t *testing.T) {
	zone := berlin(t)
	conf := config.DefaultConfig()
	conf.Capture.OutputPath = "/tmp/schedule.png"

	// 23:30 UTC is already the next day in Berlin.
	now := time.Date(2024, 6, 20, 23, 30, 0, 0, time.UTC)
	opts := captureOptions(conf, zone, now)
	if opts.Anchor != "date-2024-06-21" {
		t.Fatalf("anchor = %q", opts.Anchor)
	}
	if opts.URL != "http://"+conf.Listen+"/" {
		t.Fatalf("url = %q", opts.URL)
	}
}

func TestServeRejectsBadSchedules(t *testing.T) {
	zone := berlin(t)

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"clock refresh", func(c *config.Config) { c.ClockRefresh = "every now and then" }},
		{"reload cron", func(c *config.Config) { c.RefreshCron = "not a cron line" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := config.DefaultConfig()
			conf.Listen = "127.0.0.1:0"
			conf.CacheDir = t.TempDir()
			tt.mutate(conf)

			store := events.NewStore(nil, time.Time{})
			clk := clock.Fixed(time.Date(2024, 6, 20, 12, 0, 0, 0, zone.Location()))
			err := serve(context.Background(), conf, zone, events.NewLoader(conf, zone), store, clk)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunOnceNeedsOutput(t *testing.T) {
	zone := berlin(t)
	conf := config.DefaultConfig()
	conf.Capture.OutputPath = ""

	err := runOnce(context.Background(), conf, zone, events.NewStore(nil, time.Time{}), clock.System{})
	if err == nil || !strings.Contains(err.Error(), "capture.output") {
		t.Fatalf("err = %v", err)
	}
}

func TestWaitHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := waitHealthy(context.Background(), srv.URL+"/health"); err != nil {
		t.Fatalf("healthy server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitHealthy(ctx, srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for canceled wait")
	}
}
