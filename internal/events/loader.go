package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/config"
	"dayschedule/internal/ics"
	appLog "dayschedule/internal/log"
	"dayschedule/internal/model"
)

// Loader collects events from all configured sources.
type Loader struct {
	Files   []string
	Feeds   []ics.Source
	Fetcher *ics.Fetcher
	Zone    civil.Zone

	// HorizonDays bounds how far ahead recurring ICS events are expanded.
	// Expansion starts one day before now.
	HorizonDays int
}

// NewLoader builds a Loader from the application config.
func NewLoader(cfg *config.Config, zone civil.Zone) *Loader {
	feeds := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		feeds = append(feeds, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	return &Loader{
		Files:       cfg.EventsFiles,
		Feeds:       feeds,
		Fetcher:     ics.NewFetcher(cfg.CacheDir, nil),
		Zone:        zone,
		HorizonDays: cfg.HorizonDays,
	}
}

// Load reads every file and feed, in that order. A failing source is logged
// and skipped; the events of the other sources are still returned together
// with the joined error.
func (l *Loader) Load(ctx context.Context, now time.Time) ([]model.Event, error) {
	var (
		out  []model.Event
		errs []error
	)

	for _, path := range l.Files {
		evs, err := LoadFile(path)
		if err != nil {
			appLog.Error("event file load failed", err, "path", path)
			errs = append(errs, err)
			continue
		}
		appLog.Debug("event file loaded", "path", path, "event_count", len(evs))
		out = append(out, evs...)
	}

	if len(l.Feeds) > 0 && l.Fetcher != nil {
		evs, err := l.loadFeeds(ctx, now)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, evs...)
	}

	appLog.Info("events loaded", "event_count", len(out), "files", len(l.Files), "feeds", len(l.Feeds), "errors", len(errs))
	return out, errors.Join(errs...)
}

func (l *Loader) loadFeeds(ctx context.Context, now time.Time) ([]model.Event, error) {
	results, fetchErr := l.Fetcher.FetchAll(ctx, l.Feeds)

	var parsed []ics.ParsedEvent
	var errs []error
	if fetchErr != nil {
		errs = append(errs, fetchErr)
	}
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body, l.Zone)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, evs...)
	}

	horizon := l.HorizonDays
	if horizon <= 0 {
		horizon = config.DefaultHorizonDays
	}
	today := l.Zone.Midnight(now)
	res, err := ics.ToEvents(parsed, ics.ExpandConfig{
		Zone:       l.Zone,
		RangeStart: l.Zone.AddDays(today, -1),
		RangeEnd:   l.Zone.AddDays(today, horizon),
	})
	if err != nil {
		return nil, fmt.Errorf("events: expand feeds: %w", err)
	}
	return res.Events, errors.Join(errs...)
}

// Store holds the latest loaded event list for concurrent readers.
type Store struct {
	mu       sync.RWMutex
	events   []model.Event
	loadedAt time.Time
}

// NewStore returns a Store seeded with events.
func NewStore(events []model.Event, loadedAt time.Time) *Store {
	return &Store{events: events, loadedAt: loadedAt}
}

// Set replaces the snapshot.
func (s *Store) Set(events []model.Event, loadedAt time.Time) {
	s.mu.Lock()
	s.events = events
	s.loadedAt = loadedAt
	s.mu.Unlock()
}

// Events returns the current snapshot. Callers must not modify it.
func (s *Store) Events() ([]model.Event, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events, s.loadedAt
}

// Reload loads from l and replaces the snapshot unless nothing at all
// could be loaded while the previous snapshot had events.
func (s *Store) Reload(ctx context.Context, l *Loader, now time.Time) error {
	evs, err := l.Load(ctx, now)
	if err != nil && len(evs) == 0 {
		if prev, _ := s.Events(); len(prev) > 0 {
			appLog.Error("event reload failed; keeping previous snapshot", err, "event_count", len(prev))
			return err
		}
	}
	s.Set(evs, now)
	return err
}
