package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/clock"
	"dayschedule/internal/config"
	"dayschedule/internal/events"
	appLog "dayschedule/internal/log"
	"dayschedule/internal/model"
	"dayschedule/internal/schedule"
	"dayschedule/internal/view"
)

// Server serves the schedule page and its JSON API.
type Server struct {
	cfg      *config.Config
	zone     civil.Zone
	store    *events.Store
	clock    clock.Clock
	renderer view.ItemRenderer
	mux      *http.ServeMux

	// groupsCache keeps the last grouping keyed by the store's load time;
	// only the today highlight changes between reloads.
	groupsMu    sync.Mutex
	groupsCache *groupsCache
}

type groupsCache struct {
	loadedAt time.Time
	groups   []schedule.DayGroup
}

// NewServer constructs a new Server. clk supplies the "now" used for the
// today highlight, typically a *clock.Ticker.
func NewServer(cfg *config.Config, zone civil.Zone, store *events.Store, clk clock.Clock) *Server {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Server{
		cfg:      cfg,
		zone:     zone,
		store:    store,
		clock:    clk,
		renderer: view.DefaultRenderer,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /agenda.txt", s.handleAgenda)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with both
// a username and a password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Schedule", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// groups returns the day groups of the current store snapshot, rebuilding
// them only after a reload.
func (s *Server) groups() ([]schedule.DayGroup, error) {
	evs, loadedAt := s.store.Events()

	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	if gc := s.groupsCache; gc != nil && gc.loadedAt.Equal(loadedAt) {
		return gc.groups, nil
	}
	groups, err := schedule.Build(evs, s.zone)
	if err != nil {
		return nil, err
	}
	s.groupsCache = &groupsCache{loadedAt: loadedAt, groups: groups}
	return groups, nil
}

func (s *Server) page() (view.Page, error) {
	groups, err := s.groups()
	if err != nil {
		return view.Page{}, err
	}
	return view.Compose(groups, s.clock.Now(), s.zone, s.renderer)
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	page, err := s.page()
	if err != nil {
		appLog.Error("schedule page build failed", err)
		http.Error(w, "failed to build schedule", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := view.WriteHTML(&buf, page); err != nil {
		appLog.Error("schedule page render failed", err)
		http.Error(w, "failed to render schedule", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleAgenda(w http.ResponseWriter, _ *http.Request) {
	page, err := s.page()
	if err != nil {
		appLog.Error("agenda build failed", err)
		http.Error(w, "failed to build schedule", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := view.WriteAgenda(&buf, page, false); err != nil {
		http.Error(w, "failed to render agenda", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// daysResponse is the JSON response shape for /api/days.
type daysResponse struct {
	Now      time.Time `json:"now"`
	Timezone string    `json:"timezone"`
	Nav      []navDTO  `json:"nav"`
	Days     []dayDTO  `json:"days"`
}

type navDTO struct {
	Date    string `json:"date"`
	Anchor  string `json:"anchor"`
	Day     string `json:"day"`
	Weekday string `json:"weekday"`
	Today   bool   `json:"today"`
}

type dayDTO struct {
	Date        string          `json:"date"`
	Anchor      string          `json:"anchor"`
	Heading     string          `json:"heading"`
	Today       bool            `json:"today"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type occurrenceDTO struct {
	model.Occurrence
	Rollover      bool   `json:"rollover"`
	EffectiveDate string `json:"effectiveDate"`
}

// handleDays returns the grouped schedule: the navigation rail followed by
// one entry per day in chronological order.
func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	page, err := s.page()
	if err != nil {
		appLog.Error("api days: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build schedule")
		return
	}

	resp := daysResponse{
		Now:      page.Now,
		Timezone: page.Zone,
		Nav:      make([]navDTO, 0, len(page.Nav)),
		Days:     make([]dayDTO, 0, len(page.Sections)),
	}
	for _, n := range page.Nav {
		resp.Nav = append(resp.Nav, navDTO{Date: n.Key, Anchor: n.Anchor, Day: n.Day, Weekday: n.Weekday, Today: n.Today})
	}
	for _, sec := range page.Sections {
		day := dayDTO{
			Date:        sec.Key,
			Anchor:      sec.Anchor,
			Heading:     sec.Heading,
			Today:       sec.Today,
			Occurrences: make([]occurrenceDTO, 0, len(sec.Items)),
		}
		for _, it := range sec.Items {
			day.Occurrences = append(day.Occurrences, occurrenceDTO{
				Occurrence:    it.Occurrence,
				Rollover:      it.Rollover,
				EffectiveDate: it.EffectiveDate,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	writeJSON(w, http.StatusOK, resp)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events   []model.Event `json:"events"`
	LoadedAt time.Time     `json:"loadedAt"`
	Timezone string        `json:"timezone"`
}

// handleEvents returns the raw event list as loaded from the sources.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	evs, loadedAt := s.store.Events()
	if evs == nil {
		evs = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:   evs,
		LoadedAt: loadedAt,
		Timezone: s.zone.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
