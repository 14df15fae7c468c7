// Package clock provides the "current time" snapshot the schedule view
// highlights against. The snapshot is refreshed on a cron schedule (every
// minute by default) instead of being read ambiently during rendering.
package clock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	appLog "dayschedule/internal/log"
)

// DefaultSpec refreshes the snapshot once a minute.
const DefaultSpec = "@every 1m"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Intended for tests.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Ticker holds a snapshot of Source.Now() that a cron job refreshes.
type Ticker struct {
	source Clock
	onTick func(time.Time)
	cron   *cron.Cron

	mu  sync.RWMutex
	now time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool
}

// NewTicker builds a stopped Ticker. spec is any robfig/cron spec
// ("@every 1m", "* * * * *"); empty means DefaultSpec. onTick, if non-nil,
// is called with every new snapshot.
func NewTicker(spec string, source Clock, onTick func(time.Time)) (*Ticker, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if source == nil {
		source = System{}
	}
	t := &Ticker{
		source: source,
		onTick: onTick,
		cron:   cron.New(),
		now:    source.Now(),
	}
	if _, err := t.cron.AddFunc(spec, t.tick); err != nil {
		return nil, fmt.Errorf("clock: bad schedule %q: %w", spec, err)
	}
	return t, nil
}

// Now returns the latest snapshot.
func (t *Ticker) Now() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.now
}

// Start begins refreshing in the background. Calling it twice, or after
// Stop, is a no-op.
func (t *Ticker) Start() {
	t.startOnce.Do(func() {
		if !t.stopped.Load() {
			t.cron.Start()
		}
	})
}

// Stop halts the schedule and waits for a running refresh to return.
// It is safe to call more than once and without a prior Start.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		<-t.cron.Stop().Done()
	})
}

// Run starts the ticker and blocks until ctx is done, stopping it on return.
func (t *Ticker) Run(ctx context.Context) {
	t.Start()
	defer t.Stop()
	<-ctx.Done()
}

func (t *Ticker) tick() {
	now := t.source.Now()

	t.mu.Lock()
	t.now = now
	t.mu.Unlock()

	appLog.Debug("clock tick", "now", now.Format(time.RFC3339))
	if t.onTick != nil {
		t.onTick(now)
	}
}
