package clock

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stepClock returns successive instants, one minute apart.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (s *stepClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cur
	s.cur = s.cur.Add(time.Minute)
	return now
}

func TestTickerSnapshot(t *testing.T) {
	base := time.Date(2024, 6, 20, 23, 59, 0, 0, time.UTC)
	src := &stepClock{cur: base}

	var got []time.Time
	tk, err := NewTicker("", src, func(now time.Time) { got = append(got, now) })
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}
	defer tk.Stop()

	if !tk.Now().Equal(base) {
		t.Fatalf("initial snapshot %v, want %v", tk.Now(), base)
	}

	tk.tick()
	want := base.Add(time.Minute)
	if !tk.Now().Equal(want) {
		t.Fatalf("after tick %v, want %v", tk.Now(), want)
	}
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("onTick got %v", got)
	}
}

func TestTickerBadSpec(t *testing.T) {
	if _, err := NewTicker("every now and then", Fixed(time.Now()), nil); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestTickerStopIsIdempotent(t *testing.T) {
	tk, err := NewTicker(DefaultSpec, Fixed(time.Unix(0, 0)), nil)
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}
	tk.Stop()
	tk.Start()
	tk.Stop()
}

func TestTickerRunStopsOnCancel(t *testing.T) {
	tk, err := NewTicker(DefaultSpec, Fixed(time.Unix(0, 0)), nil)
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFixed(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !Fixed(at).Now().Equal(at) {
		t.Fatal("Fixed clock drifted")
	}
}
