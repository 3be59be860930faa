package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder counts fetches and timestamps them.
type recorder struct {
	mu      sync.Mutex
	times   []time.Time
	changed func(n int) bool
	err     func(n int) error
}

func (r *recorder) fetch(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.times)
	r.times = append(r.times, time.Now())
	if r.err != nil {
		if e := r.err(n); e != nil {
			return false, e
		}
	}
	if r.changed != nil {
		return r.changed(n), nil
	}
	return false, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

func (r *recorder) gaps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	for i := 1; i < len(r.times); i++ {
		out = append(out, r.times[i].Sub(r.times[i-1]))
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCancellationStopsFetches(t *testing.T) {
	r := &recorder{}
	s := New(Options{BaseInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, r.fetch)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return r.count() >= 3 })
	cancel()
	<-done

	n := r.count()
	time.Sleep(50 * time.Millisecond)
	if r.count() != n {
		t.Fatalf("fetches fired after cancellation: %d -> %d", n, r.count())
	}
}

func TestHiddenViewIssuesNoFetches(t *testing.T) {
	r := &recorder{}
	s := New(Options{BaseInterval: 5 * time.Millisecond})
	s.SetVisible(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	time.Sleep(60 * time.Millisecond)
	if got := r.count(); got != 0 {
		t.Fatalf("hidden view fetched %d times", got)
	}
}

func TestVisibleAgainFetchesImmediately(t *testing.T) {
	r := &recorder{}
	// Long base so any prompt fetch must be the immediate resume fetch,
	// not a scheduled tick.
	s := New(Options{BaseInterval: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	waitFor(t, time.Second, func() bool { return r.count() == 1 })
	s.SetVisible(false)
	time.Sleep(10 * time.Millisecond)
	s.SetVisible(true)

	waitFor(t, time.Second, func() bool { return r.count() == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := r.count(); got != 2 {
		t.Fatalf("expected exactly one resume fetch, got %d total", got)
	}
}

func TestHiddenMidCycleStopsFurtherFetches(t *testing.T) {
	r := &recorder{}
	s := New(Options{BaseInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	waitFor(t, time.Second, func() bool { return r.count() >= 2 })
	s.SetVisible(false)
	time.Sleep(20 * time.Millisecond) // let any in-flight cycle settle
	n := r.count()
	time.Sleep(60 * time.Millisecond)
	if r.count() != n {
		t.Fatalf("fetches continued while hidden: %d -> %d", n, r.count())
	}
}

func TestBackoffGrowsAndSaturates(t *testing.T) {
	r := &recorder{} // never changed
	s := New(Options{BaseInterval: 10 * time.Millisecond, MaxInterval: 40 * time.Millisecond, IdleCycles: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	waitFor(t, 5*time.Second, func() bool { return r.count() >= 8 })
	cancel()

	gaps := r.gaps()
	// After sustained inactivity the cadence must have slowed well past
	// the base interval...
	last := gaps[len(gaps)-1]
	if last < 20*time.Millisecond {
		t.Fatalf("no backoff observed: last gap %v", last)
	}
	// ...but never past the cap (generous margin for scheduler jitter).
	for _, gap := range gaps {
		if gap > 200*time.Millisecond {
			t.Fatalf("gap %v exceeds saturated cap by too much", gap)
		}
	}
}

func TestChangeResetsBackoff(t *testing.T) {
	r := &recorder{}
	// Unchanged until fetch 6, which reports a change.
	r.changed = func(n int) bool { return n == 6 }
	s := New(Options{BaseInterval: 10 * time.Millisecond, MaxInterval: 80 * time.Millisecond, IdleCycles: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	waitFor(t, 5*time.Second, func() bool { return r.count() >= 9 })
	cancel()

	gaps := r.gaps()
	beforeReset := gaps[5] // gap leading into the changed fetch
	afterReset := gaps[6]  // gap right after the change
	if beforeReset < 20*time.Millisecond {
		t.Fatalf("backoff never built up: %v", beforeReset)
	}
	if afterReset >= beforeReset {
		t.Fatalf("change did not reset cadence: before %v, after %v", beforeReset, afterReset)
	}
}

func TestFetchErrorKeepsCadence(t *testing.T) {
	r := &recorder{}
	r.err = func(n int) error { return errors.New("transient") }
	s := New(Options{BaseInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, r.fetch)

	time.Sleep(200 * time.Millisecond)
	cancel()

	// ~10 cycles fit in the window; anything well beyond that would mean
	// errors accelerated the loop into a retry storm.
	if got := r.count(); got > 13 {
		t.Fatalf("retry storm: %d fetches in 200ms at 20ms cadence", got)
	}
	for _, gap := range r.gaps() {
		if gap < 15*time.Millisecond {
			t.Fatalf("error shortened the interval: gap %v", gap)
		}
	}
}
