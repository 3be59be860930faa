// Package poll runs the cooperative fetch loop for one board view: a base
// cadence that backs off geometrically while nothing changes, pauses while
// the view is hidden, and never overlaps fetches.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for the scheduler. The backoff constants are tuning knobs, not
// contracts: the loop only promises a bounded, saturating slowdown that
// resets on any detected change.
const (
	DefaultBaseInterval = 4 * time.Second
	DefaultMaxInterval  = 8 * time.Second
	DefaultIdleCycles   = 3
	backoffFactor       = 1.5
)

// FetchFunc performs one poll cycle. It reports whether the fetch found
// changed data; an error leaves the cadence untouched and the cycle is
// retried on the next tick.
type FetchFunc func(ctx context.Context) (changed bool, err error)

// Options tunes a Scheduler. Zero values take the defaults above.
type Options struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	IdleCycles   int // unchanged cycles before the interval starts growing
}

// Scheduler drives the poll loop for a single board view session. It is
// created per view and never shared, so two boards can never
// cross-contaminate cadence or visibility state.
type Scheduler struct {
	base  time.Duration
	max   time.Duration
	idleN int

	mu      sync.Mutex
	visible bool
	wake    chan struct{}
}

// New creates a scheduler. The view starts visible.
func New(opts Options) *Scheduler {
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = DefaultBaseInterval
	}
	if opts.MaxInterval < opts.BaseInterval {
		opts.MaxInterval = DefaultMaxInterval
	}
	if opts.MaxInterval < opts.BaseInterval {
		opts.MaxInterval = opts.BaseInterval
	}
	if opts.IdleCycles <= 0 {
		opts.IdleCycles = DefaultIdleCycles
	}
	return &Scheduler{
		base:    opts.BaseInterval,
		max:     opts.MaxInterval,
		idleN:   opts.IdleCycles,
		visible: true,
		wake:    make(chan struct{}, 1),
	}
}

// SetVisible records the visibility signal. Hiding stops fetches entirely;
// becoming visible again triggers one immediate fetch before the loop
// resumes its cadence.
func (s *Scheduler) SetVisible(v bool) {
	s.mu.Lock()
	was := s.visible
	s.visible = v
	s.mu.Unlock()
	if v && !was {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) isVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Run executes the loop until ctx is cancelled. Fetches are issued from
// this goroutine only, so a new cycle can never start while the previous
// fetch is still in flight. Cancellation stops the loop outright: no
// further fetches fire after Run returns.
func (s *Scheduler) Run(ctx context.Context, fetch FetchFunc) {
	interval := s.base
	idleRun := 0

	for {
		if !s.isVisible() {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				// Visible again: fall through to an immediate fetch.
				continue
			}
		}

		changed, err := fetch(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			// Retried next cycle at the same interval; no retry storm.
			slog.Debug("poll fetch failed", "err", err)
		case changed:
			idleRun = 0
			interval = s.base
		default:
			idleRun++
			if idleRun >= s.idleN {
				interval = time.Duration(float64(interval) * backoffFactor)
				if interval > s.max {
					interval = s.max
				}
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			// Visibility flipped; re-evaluate immediately.
			timer.Stop()
		case <-timer.C:
		}
	}
}
