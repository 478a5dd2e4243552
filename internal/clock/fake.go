package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a Clock under manual control. Time only moves when Advance
// is called; scheduled functions whose deadline is reached run
// synchronously inside Advance, on the calling goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at a fixed, arbitrary instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules f to run when the fake clock has advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{clock: f, when: f.now.Add(d), fn: fn}
	f.pending = append(f.pending, t)
	return t
}

// NewTicker returns a tick channel fed by Advance. Ticks that nobody
// is reading are dropped, matching time.Ticker.
func (f *Fake) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tk := &fakeTicker{ch: make(chan time.Time, 1), every: d, next: f.now.Add(d)}
	f.tickers = append(f.tickers, tk)
	return tk.ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		tk.stopped = true
	}
}

// Advance moves the fake clock forward by d, firing every timer and
// ticker whose deadline falls within the window, in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		next := f.nextDeadlineLocked(target)
		if next == nil {
			break
		}
		f.now = next.when

		switch v := next.owner.(type) {
		case *fakeTimer:
			v.fired = true
			f.removeTimerLocked(v)
			f.mu.Unlock()
			v.fn()
			f.mu.Lock()
		case *fakeTicker:
			v.next = v.next.Add(v.every)
			select {
			case v.ch <- f.now:
			default:
			}
		}
	}

	f.now = target
	f.mu.Unlock()
}

// PendingTimers reports how many AfterFunc calls are scheduled and
// not yet fired or stopped.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type deadline struct {
	when  time.Time
	owner any
}

// nextDeadlineLocked finds the earliest timer or ticker deadline at or
// before target, or nil if none remain in the window.
func (f *Fake) nextDeadlineLocked(target time.Time) *deadline {
	var candidates []deadline
	for _, t := range f.pending {
		if !t.when.After(target) {
			candidates = append(candidates, deadline{when: t.when, owner: t})
		}
	}
	for _, tk := range f.tickers {
		if !tk.stopped && !tk.next.After(target) {
			candidates = append(candidates, deadline{when: tk.next, owner: tk})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].when.Before(candidates[j].when)
	})
	return &candidates[0]
}

func (f *Fake) removeTimerLocked(t *fakeTimer) {
	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	clock *Fake
	when  time.Time
	fn    func()
	fired bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired {
		return false
	}
	t.clock.removeTimerLocked(t)
	return true
}

type fakeTicker struct {
	ch      chan time.Time
	every   time.Duration
	next    time.Time
	stopped bool
}
