// Package ratelimit provides admission control for outbound calls to review sources.
//
// A single Limiter instance must be shared by every collector talking to the same
// source; per-job limiters would each believe they own the whole quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Harsh-BH/reviewlens/internal/metrics"
)

// Limiter blocks until the caller may issue one outbound call.
type Limiter interface {
	Wait(ctx context.Context) error
}

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindow) { l.now = now }
}

// WithSleep overrides how the limiter waits.
func WithSleep(sleep SleepFunc) Option {
	return func(l *SlidingWindow) { l.sleep = sleep }
}

// SlidingWindow admits at most max calls in any trailing window.
// Calls over capacity are delayed, never dropped.
type SlidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	buffer time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep SleepFunc
}

// NewSlidingWindow creates an in-process sliding-window limiter.
func NewSlidingWindow(max int, window, buffer time.Duration, opts ...Option) *SlidingWindow {
	if max < 1 {
		max = 1
	}
	l := &SlidingWindow{
		max:    max,
		window: window,
		buffer: buffer,
		stamps: make([]time.Time, 0, max),
		now:    time.Now,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait records an admission, sleeping first if the window is at capacity.
func (l *SlidingWindow) Wait(ctx context.Context) error {
	start := l.now()
	for {
		wait, ok := l.reserve()
		if ok {
			metrics.LimiterWait.Observe(l.now().Sub(start).Seconds())
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve admits the caller if there is room. Otherwise it returns how long to wait
// until the oldest admission leaves the window. The lock is never held while sleeping.
func (l *SlidingWindow) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	keep := l.stamps[:0]
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			keep = append(keep, ts)
		}
	}
	l.stamps = keep

	if len(l.stamps) < l.max {
		l.stamps = append(l.stamps, now)
		return 0, true
	}
	return l.window - now.Sub(l.stamps[0]) + l.buffer, false
}

// InFlight returns the number of admissions inside the current window.
func (l *SlidingWindow) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			n++
		}
	}
	return n
}

// Sleep waits for d or returns ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
