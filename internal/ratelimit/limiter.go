// Package ratelimit gates outbound requests against venue-documented
// weight budgets. Budgets are tracked per classification (order, market
// data, account) in fixed windows with lazy rollover; an optional raw
// request-frequency limiter covers venues that cap request counts
// independently of weight.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrWeightExceedsBudget is returned when a single request's weight is
// larger than the classification's whole window budget. Such a request
// can never be admitted, so Acquire fails permanently instead of
// suspending forever.
var ErrWeightExceedsBudget = errors.New("ratelimit: weight exceeds window budget")

// WindowConfig describes one classification's budget: at most Budget
// weight units may be consumed per Window.
type WindowConfig struct {
	Budget int
	Window time.Duration
}

// Limiter tracks weight consumption per classification for one client
// instance. It is safe for concurrent use; waiting callers for the same
// classification are admitted in FIFO order.
type Limiter struct {
	mu       sync.Mutex
	classes  map[string]*classWindow
	defaults WindowConfig
	raw      *rate.Limiter
	metrics  *Metrics
}

// Metrics tracks statistics about limiter usage.
type Metrics struct {
	totalAcquires   atomic.Int64
	granted         atomic.Int64
	denied          atomic.Int64
	classifications atomic.Int32
}

type waiter struct {
	ready chan struct{}
}

type classWindow struct {
	mu     sync.Mutex
	budget int
	window time.Duration
	start  time.Time
	used   int
	queue  []*waiter
}

// New creates a Limiter whose classifications default to the given
// budget and window until overridden with SetClassLimit.
func New(defaults WindowConfig) *Limiter {
	return &Limiter{
		classes:  make(map[string]*classWindow),
		defaults: defaults,
		metrics:  &Metrics{},
	}
}

// SetClassLimit overrides the budget and window for one classification.
// Existing consumption in the current window is preserved.
func (l *Limiter) SetClassLimit(class string, budget int, window time.Duration) {
	cw := l.class(class)
	cw.mu.Lock()
	cw.budget = budget
	cw.window = window
	cw.mu.Unlock()
}

// SetRawLimit configures the raw request-frequency limiter: at most
// requests per period regardless of weight. Passing requests <= 0
// disables it.
func (l *Limiter) SetRawLimit(requests int, period time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if requests <= 0 {
		l.raw = nil
		return
	}
	rps := float64(requests) / period.Seconds()
	l.raw = rate.NewLimiter(rate.Limit(rps), requests)
}

// Acquire suspends the caller until admitting weight units would not
// exceed the classification's budget for the current window, then
// records the consumption and returns. Waiters for the same
// classification are served in arrival order. The only failures are
// context cancellation and ErrWeightExceedsBudget. Weight consumed by
// an admitted request is never refunded.
func (l *Limiter) Acquire(ctx context.Context, class string, weight int) error {
	l.metrics.totalAcquires.Add(1)

	if weight < 1 {
		weight = 1
	}

	if raw := l.rawLimiter(); raw != nil {
		if err := raw.Wait(ctx); err != nil {
			l.metrics.denied.Add(1)
			return err
		}
	}

	if err := l.class(class).acquire(ctx, weight); err != nil {
		l.metrics.denied.Add(1)
		return err
	}
	l.metrics.granted.Add(1)
	return nil
}

// Usage returns the weight consumed in the classification's current
// window and the window budget.
func (l *Limiter) Usage(class string) (used, budget int) {
	cw := l.class(class)
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.roll(time.Now())
	return cw.used, cw.budget
}

// Metrics returns a snapshot of the current limiter statistics.
func (l *Limiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalAcquires:   l.metrics.totalAcquires.Load(),
		Granted:         l.metrics.granted.Load(),
		Denied:          l.metrics.denied.Load(),
		Classifications: l.metrics.classifications.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of limiter statistics.
type MetricsSnapshot struct {
	// TotalAcquires is the total number of Acquire calls.
	TotalAcquires int64
	// Granted is the number of acquisitions that were admitted.
	Granted int64
	// Denied is the number of acquisitions that failed (cancellation
	// or an over-budget weight).
	Denied int64
	// Classifications is the number of classification windows in use.
	Classifications int32
}

func (l *Limiter) rawLimiter() *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.raw
}

func (l *Limiter) class(class string) *classWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cw, ok := l.classes[class]; ok {
		return cw
	}
	cw := &classWindow{
		budget: l.defaults.Budget,
		window: l.defaults.Window,
	}
	l.classes[class] = cw
	l.metrics.classifications.Add(1)
	return cw
}

// roll resets consumption once the window has elapsed. Rollover is
// lazy: it happens on the next acquire after expiry, not on a timer.
// Must be called with c.mu held.
func (c *classWindow) roll(now time.Time) {
	if c.used > 0 && now.Sub(c.start) >= c.window {
		c.used = 0
	}
}

// consume records weight in the current window, starting a fresh window
// on its first consumption. Must be called with c.mu held.
func (c *classWindow) consume(now time.Time, weight int) {
	if c.used == 0 {
		c.start = now
	}
	c.used += weight
}

// popHead removes the head waiter and hands the turn to the next one.
// Must be called with c.mu held.
func (c *classWindow) popHead() {
	c.queue = c.queue[1:]
	if len(c.queue) > 0 {
		signal(c.queue[0])
	}
}

// remove deletes a cancelled waiter wherever it sits in the queue.
// Must be called with c.mu held.
func (c *classWindow) remove(w *waiter) {
	for i, q := range c.queue {
		if q != w {
			continue
		}
		c.queue = append(c.queue[:i], c.queue[i+1:]...)
		if i == 0 && len(c.queue) > 0 {
			signal(c.queue[0])
		}
		return
	}
}

func signal(w *waiter) {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

func (c *classWindow) acquire(ctx context.Context, weight int) error {
	now := time.Now()

	c.mu.Lock()
	if weight > c.budget {
		c.mu.Unlock()
		return ErrWeightExceedsBudget
	}
	c.roll(now)
	if len(c.queue) == 0 && c.used+weight <= c.budget {
		c.consume(now, weight)
		c.mu.Unlock()
		return nil
	}

	w := &waiter{ready: make(chan struct{}, 1)}
	c.queue = append(c.queue, w)

	for {
		if c.queue[0] == w && c.used+weight <= c.budget {
			c.consume(time.Now(), weight)
			c.popHead()
			c.mu.Unlock()
			return nil
		}

		// Only the head waiter arms a timer: capacity appears solely at
		// window rollover, and the head hands the turn down the queue.
		var timer *time.Timer
		var fire <-chan time.Time
		if c.queue[0] == w {
			timer = time.NewTimer(time.Until(c.start.Add(c.window)))
			fire = timer.C
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			c.mu.Lock()
			c.remove(w)
			c.mu.Unlock()
			return ctx.Err()
		case <-fire:
		case <-w.ready:
			if timer != nil {
				timer.Stop()
			}
		}

		c.mu.Lock()
		c.roll(time.Now())
	}
}
