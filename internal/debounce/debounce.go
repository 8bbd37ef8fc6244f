// internal/debounce/debounce.go
//
// Per-field debounced dispatcher.
//
// Context
// -------
// Typing into a field should not re-run validation on every keystroke.  A
// Dispatcher holds at most one pending call.  Schedule replaces the pending
// call with a fresh one carrying the newest argument, so exactly one call
// fires per quiescent period and it sees the last value scheduled.
//
// Every field owns its own Dispatcher.  Dispatchers share nothing, so
// editing one field never cancels another field's pending validation.
//
// Notes
// -----
//   - Replacement stops the old timer and bumps a generation counter.  A
//     timer that raced past Stop checks the generation and drops itself.
//   - After Stop the Dispatcher ignores Schedule and late timers.
//   - Oxford commas, two spaces after periods.
package debounce

import (
	"sync"
	"time"

	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/metrics"
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	clk clock.Clock
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clk = c }
}

// Dispatcher coalesces rapid Schedule calls into one delayed fn call.
type Dispatcher[T any] struct {
	name  string
	delay time.Duration
	fn    func(T)
	clk   clock.Clock

	mu      sync.Mutex
	gen     uint64
	timer   clock.Timer
	stopped bool
}

// New returns a Dispatcher that calls fn once delay has passed without a
// further Schedule.  name labels metrics.
func New[T any](name string, delay time.Duration, fn func(T), opts ...Option) *Dispatcher[T] {
	o := options{clk: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher[T]{name: name, delay: delay, fn: fn, clk: o.clk}
}

// Schedule arms the dispatcher with v, cancelling any pending call.
func (d *Dispatcher[T]) Schedule(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		metrics.DebounceCoalescedTotal.WithLabelValues(d.name).Inc()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clk.AfterFunc(d.delay, func() { d.fire(gen, v) })
}

func (d *Dispatcher[T]) fire(gen uint64, v T) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Pending reports whether a call is armed.
func (d *Dispatcher[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending call and disables the dispatcher for good.
func (d *Dispatcher[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
