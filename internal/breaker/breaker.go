// Package breaker implements the circuit breaker described in spec.md
// §4.11: a CLOSED/OPEN/HALF_OPEN state machine guarding any unreliable
// call (service client, ML advisory) with a sliding error-rate window, a
// reset timeout, and a fail-open fallback so a broken dependency never
// blocks the caller.
//
// Grounded on features/model/middleware's AdaptiveRateLimiter: a mutex-
// guarded decorator that wraps a client, observes the outcome of every
// call, and adjusts internal state accordingly — generalized here from an
// AIMD token budget to an error-rate state machine, and from a single
// Client interface to a generic Do[T] so any call shape can be wrapped.
package breaker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/telemetry"
)

// State is one of the three states spec.md §4.11 names.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// gaugeValue is the 0/1/2 state gauge value spec.md §4.11 specifies.
func (s State) gaugeValue() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}

// Config tunes one breaker instance. Zero values are replaced by the
// spec.md §4.11 defaults in New.
type Config struct {
	// Name identifies the breaker in gauges/logs (e.g. "stock-client").
	Name string
	// Timeout bounds a single protected call; exceeding it counts as a
	// failure. Default 10s (within the spec's 5-30s range).
	Timeout time.Duration
	// Window is the sliding duration over which ErrorThreshold is
	// evaluated. Default 30s.
	Window time.Duration
	// ErrorThreshold is the fraction of failed calls within Window that
	// trips the breaker from CLOSED to OPEN. Default 0.5.
	ErrorThreshold float64
	// VolumeThreshold is the minimum number of calls within Window
	// required before ErrorThreshold is evaluated, so a single failure
	// out of one call cannot trip the breaker. Default 4.
	VolumeThreshold int
	// ResetTimeout is how long the breaker stays OPEN before allowing a
	// single HALF_OPEN probe. Default 12s.
	ResetTimeout time.Duration

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 30 * time.Second
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = 0.5
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 4
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 12 * time.Second
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewNoopMetrics()
	}
}

type outcome struct {
	at      time.Time
	failure bool
}

// Breaker protects a single unreliable dependency. Safe for concurrent use.
type Breaker struct {
	cfg Config

	mu           sync.Mutex
	state        State
	openedAt     time.Time
	halfOpenBusy bool
	history      []outcome

	// probeLimiter paces HALF_OPEN probes to once per ResetTimeout, so a
	// burst of concurrent callers hitting allow() the instant the breaker
	// becomes eligible cannot all race for the single probe slot at once.
	probeLimiter *rate.Limiter
}

// New constructs a Breaker in the CLOSED state.
func New(cfg Config) *Breaker {
	cfg.applyDefaults()
	return &Breaker{
		cfg:          cfg,
		state:        Closed,
		probeLimiter: rate.NewLimiter(rate.Every(cfg.ResetTimeout), 1),
	}
}

// Snapshot is a read-only view of one breaker's state for observability
// surfaces to poll, grounded on the teacher's policy.Decision-style value
// snapshots: a copy callers can inspect freely without taking the lock.
type Snapshot struct {
	Name         string
	State        State
	FailureCount int
	WindowCalls  int
}

// Snapshot returns the breaker's current state without mutating it (no
// HALF_OPEN transition is claimed the way State() or allow() would).
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	failures := 0
	for _, o := range b.history {
		if o.failure {
			failures++
		}
	}
	return Snapshot{Name: b.cfg.Name, State: b.state, FailureCount: failures, WindowCalls: len(b.history)}
}

// State returns the breaker's current state, evaluating whether an OPEN
// breaker has become eligible for a HALF_OPEN probe.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionIfDueLocked()
	return b.state
}

func (b *Breaker) transitionIfDueLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.cfg.ResetTimeout {
		b.setStateLocked(HalfOpen)
		b.halfOpenBusy = false
	}
}

func (b *Breaker) setStateLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.cfg.Metrics.RecordGauge("circuit_breaker.state", s.gaugeValue(), "breaker", b.cfg.Name)
}

// Do runs fn if the breaker permits a call, otherwise returns a
// CIRCUIT_OPEN domain error immediately. internal/mladvisory turns that
// error into its fallback answer; the breaker-wrapped job and stock
// clients in cmd/optima return it to their caller unchanged.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, domain.New(domain.CodeCircuitOpen, "circuit breaker open: "+b.cfg.Name)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v, err}
	}()

	select {
	case <-callCtx.Done():
		b.record(true)
		return zero, domain.Wrap(domain.CodeTimeout, "circuit breaker call timed out: "+b.cfg.Name, callCtx.Err())
	case r := <-done:
		b.record(r.err != nil)
		if r.err != nil {
			return zero, r.err
		}
		return r.val, nil
	}
}

// allow reports whether a call may proceed, claiming the single
// HALF_OPEN probe slot if that is the current state.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionIfDueLocked()
	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenBusy {
			return false
		}
		if !b.probeLimiter.AllowN(time.Now(), 1) {
			return false
		}
		b.halfOpenBusy = true
		return true
	default: // Open
		return false
	}
}

// record observes the outcome of one protected call and updates state.
func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.history = append(b.history, outcome{at: now, failure: failed})
	b.pruneLocked(now)

	switch b.state {
	case HalfOpen:
		b.halfOpenBusy = false
		if failed {
			b.openLocked(now)
		} else {
			b.setStateLocked(Closed)
			b.history = nil
		}
	case Closed:
		if failed && b.shouldTripLocked() {
			b.openLocked(now)
		}
	}
}

func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	i := 0
	for ; i < len(b.history); i++ {
		if b.history[i].at.After(cutoff) {
			break
		}
	}
	b.history = b.history[i:]
}

func (b *Breaker) shouldTripLocked() bool {
	if len(b.history) < b.cfg.VolumeThreshold {
		return false
	}
	failures := 0
	for _, o := range b.history {
		if o.failure {
			failures++
		}
	}
	rate := float64(failures) / float64(len(b.history))
	return rate >= b.cfg.ErrorThreshold
}

func (b *Breaker) openLocked(now time.Time) {
	b.setStateLocked(Open)
	b.openedAt = now
	b.halfOpenBusy = false
}
