// Package circuit implements the three-state breaker guarding every call
// out of the control plane to something that can be flaky: the Postgres
// repository (via Retry, wrapped by internal/repository.Retrying) and
// the gateway's dispatch route (via BreakerGroup, keyed by route name;
// dispatch is the only route the gateway runs through it). A tripped breaker
// fails fast instead of letting a stuck downstream pile up goroutines
// behind a 60s scheduler budget or a slow Postgres connection.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config configures a Breaker or every Breaker a BreakerGroup lazily
// creates.
type Config struct {
	Name          string
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(from, to State)
}

// Breaker trips to open after MaxFailures consecutive failures while
// closed, admits up to HalfOpenMax probe calls once Timeout has
// elapsed, and closes again once all probes succeed. All bookkeeping
// lives behind one mutex rather than a mix of atomics, since Execute
// already serializes through allow/observe and the extra lock cost is
// immaterial next to the downstream call it's guarding.
type Breaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCount int
	lastFailure   time.Time
	lastErr       error
}

func NewBreaker(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Execute runs fn if the breaker admits the call, then records the
// outcome against the breaker's state.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.observe(err)
	return err
}

// admit decides whether a call may proceed, transitioning open->half-open
// once the timeout has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.lastFailure) <= b.cfg.Timeout {
			return ErrCircuitOpen
		}
		b.transitionTo(StateHalfOpen)
		b.halfOpenCount = 1
		return nil

	case StateHalfOpen:
		if b.halfOpenCount >= b.cfg.HalfOpenMax {
			return ErrTooManyRequests
		}
		b.halfOpenCount++
		return nil

	default:
		return errors.New("circuit: unknown state")
	}
}

// observe records the result of an admitted call.
func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.lastErr = err
		switch b.state {
		case StateClosed:
			b.failures++
			if b.failures >= b.cfg.MaxFailures {
				b.lastFailure = time.Now()
				b.transitionTo(StateOpen)
			}
		case StateHalfOpen:
			b.lastFailure = time.Now()
			b.transitionTo(StateOpen)
		}
		return
	}

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenMax {
			b.transitionTo(StateClosed)
		}
	}
}

// transitionTo must be called with mu held. It resets the per-state
// counters and fires OnStateChange.
func (b *Breaker) transitionTo(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	b.halfOpenCount = 0
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// LastError returns the error from the most recent failed call, or nil
// if the breaker has never recorded one.
func (b *Breaker) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Reset forces the breaker back to closed, clearing every counter.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// ForceOpen trips the breaker immediately, for admin-triggered
// maintenance windows on a route.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = time.Now()
	b.transitionTo(StateOpen)
}

// BreakerGroup hands out one Breaker per name, lazily constructed from a
// shared Config, so routes can be guarded independently without
// pre-declaring every route name up front. The gateway uses it for the
// dispatch route only.
type BreakerGroup struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	base     Config
}

func NewBreakerGroup(base Config) *BreakerGroup {
	return &BreakerGroup{breakers: make(map[string]*Breaker), base: base}
}

// Get returns the named breaker, creating it from the group's base
// Config on first use.
func (g *BreakerGroup) Get(name string) *Breaker {
	g.mu.RLock()
	b, ok := g.breakers[name]
	g.mu.RUnlock()
	if ok {
		return b
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok = g.breakers[name]; ok {
		return b
	}
	cfg := g.base
	cfg.Name = name
	b = NewBreaker(cfg)
	g.breakers[name] = b
	return b
}

func (g *BreakerGroup) Execute(ctx context.Context, name string, fn func() error) error {
	return g.Get(name).Execute(ctx, fn)
}

// States snapshots every breaker's current state, for a diagnostics
// endpoint or log line.
func (g *BreakerGroup) States() map[string]State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]State, len(g.breakers))
	for name, b := range g.breakers {
		out[name] = b.State()
	}
	return out
}
