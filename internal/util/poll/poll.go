package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/metrics"
)

const (
	// DefaultInterval is the delay between two condition checks.
	DefaultInterval = 1 * time.Second
	// DefaultMaxAttempts is the total number of condition checks before a timeout.
	DefaultMaxAttempts = 60
)

// ErrTimeout is wrapped by every error handed to a timeout callback.
var ErrTimeout = errors.New("polling timed out")

// TimeoutError reports an exhausted attempt budget.
type TimeoutError struct {
	Flow     string
	Attempts int
	// Last is the error returned by the final check, nil if it returned false.
	Last error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s: %s gave up after %d attempts: %v", ErrTimeout, e.Flow, e.Attempts, e.Last)
	}
	return fmt.Sprintf("%s: %s gave up after %d attempts", ErrTimeout, e.Flow, e.Attempts)
}

// Unwrap exposes ErrTimeout and the last check error to errors.Is.
func (e *TimeoutError) Unwrap() []error {
	if e.Last != nil {
		return []error{ErrTimeout, e.Last}
	}
	return []error{ErrTimeout}
}

// CheckFunc reports whether the awaited condition holds.
// A returned error counts as a failed attempt and is retried like false.
type CheckFunc func(ctx context.Context) (bool, error)

// Config holds the polling policy of one poll.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// Option is a functional option for polling configuration.
type Option func(*Config)

// WithInterval sets the delay between checks.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

// WithMaxAttempts sets the total number of checks, the immediate one included.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// Poller runs at most one poll at a time.
type Poller struct {
	flow     string
	defaults []Option
	logger   logr.Logger

	mu  sync.Mutex
	cur *run
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithLogger sets the logger used for attempt tracing.
func WithLogger(l logr.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithDefaults sets options applied to every poll before the per-call options.
func WithDefaults(opts ...Option) PollerOption {
	return func(p *Poller) {
		p.defaults = append(p.defaults, opts...)
	}
}

// New creates a Poller. The flow name labels logs and metrics.
func New(flow string, opts ...PollerOption) *Poller {
	p := &Poller{
		flow:   flow,
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is one poll. mu serializes condition checks against stop so that no
// check begins once stop has returned.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (r *run) stop() {
	r.cancel()
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Start begins a new poll, stopping any poll already running on p.
//
// check runs immediately and then every interval, at most MaxAttempts times.
// onSuccess runs once when check returns true. onTimeout runs once when the
// final attempt fails, receiving a *TimeoutError. Neither runs when ctx is
// done or the poll was stopped. Callbacks run on the poll goroutine and may
// call Start or Clear; check must not.
func (p *Poller) Start(ctx context.Context, check CheckFunc, onSuccess func(), onTimeout func(error), opts ...Option) {
	cfg := Config{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range p.defaults {
		opt(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	prev := p.cur
	p.cur = r
	p.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go p.loop(runCtx, r, cfg, check, onSuccess, onTimeout)
}

// Clear stops the active poll, if any. No callback fires afterwards.
func (p *Poller) Clear() {
	p.mu.Lock()
	r := p.cur
	p.cur = nil
	p.mu.Unlock()

	if r != nil {
		r.stop()
	}
}

// Active reports whether a poll is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return false
	}
	select {
	case <-p.cur.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current poll has finished or been stopped.
func (p *Poller) Wait() {
	p.mu.Lock()
	r := p.cur
	p.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

func (p *Poller) loop(ctx context.Context, r *run, cfg Config, check CheckFunc, onSuccess func(), onTimeout func(error)) {
	start := time.Now()
	finished := false
	defer func() {
		if !finished {
			close(r.done)
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(cfg.Interval)
		}
		select {
		case <-ctx.Done():
			p.logger.V(2).Info("poll canceled", "flow", p.flow, "attempt", attempt)
			return
		case <-timer.C:
		}

		r.mu.Lock()
		if r.stopped || ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		ok, err := check(ctx)
		live := !r.stopped && ctx.Err() == nil
		r.mu.Unlock()

		if !live {
			return
		}

		switch {
		case err != nil:
			metrics.RecordPollAttempt(p.flow, "error")
			p.logger.V(2).Info("poll attempt failed", "flow", p.flow, "attempt", attempt, "error", err.Error())
		case ok:
			metrics.RecordPollAttempt(p.flow, "true")
			metrics.RecordPollResult(p.flow, "success", time.Since(start).Seconds())
			p.logger.V(1).Info("poll condition met", "flow", p.flow, "attempt", attempt)
			finished = true
			p.finish(r)
			if onSuccess != nil {
				onSuccess()
			}
			return
		default:
			metrics.RecordPollAttempt(p.flow, "false")
			p.logger.V(2).Info("poll condition not met", "flow", p.flow, "attempt", attempt)
		}

		if attempt == cfg.MaxAttempts {
			metrics.RecordPollResult(p.flow, "timeout", time.Since(start).Seconds())
			p.logger.V(1).Info("poll timed out", "flow", p.flow, "attempts", attempt)
			finished = true
			p.finish(r)
			if onTimeout != nil {
				onTimeout(&TimeoutError{Flow: p.flow, Attempts: attempt, Last: err})
			}
			return
		}
	}
}

// finish releases the poller slot held by r before callbacks run, so that a
// callback starting a new poll does not stop itself.
func (p *Poller) finish(r *run) {
	p.mu.Lock()
	if p.cur == r {
		p.cur = nil
	}
	p.mu.Unlock()
	r.cancel()
	close(r.done)
}
