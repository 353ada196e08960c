package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/metrics"
	"github.com/imamik/wsdeploy/internal/util/poll"
)

// State is the state of an orchestrator. Each provider package defines its values.
type State string

// StateError is shared by every orchestrator.
const StateError State = "error"

// Orchestrator is the behaviour the wizard relies on for every provider.
type Orchestrator interface {
	Provider() Provider
	Attach(ctx context.Context)
	Detach()
	State() State
	Err() string
	ClearError()
	Ready(creds Credentials) error
}

// Options configures a Base.
type Options struct {
	Logger   logr.Logger
	Policy   PermissionPolicy
	PollOpts []poll.Option
}

// Option is a functional option for orchestrators.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithPolicy sets the permission policy.
func WithPolicy(p PermissionPolicy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

// WithPollOptions overrides the login polling policy.
func WithPollOptions(opts ...poll.Option) Option {
	return func(o *Options) {
		o.PollOpts = append(o.PollOpts, opts...)
	}
}

// Base carries the state every orchestrator shares: lifecycle state, the
// user-visible error string, the liveness context and the login poller.
// A Base starts attached to context.Background.
type Base struct {
	provider Provider
	logger   logr.Logger
	policy   PermissionPolicy
	poller   *poll.Poller
	pollOpts []poll.Option

	mu        sync.Mutex
	state     State
	prevState State
	err       string
	live      context.Context
	cancel    context.CancelFunc
}

// NewBase creates a Base in state initial.
func NewBase(provider Provider, initial State, opts ...Option) *Base {
	o := Options{Logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.Logger.WithValues("provider", string(provider))
	b := &Base{
		provider: provider,
		logger:   logger,
		policy:   o.Policy,
		pollOpts: o.PollOpts,
		poller:   poll.New(string(provider), poll.WithLogger(logger)),
		state:    initial,
	}
	b.live, b.cancel = context.WithCancel(context.Background())
	return b
}

// Provider returns the provider of the orchestrator.
func (b *Base) Provider() Provider {
	return b.provider
}

// Logger returns the orchestrator logger.
func (b *Base) Logger() logr.Logger {
	return b.logger
}

// Policy returns the permission policy.
func (b *Base) Policy() PermissionPolicy {
	return b.policy
}

// Attach marks the orchestrator live for the lifetime of ctx, replacing any
// earlier attachment.
func (b *Base) Attach(ctx context.Context) {
	b.mu.Lock()
	prev := b.cancel
	b.live, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()
	prev()
}

// Detach stops the login poll and clears liveness. Login callbacks that have
// not fired yet never will.
func (b *Base) Detach() {
	b.mu.Lock()
	b.cancel()
	b.mu.Unlock()
	b.poller.Clear()
}

// Live returns the liveness context.
func (b *Base) Live() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// Polling reports whether a login poll is running.
func (b *Base) Polling() bool {
	return b.poller.Active()
}

// State returns the current state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState moves to s.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// Err returns the user-visible error string, "" when there is none.
func (b *Base) Err() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Fail records msg and enters StateError.
func (b *Base) Fail(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateError {
		b.prevState = b.state
	}
	b.state = StateError
	b.err = msg
}

// FailErr records err verbatim.
func (b *Base) FailErr(err error) {
	b.logger.V(1).Info("operation failed", "error", err.Error())
	b.Fail(err.Error())
}

// ClearError drops the error string and returns to the state held before the failure.
func (b *Base) ClearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = ""
	if b.state == StateError {
		b.state = b.prevState
	}
}

// Login describes one out-of-band login.
type Login struct {
	// Flow labels logs and metrics.
	Flow string
	// Pending is the state while waiting.
	Pending State
	// Trigger starts the login and returns without waiting for it.
	Trigger func(ctx context.Context) error
	// Check reports whether the login completed.
	Check poll.CheckFunc
	// OnSuccess records the result. It runs before the returned channel receives nil.
	OnSuccess func()
	// TimeoutMessage is shown when the attempt budget is spent.
	TimeoutMessage string
}

// PollLogin triggers l and polls for its completion while the orchestrator
// is attached. A poll already running on the orchestrator is stopped first.
//
// The returned channel receives nil on success, or the trigger or timeout
// error, and is then closed. Nothing is sent when the orchestrator is
// detached first.
func (b *Base) PollLogin(ctx context.Context, l Login) <-chan error {
	done := make(chan error, 1)
	b.poller.Clear()
	b.ClearError()
	b.SetState(l.Pending)

	if err := l.Trigger(ctx); err != nil {
		err = fmt.Errorf("start %s: %w", l.Flow, err)
		b.FailErr(err)
		done <- err
		close(done)
		return done
	}

	b.logger.V(1).Info("login triggered, waiting for completion", "flow", l.Flow)
	live := b.Live()
	b.poller.Start(live, l.Check,
		func() {
			if live.Err() != nil {
				return
			}
			if l.OnSuccess != nil {
				l.OnSuccess()
			}
			done <- nil
			close(done)
		},
		func(err error) {
			b.logger.V(1).Info("login timed out", "flow", l.Flow, "error", err.Error())
			b.Fail(l.TimeoutMessage)
			done <- fmt.Errorf("%s: %w", l.TimeoutMessage, err)
			close(done)
		},
		b.pollOpts...,
	)
	return done
}

// CheckPermissions runs probe and applies the permission policy to its outcome.
func (b *Base) CheckPermissions(ctx context.Context, probe func(context.Context) (PermissionCheck, error)) PermissionCheck {
	check, err := probe(ctx)
	if err != nil {
		b.logger.Info("permission check could not run", "policy", b.policy.String(), "error", err.Error())
	}
	res := b.policy.Resolve(check, err)
	metrics.RecordPermissionCheck(string(b.provider), res.HasAllPermissions, res.IsWarning)
	return res
}

// RequirePermissions turns a definite permission failure into ErrPermissionDenied.
// Warnings pass.
func RequirePermissions(check PermissionCheck) error {
	if check.HasAllPermissions {
		return nil
	}
	if len(check.Missing) > 0 {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, check.Missing)
	}
	if check.Message != "" {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, check.Message)
	}
	return ErrPermissionDenied
}

// IsIncomplete reports whether err is a Ready failure for missing input.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete)
}
