package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/metrics"
	"github.com/imamik/wsdeploy/internal/util/retry"
)

// Runner runs external commands.
type Runner interface {
	// Run executes the command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches the command without waiting for it.
	Start(ctx context.Context, name string, args ...string) error
}

// CommandError is returned for a command that could not start or exited non-zero.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Name, strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// transientMarkers are stderr fragments of failures worth retrying.
var transientMarkers = []string{
	"throttl",
	"too many requests",
	"rate exceeded",
	"connection reset",
	"connection refused",
	"i/o timeout",
	"tls handshake timeout",
	"temporarily unavailable",
	"service unavailable",
	"(429)",
	"(503)",
}

// IsTransient reports whether err looks like a passing tool or network failure.
func IsTransient(err error) bool {
	var ce *CommandError
	if !errors.As(err, &ce) || errors.Is(err, exec.ErrNotFound) {
		return false
	}
	stderr := strings.ToLower(ce.Stderr)
	for _, m := range transientMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether the tool is not installed.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// CLI is the os/exec backed Runner.
type CLI struct {
	provider  string
	logger    logr.Logger
	retryOpts []retry.Option
	env       []string
}

// Option configures a CLI.
type Option func(*CLI)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(c *CLI) {
		c.logger = l
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(opts ...retry.Option) Option {
	return func(c *CLI) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// WithEnv appends KEY=VALUE entries to the environment of every command.
func WithEnv(env ...string) Option {
	return func(c *CLI) {
		c.env = append(c.env, env...)
	}
}

// New creates a CLI runner. provider labels metrics.
func New(provider string, opts ...Option) *CLI {
	c := &CLI{
		provider: provider,
		logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the command and returns its stdout. Transient failures are retried.
func (c *CLI) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	var out []byte

	opts := append([]retry.Option{
		retry.WithRetryable(IsTransient),
		retry.WithOnRetry(func(attempt int, err error) {
			c.logger.V(1).Info("retrying command", "command", name, "attempt", attempt, "error", err.Error())
		}),
	}, c.retryOpts...)

	err := retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		var runErr error
		out, runErr = c.runOnce(ctx, name, args)
		return runErr
	}, opts...)

	metrics.RecordBridgeCall(c.provider, operation(name, args), err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CLI) runOnce(ctx context.Context, name string, args []string) ([]byte, error) {
	c.logger.V(1).Info("running command", "command", name, "args", redact(args))

	// #nosec G204 - name is a fixed provider tool, args are built by the bridges
	cmd := exec.CommandContext(ctx, name, args...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		ce := &CommandError{Name: name, Args: redact(args), Stderr: stderr.String(), Err: err, ExitCode: -1}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ce.ExitCode = exitErr.ExitCode()
		}
		if IsNotFound(err) {
			return nil, retry.Fatal(ce)
		}
		return nil, ce
	}
	return stdout.Bytes(), nil
}

// Start launches the command and reaps it in the background. Output is
// logged when the command exits.
func (c *CLI) Start(ctx context.Context, name string, args ...string) error {
	start := time.Now()
	c.logger.V(1).Info("starting command", "command", name, "args", redact(args))

	// #nosec G204 - name is a fixed provider tool, args are built by the bridges
	cmd := exec.CommandContext(ctx, name, args...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Start()
	metrics.RecordBridgeCall(c.provider, operation(name, args), err, time.Since(start).Seconds())
	if err != nil {
		return &CommandError{Name: name, Args: redact(args), Err: err, ExitCode: -1}
	}

	go func() {
		waitErr := cmd.Wait()
		log := c.logger.V(1).WithValues("command", name, "output", strings.TrimSpace(output.String()))
		if waitErr != nil {
			log.Info("background command failed", "error", waitErr.Error())
			return
		}
		log.Info("background command finished")
	}()
	return nil
}

// RunJSON runs the command and decodes its stdout into v.
func RunJSON(ctx context.Context, r Runner, v any, name string, args ...string) error {
	out, err := r.Run(ctx, name, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("decode %s output: %w", name, err)
	}
	return nil
}

// operation names a call for metrics: the tool and its first two subcommands.
func operation(name string, args []string) string {
	parts := []string{name}
	for _, a := range args {
		if len(parts) == 3 || strings.HasPrefix(a, "-") {
			break
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// secretFlags take a secret value.
var secretFlags = map[string]bool{
	"--password":      true,
	"--client-secret": true,
	"-p":              true,
}

func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if secretFlags[out[i]] {
			out[i+1] = "REDACTED"
		}
	}
	return out
}
