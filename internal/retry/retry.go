// Package retry runs remote text-generation calls, retrying rate-limit failures
// after a cooldown.
package retry

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/errs"
)

// Defaults match the remote service's rate-limit window.
const (
	DefaultMaxAttempts = 3
	DefaultCooldown    = 20 * time.Second
)

// Status of a finished call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the outcome of Do. Text is set on success, Err on failure.
type Result struct {
	Status   Status
	Text     string
	Err      error
	Attempts int
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Error returns the failure message, or "" on success.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Op is one attempt of a remote call.
type Op func(ctx context.Context) (string, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy controls attempts and waits. The cooldown is constant unless
// Multiplier is greater than 1.
type Policy struct {
	MaxAttempts int
	Cooldown    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns 3 attempts with a constant 20s cooldown.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Cooldown: DefaultCooldown}
}

// wait returns the cooldown before the given retry (1-based).
func (p Policy) wait(retry int) time.Duration {
	d := p.Cooldown
	if p.Multiplier > 1 {
		for i := 1; i < retry; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
		}
	}
	return d
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy  Policy
	sleep   SleepFunc
	retries prometheus.Counter
	logger  *zap.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleep replaces the wait function; tests use it to avoid real delays.
func WithSleep(fn SleepFunc) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// WithRetryCounter counts every retry.
func WithRetryCounter(c prometheus.Counter) Option {
	return func(r *Retrier) { r.retries = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retrier) { r.logger = l }
}

// New creates a Retrier. Non-positive policy fields fall back to the defaults.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Cooldown < 0 {
		policy.Cooldown = DefaultCooldown
	}
	r := &Retrier{
		policy: policy,
		sleep:  sleepContext,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds, fails with a non-transient error, or the
// attempts are used up. Exactly one wait separates consecutive attempts.
// Empty or whitespace-only output is a failure and is not retried.
func (r *Retrier) Do(ctx context.Context, op Op) Result {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		text, err := op(ctx)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return failure(errs.EmptyResult("remote call"), attempt)
			}
			return Result{Status: StatusSuccess, Text: text, Attempts: attempt}
		}
		if !errs.IsTransient(err) {
			r.logger.Error("remote call failed", zap.Int("attempt", attempt), zap.Error(err))
			return failure(err, attempt)
		}
		lastErr = err
		r.logger.Warn("rate limit exceeded",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
		)
		if attempt == r.policy.MaxAttempts {
			break
		}
		wait := r.policy.wait(attempt)
		if r.retries != nil {
			r.retries.Inc()
		}
		if err := r.sleep(ctx, wait); err != nil {
			return failure(err, attempt)
		}
	}
	return failure(lastErr, r.policy.MaxAttempts)
}

func failure(err error, attempts int) Result {
	return Result{Status: StatusFailure, Err: err, Attempts: attempts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
