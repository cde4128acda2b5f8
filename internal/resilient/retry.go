package resilient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout     = 360 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// Policy bounds each remote call. Attempt n (1-based) that fails waits Backoff*n
// before the next one.
type Policy struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Timeout: DefaultTimeout, MaxAttempts: DefaultMaxAttempts, Backoff: DefaultBackoff}
}

// Observer is notified once per attempt; outcome is "success", "retry" or "exhausted".
type Observer interface {
	ObserveAttempt(op, outcome string, elapsed time.Duration)
}

type Retrier struct {
	policy   Policy
	limiter  *rate.Limiter
	sleeper  func(time.Duration)
	observer Observer
	logger   *zap.SugaredLogger
}

type Option func(*Retrier)

// throttles attempts (each attempt waits for a token)
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Retrier) { r.limiter = l }
}

// replaces the timer-based wait between attempts (tests)
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(r *Retrier) { r.sleeper = sleeper }
}

func WithObserver(o Observer) Option {
	return func(r *Retrier) { r.observer = o }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Retrier) { r.logger = l }
}

// builds a limiter allowing rpm attempts per minute; rpm <= 0 means unlimited
func PerMinute(rpm float64) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rpm/60), 1)
}

func NewRetrier(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Backoff < 0 {
		policy.Backoff = 0
	}
	r := &Retrier{policy: policy, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Policy() Policy { return r.policy }

// Do runs fn up to MaxAttempts times. Each attempt gets its own context bounded
// by Policy.Timeout. Cancellation of ctx and Permanent errors stop the loop
// immediately; anything else is treated as transient.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		err := r.attempt(ctx, fn)
		elapsed := time.Since(start)
		if err == nil {
			r.observe(op, "success", elapsed)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			r.observe(op, "permanent", elapsed)
			return perm.err
		}

		lastErr = &TransientError{Op: op, Attempt: attempt, Err: err}
		if attempt == r.policy.MaxAttempts {
			r.observe(op, "exhausted", elapsed)
			break
		}
		r.observe(op, "retry", elapsed)

		delay := r.policy.Backoff * time.Duration(attempt)
		r.logger.Warnw("remote call failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedRetriesError{Op: op, Attempts: r.policy.MaxAttempts, Last: lastErr}
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return fn(attemptCtx)
}

func (r *Retrier) observe(op, outcome string, elapsed time.Duration) {
	if r.observer != nil {
		r.observer.ObserveAttempt(op, outcome, elapsed)
	}
}

func (r *Retrier) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if r.sleeper != nil {
		r.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
