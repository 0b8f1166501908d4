// Package retry decides whether a failed call is worth repeating and wraps a
// handler so that retryable failures are attempted again with backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sevigo/eris/internal/core"
)

// Decision is the outcome of classifying an error.
type Decision int

const (
	// Abort returns the error to the caller unchanged.
	Abort Decision = iota
	// Retry repeats the same request.
	Retry
)

func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "abort"
}

// Classifier maps an error to a Decision. Classifiers must be pure: the same
// error always yields the same decision.
type Classifier func(error) Decision

// Policy bounds the retry loop. MaxAttempts counts the first call too; zero
// means no cap.
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used for fields left at their zero value, except
// MaxAttempts.
var DefaultPolicy = Policy{
	MaxAttempts:     5,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

// MetricsRecorder is an optional interface for recording retry metrics.
type MetricsRecorder interface {
	RecordRetryAttempt(ctx context.Context, name string, decision string)
}

// Option configures a wrapped handler.
type Option func(*options)

type options struct {
	name    string
	logger  *slog.Logger
	metrics MetricsRecorder
}

// WithName labels the wrapped handler in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables metric recording.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// Handler retries the inner handler according to a classifier and a policy.
type Handler[Req, Resp any] struct {
	inner    core.Handler[Req, Resp]
	classify Classifier
	policy   Policy
	opts     options
}

// Wrap returns a handler that calls inner and repeats the call with the same
// request while classify says Retry, up to policy.MaxAttempts attempts.
func Wrap[Req, Resp any](inner core.Handler[Req, Resp], classify Classifier, policy Policy, opts ...Option) *Handler[Req, Resp] {
	o := options{name: "retry", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultPolicy.InitialInterval
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = DefaultPolicy.MaxInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	return &Handler[Req, Resp]{inner: inner, classify: classify, policy: policy, opts: o}
}

// Ready delegates to the inner handler.
func (h *Handler[Req, Resp]) Ready(ctx context.Context) error {
	return h.inner.Ready(ctx)
}

// Call runs req through the inner handler. The error of the last attempt is
// returned unchanged.
func (h *Handler[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	attempt := 0
	operation := func() (Resp, error) {
		attempt++
		if attempt > 1 {
			if err := h.inner.Ready(ctx); err != nil {
				var zero Resp
				return zero, h.decide(ctx, err)
			}
		}
		resp, err := h.inner.Call(ctx, req)
		if err != nil {
			return resp, h.decide(ctx, err)
		}
		return resp, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.policy.InitialInterval
	eb.MaxInterval = h.policy.MaxInterval

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		// The attempt cap is the only bound; elapsed time is not.
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			h.opts.logger.Warn("retrying request",
				"handler", h.opts.name,
				"attempt", attempt,
				"next_in", next,
				"error", err,
			)
		}),
	}
	if h.policy.MaxAttempts > 0 {
		retryOpts = append(retryOpts, backoff.WithMaxTries(h.policy.MaxAttempts))
	}

	resp, err := backoff.Retry(ctx, operation, retryOpts...)
	if err != nil && attempt > 1 && !errors.Is(err, context.Canceled) {
		h.opts.logger.Debug("giving up on request", "handler", h.opts.name, "attempts", attempt, "error", err)
	}
	return resp, err
}

// decide classifies err and marks it permanent when it must not be retried.
func (h *Handler[Req, Resp]) decide(ctx context.Context, err error) error {
	d := h.classify(err)
	if h.opts.metrics != nil {
		h.opts.metrics.RecordRetryAttempt(ctx, h.opts.name, d.String())
	}
	if d == Abort {
		return backoff.Permanent(err)
	}
	return err
}
