// Package background moves a handler that is not safe for concurrent use into
// a dedicated worker goroutine and hands out a cheap, copyable Handle to it.
// Every request submitted through any copy of a Handle reaches the same
// worker and is processed strictly in submission order.
package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/eris/internal/core"
)

// MetricsRecorder is an optional interface for recording worker metrics.
type MetricsRecorder interface {
	RecordBackgroundSubmitted(ctx context.Context, worker string)
	RecordBackgroundCompleted(ctx context.Context, worker string, durationSeconds float64, failed bool)
	RecordBackgroundDropped(ctx context.Context, worker string)
}

// Option configures a worker at spawn time.
type Option func(*options)

type options struct {
	name    string
	logger  *slog.Logger
	metrics MetricsRecorder
}

// WithName labels the worker in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables metric recording.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

type result[Resp any] struct {
	resp Resp
	err  error
}

type request[Req, Resp any] struct {
	payload Req
	// reply is written at most once. It is closed without a value when the
	// worker gives up on the request. Nil for fire-and-forget.
	reply   chan result[Resp]
	timeout time.Duration
}

type worker[Req, Resp any] struct {
	handler core.Handler[Req, Resp]
	mailbox *mailbox[request[Req, Resp]]
	done    chan struct{}
	name    string
	logger  *slog.Logger
	metrics MetricsRecorder
}

// Spawn starts a worker that owns handler and returns a handle to it. The
// worker runs until the handle is closed and its queue is drained, until ctx
// is cancelled, or until the handler panics.
func Spawn[Req, Resp any](ctx context.Context, handler core.Handler[Req, Resp], opts ...Option) Handle[Req, Resp] {
	o := options{name: "background", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	w := &worker[Req, Resp]{
		handler: handler,
		mailbox: newMailbox[request[Req, Resp]](),
		done:    make(chan struct{}),
		name:    o.name,
		logger:  o.logger.With("worker", o.name),
		metrics: o.metrics,
	}
	go w.run(ctx)
	return Handle[Req, Resp]{w: w}
}

func (w *worker[Req, Resp]) run(ctx context.Context) {
	defer close(w.done)
	defer w.abandonQueued()

	w.logger.Debug("background worker started")
	for {
		req, ok := w.mailbox.pop(ctx)
		if !ok {
			break
		}
		if !w.process(ctx, req) {
			break
		}
	}
	w.logger.Debug("background worker exiting")
}

// abandonQueued closes the mailbox and releases callers still waiting on
// requests the worker will never run.
func (w *worker[Req, Resp]) abandonQueued() {
	rest := w.mailbox.drain()
	for _, req := range rest {
		w.drop(req)
	}
	if len(rest) > 0 {
		w.logger.Warn("background worker stopped with queued requests", "abandoned", len(rest))
	}
}

// process runs one request and reports whether the worker should keep going.
func (w *worker[Req, Resp]) process(ctx context.Context, req request[Req, Resp]) (alive bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("background handler panicked, stopping worker", "panic", r)
			w.drop(req)
			alive = false
		}
	}()

	callCtx := ctx
	if req.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	resp, err := w.execute(callCtx, req.payload)
	returnedAt := time.Now()

	if ctx.Err() != nil {
		w.logger.Debug("background worker cancelled while processing a request")
		w.drop(req)
		return false
	}
	if req.timeout > 0 && !finishedInTime(callCtx, returnedAt) {
		w.logger.Debug("background handler timed out before producing a response", "timeout", req.timeout)
		w.drop(req)
		return true
	}

	if w.metrics != nil {
		w.metrics.RecordBackgroundCompleted(ctx, w.name, time.Since(start).Seconds(), err != nil)
	}

	if req.reply == nil {
		if err != nil {
			w.logger.Warn("fire-and-forget request failed", "error", err)
		}
		return true
	}
	req.reply <- result[Resp]{resp: resp, err: err}
	return true
}

// finishedInTime reports whether a handler that returned at t beat the
// deadline of ctx. It does not consult ctx.Err, which may have expired since.
func finishedInTime(ctx context.Context, t time.Time) bool {
	deadline, ok := ctx.Deadline()
	return !ok || t.Before(deadline)
}

func (w *worker[Req, Resp]) execute(ctx context.Context, payload Req) (Resp, error) {
	if err := w.handler.Ready(ctx); err != nil {
		var zero Resp
		return zero, err
	}
	return w.handler.Call(ctx, payload)
}

func (w *worker[Req, Resp]) drop(req request[Req, Resp]) {
	if w.metrics != nil {
		w.metrics.RecordBackgroundDropped(context.Background(), w.name)
	}
	if req.reply != nil {
		close(req.reply)
	}
}
