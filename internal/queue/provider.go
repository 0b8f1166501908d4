// Package queue supplies a shared queue to a handler by enriching its request
// instead of its construction. The wrapped handler receives (queue, request)
// while callers keep sending plain requests.
package queue

import (
	"context"
	"errors"

	"github.com/sevigo/eris/internal/core"
)

// Sender is anything that accepts messages of type Msg, typically a
// background.Handle or a MemoryQueue.
type Sender[Msg any] interface {
	core.Handler[Msg, struct{}]
}

// Request is what the inner handler sees: its own payload plus a copy of the queue.
type Request[Msg, Req any] struct {
	Queue   Sender[Msg]
	Payload Req
}

// Provider reduces a handler of Request[Msg, Req] to a handler of Req.
type Provider[Msg, Req, Resp any] struct {
	queue Sender[Msg]
	inner core.Handler[Request[Msg, Req], Resp]
}

// New wraps inner with queue. The queue value is copied into every request,
// so it should be cheap to copy.
func New[Msg, Req, Resp any](queue Sender[Msg], inner core.Handler[Request[Msg, Req], Resp]) *Provider[Msg, Req, Resp] {
	return &Provider[Msg, Req, Resp]{queue: queue, inner: inner}
}

// Ready probes the queue and the inner handler concurrently. It reports a
// failure of either side as soon as it is known, and waits for both only
// while neither has failed. An inner failure takes precedence over a queue
// failure. Readiness is an early hint: the queue may still fail by the time
// the inner handler uses it.
func (p *Provider[Msg, Req, Resp]) Ready(ctx context.Context) error {
	queueCtx, stopQueue := context.WithCancel(ctx)
	defer stopQueue()
	innerCtx, stopInner := context.WithCancel(ctx)
	defer stopInner()

	queueDone := make(chan error, 1)
	innerDone := make(chan error, 1)
	go func() { queueDone <- p.queue.Ready(queueCtx) }()
	go func() { innerDone <- p.inner.Ready(innerCtx) }()

	select {
	case err := <-innerDone:
		if err != nil {
			return innerError(err)
		}
		if err := <-queueDone; err != nil {
			return queueError(err)
		}
		return nil

	case queueErr := <-queueDone:
		if queueErr == nil {
			if err := <-innerDone; err != nil {
				return innerError(err)
			}
			return nil
		}
		// Stop a pending inner probe. If it fails for a reason of its own,
		// that failure still wins.
		stopInner()
		if err := <-innerDone; err != nil && !errors.Is(err, context.Canceled) {
			return innerError(err)
		}
		return queueError(queueErr)
	}
}

// Call invokes the inner handler with a copy of the queue. Every failure is
// reported as ErrInner: queue sends made by the inner handler are its own concern.
func (p *Provider[Msg, Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	resp, err := p.inner.Call(ctx, Request[Msg, Req]{Queue: p.queue, Payload: req})
	if err != nil {
		return resp, innerError(err)
	}
	return resp, nil
}

// Send waits for q to be ready and hands it msg.
func Send[Msg any](ctx context.Context, q Sender[Msg], msg Msg) error {
	if err := q.Ready(ctx); err != nil {
		return err
	}
	_, err := q.Call(ctx, msg)
	return err
}
