package background

import (
	"context"
	"time"
)

// Handle is a concurrency-safe reference to a single worker. Copying a Handle
// is cheap and every copy feeds the same FIFO queue.
type Handle[Req, Resp any] struct {
	w *worker[Req, Resp]
}

// Call submits req and waits for the worker's reply. If ctx ends first the
// caller stops waiting, but the worker still runs the request.
func (h Handle[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	return h.submit(ctx, req, 0)
}

// CallWithTimeout is like Call, but the worker gives the handler at most d to
// produce a result. When d expires the worker moves on without replying, so
// the caller sees ErrResponseNotReceived.
func (h Handle[Req, Resp]) CallWithTimeout(ctx context.Context, req Req, d time.Duration) (Resp, error) {
	return h.submit(ctx, req, d)
}

// FireAndForget submits req without waiting. Only submission failures are
// reported; handler errors are logged by the worker.
func (h Handle[Req, Resp]) FireAndForget(req Req) error {
	if h.w == nil || !h.w.mailbox.push(request[Req, Resp]{payload: req}) {
		return &RequestNotSentError[Req]{Request: req}
	}
	h.recordSubmitted()
	return nil
}

// Ready reports ErrStopped once the worker stopped accepting requests. A nil
// result is an early hint only; the worker may still stop before the next Call.
func (h Handle[Req, Resp]) Ready(_ context.Context) error {
	if h.w == nil || h.w.mailbox.isClosed() {
		return ErrStopped
	}
	return nil
}

// Close stops accepting new requests. Requests already queued are still
// processed before the worker exits. Close is idempotent.
func (h Handle[Req, Resp]) Close() {
	if h.w != nil {
		h.w.mailbox.close()
	}
}

// Done is closed once the worker has exited.
func (h Handle[Req, Resp]) Done() <-chan struct{} {
	if h.w == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.w.done
}

// Len returns the number of requests waiting to be processed.
func (h Handle[Req, Resp]) Len() int {
	if h.w == nil {
		return 0
	}
	return h.w.mailbox.len()
}

func (h Handle[Req, Resp]) submit(ctx context.Context, payload Req, timeout time.Duration) (Resp, error) {
	var zero Resp
	if h.w == nil {
		return zero, &RequestNotSentError[Req]{Request: payload}
	}

	reply := make(chan result[Resp], 1)
	if !h.w.mailbox.push(request[Req, Resp]{payload: payload, reply: reply, timeout: timeout}) {
		return zero, &RequestNotSentError[Req]{Request: payload}
	}
	h.recordSubmitted()

	select {
	case res, ok := <-reply:
		if !ok {
			return zero, ErrResponseNotReceived
		}
		return res.resp, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h Handle[Req, Resp]) recordSubmitted() {
	if h.w.metrics != nil {
		h.w.metrics.RecordBackgroundSubmitted(context.Background(), h.w.name)
	}
}
