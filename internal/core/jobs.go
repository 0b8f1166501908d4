// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
)

// Handler is a unit of request-processing logic. A Handler makes no promise
// about concurrent use; wrap it in a background host when several callers
// need to share it.
type Handler[Req, Resp any] interface {
	// Ready blocks until the handler can accept a request. It returns an
	// error when the handler is no longer usable.
	Ready(ctx context.Context) error
	// Call processes a single request.
	Call(ctx context.Context, req Req) (Resp, error)
}

// HandlerFunc adapts a plain function to the Handler interface. It is always ready.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Ready implements Handler.
func (f HandlerFunc[Req, Resp]) Ready(context.Context) error { return nil }

// Call implements Handler.
func (f HandlerFunc[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}

// JobDispatcher defines the contract for a system that can accept and queue
// server actions for asynchronous processing. This interface decouples the
// event source (e.g., the interactions webhook) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a ServerAction and queues it for processing.
	// It returns an error only if the action cannot be queued.
	Dispatch(ctx context.Context, action *ServerAction) error

	// Stop closes the queue and waits for queued actions to finish.
	Stop()
}
