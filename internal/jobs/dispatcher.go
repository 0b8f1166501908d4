// Package jobs wires the bridge pipeline: inbound server actions fan out into
// outbound client actions, whose responses flow back in and, for created
// messages, on to the federation outbox.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/eris/internal/background"
	"github.com/sevigo/eris/internal/core"
)

// Dispatcher implements core.JobDispatcher on top of the background worker
// that runs the server-action job. It is also a queue.Sender, so the client
// action worker can report responses back through it.
type Dispatcher struct {
	handle background.Handle[*core.ServerAction, struct{}]
	logger *slog.Logger
}

var _ core.JobDispatcher = (*Dispatcher)(nil)

// Dispatch queues an action for the server-action worker without waiting
// for it to be processed.
func (d *Dispatcher) Dispatch(_ context.Context, action *core.ServerAction) error {
	if action == nil || action.Kind() == "empty" {
		return fmt.Errorf("cannot dispatch %s server action", action.Kind())
	}
	d.logger.Debug("queuing server action", "kind", action.Kind(), "pending", d.handle.Len())
	if err := d.handle.FireAndForget(action); err != nil {
		return fmt.Errorf("server action queue is closed: %w", err)
	}
	return nil
}

// Ready reports whether the worker still accepts actions.
func (d *Dispatcher) Ready(ctx context.Context) error {
	return d.handle.Ready(ctx)
}

// Call is Dispatch in queue form.
func (d *Dispatcher) Call(ctx context.Context, action *core.ServerAction) (struct{}, error) {
	return struct{}{}, d.Dispatch(ctx, action)
}

// Stop closes the queue and waits for queued actions to finish.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for queued server actions")
	d.handle.Close()
	<-d.handle.Done()
	d.logger.Info("all server actions have been processed")
}

// asyncSender makes a background handle usable as a non-blocking queue.
type asyncSender[Msg any] struct {
	handle background.Handle[Msg, struct{}]
}

func (s asyncSender[Msg]) Ready(ctx context.Context) error {
	return s.handle.Ready(ctx)
}

func (s asyncSender[Msg]) Call(_ context.Context, msg Msg) (struct{}, error) {
	return struct{}{}, s.handle.FireAndForget(msg)
}
