package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/queue"
)

// ClientActionRequest is what the client-action job receives: the action to
// execute and the queue to report meaningful responses to.
type ClientActionRequest = queue.Request[*core.ServerAction, discord.ClientAction]

// ClientActionJob executes outbound actions against Discord.
type ClientActionJob struct {
	exec    core.Handler[discord.ClientAction, *core.ActionResponse]
	timeout time.Duration
	logger  *slog.Logger
}

// NewClientActionJob creates the job. exec is usually the executor wrapped
// with retries; timeout bounds one action including its retries.
func NewClientActionJob(exec core.Handler[discord.ClientAction, *core.ActionResponse], timeout time.Duration, logger *slog.Logger) *ClientActionJob {
	return &ClientActionJob{exec: exec, timeout: timeout, logger: logger}
}

func (j *ClientActionJob) Ready(ctx context.Context) error {
	return j.exec.Ready(ctx)
}

func (j *ClientActionJob) Call(ctx context.Context, req ClientActionRequest) (struct{}, error) {
	logger := j.logger.With("action", req.Payload.Kind(), "action_id", uuid.NewString())

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := j.exec.Call(ctx, req.Payload)
	if err != nil {
		logger.Error("client action failed", "error", err, "duration", time.Since(start))
		return struct{}{}, err
	}
	logger.Info("client action executed", "duration", time.Since(start))

	if resp == nil {
		return struct{}{}, nil
	}
	return struct{}{}, queue.Send(ctx, req.Queue, core.ServerActionFromResponse(resp))
}
