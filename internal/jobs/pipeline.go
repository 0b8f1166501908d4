package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/sevigo/eris/internal/background"
	"github.com/sevigo/eris/internal/batch"
	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/queue"
)

const (
	serverActionWorker = "server_actions"
	clientActionWorker = "client_actions"
)

// Metrics is what the pipeline records to. Any part may be nil.
type Metrics interface {
	background.MetricsRecorder
	batch.MetricsRecorder
}

// PipelineConfig holds the pipeline's tunables.
type PipelineConfig struct {
	OutboxSize   int
	BatchMaxSize int
	BatchMaxWait time.Duration
}

// Pipeline owns the two background workers and the outbox batcher.
type Pipeline struct {
	dispatcher    *Dispatcher
	clientActions background.Handle[discord.ClientAction, struct{}]
	outboxQueue   *queue.MemoryQueue[*discordgo.Message]
	outbox        *Outbox
	cfg           PipelineConfig
	metrics       Metrics
	logger        *slog.Logger
}

// NewPipeline spawns the workers. They run until Stop, independent of the
// request contexts that feed them.
func NewPipeline(cfg PipelineConfig, commands *core.CommandSet, clientJob *ClientActionJob, outbox *Outbox, metrics Metrics, logger *slog.Logger) *Pipeline {
	if cfg.OutboxSize < 1 {
		cfg.OutboxSize = 1
	}
	p := &Pipeline{
		dispatcher:  &Dispatcher{logger: logger},
		outboxQueue: queue.NewMemory[*discordgo.Message](cfg.OutboxSize),
		outbox:      outbox,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
	}

	ctx := context.Background()

	// Responses to client actions go back to the dispatcher, whose handle is
	// bound below, before anything can be dispatched.
	p.clientActions = background.Spawn[discord.ClientAction, struct{}](ctx,
		queue.New[*core.ServerAction, discord.ClientAction, struct{}](p.dispatcher, clientJob),
		background.WithName(clientActionWorker),
		background.WithLogger(logger),
		background.WithMetrics(metrics),
	)

	serverJob := NewServerActionJob(commands, p.outboxQueue, logger)
	p.dispatcher.handle = background.Spawn[*core.ServerAction, struct{}](ctx,
		queue.New[discord.ClientAction, *core.ServerAction, struct{}](asyncSender[discord.ClientAction]{handle: p.clientActions}, serverJob),
		background.WithName(serverActionWorker),
		background.WithLogger(logger),
		background.WithMetrics(metrics),
	)
	return p
}

// Dispatcher is the entry point for server actions.
func (p *Pipeline) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Run batches created messages into the outbox until Stop closes the outbox
// queue or ctx ends. Once Run returns nothing drains the outbox queue, so it
// is closed and later sends into it fail instead of blocking.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.outboxQueue.Close()

	batches := make(chan []*discordgo.Message)

	opts := []batch.Option{batch.WithLogger(p.logger)}
	if p.metrics != nil {
		opts = append(opts, batch.WithMetrics(p.metrics))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		return batch.Forward(gctx, p.outboxQueue.C(), batches, p.cfg.BatchMaxWait, p.cfg.BatchMaxSize, opts...)
	})
	g.Go(func() error {
		return p.outbox.Run(gctx, batches)
	})
	return g.Wait()
}

// Stop drains the pipeline front to back: server actions, then client
// actions, then the outbox queue.
func (p *Pipeline) Stop() {
	p.dispatcher.Stop()

	p.clientActions.Close()
	<-p.clientActions.Done()
	p.logger.Info("all client actions have been executed")

	p.outboxQueue.Close()
}
