package wire

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/google/wire"

	"github.com/sevigo/eris/internal/app"
	"github.com/sevigo/eris/internal/cache"
	"github.com/sevigo/eris/internal/config"
	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/jobs"
	"github.com/sevigo/eris/internal/logger"
	"github.com/sevigo/eris/internal/observability"
	"github.com/sevigo/eris/internal/retry"
	"github.com/sevigo/eris/internal/server"
	"github.com/sevigo/eris/internal/server/handler"
)

// MetricsHandler serves the Prometheus scrape endpoint. Nil when metrics are
// disabled.
type MetricsHandler http.Handler

// ClientActionHandler executes client actions against Discord with retries.
type ClientActionHandler = core.Handler[discord.ClientAction, *core.ActionResponse]

// ChannelCache resolves channel metadata through the cache.
type ChannelCache = *cache.Aside[core.ChannelQuery, core.ChannelInfo]

var AppSet = wire.NewSet(
	app.NewApp,
	config.LoadConfig,
	discord.NewChannelResolver,
	provideSlogLogger,
	provideMetrics,
	provideMetricsHandler,
	provideSession,
	provideVerifier,
	provideClientActionHandler,
	provideClientActionJob,
	provideChannelCache,
	provideOutbox,
	provideCommands,
	providePipeline,
	provideInteractionHandler,
	provideRouter,
	provideServer,
)

func provideSlogLogger(cfg *config.Config) *slog.Logger {
	l := logger.NewLogger(cfg.Logging, nil)
	slog.SetDefault(l)
	return l
}

func provideMetrics(ctx context.Context, cfg *config.Config) (*observability.Metrics, error) {
	if !cfg.Metrics.Enabled {
		return observability.NewNoopMetrics(), nil
	}
	return observability.NewMetrics(ctx)
}

func provideMetricsHandler(m *observability.Metrics) MetricsHandler {
	if h := m.Handler(); h != nil {
		return h
	}
	return nil
}

func provideSession(cfg *config.Config) (*discordgo.Session, func(), error) {
	session, err := discord.NewSession(cfg.Discord.BotToken, cfg.Discord.RequestTimeout)
	if err != nil {
		return nil, nil, err
	}
	return session, func() { _ = session.Close() }, nil
}

func provideVerifier(cfg *config.Config) (*discord.Verifier, error) {
	return discord.NewVerifier(cfg.Discord.PublicKey)
}

func provideClientActionHandler(cfg *config.Config, session *discordgo.Session, metrics *observability.Metrics, logger *slog.Logger) ClientActionHandler {
	exec := discord.NewRESTExecutor(session, cfg.Discord.ApplicationID, logger)
	return retry.Wrap[discord.ClientAction, *core.ActionResponse](
		discord.NewExecutorHandler(exec),
		discord.Classify,
		retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
		retry.WithName("discord"),
		retry.WithLogger(logger),
		retry.WithMetrics(metrics),
	)
}

func provideClientActionJob(cfg *config.Config, exec ClientActionHandler, logger *slog.Logger) *jobs.ClientActionJob {
	return jobs.NewClientActionJob(exec, cfg.Queue.CallTimeout, logger)
}

func provideChannelCache(cfg *config.Config, resolver *discord.ChannelResolver, metrics *observability.Metrics, logger *slog.Logger) (ChannelCache, error) {
	return cache.NewAside[core.ChannelQuery, core.ChannelInfo](
		resolver,
		cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		cache.WithName("channels"),
		cache.WithLogger(logger),
		cache.WithMetrics(metrics),
	)
}

func provideOutbox(channels ChannelCache, logger *slog.Logger) *jobs.Outbox {
	return jobs.NewOutbox(channels, nil, logger)
}

func provideCommands(cfg *config.Config, logger *slog.Logger) (*core.CommandSet, error) {
	commands, err := config.LoadCommands(cfg.Discord.CommandsFile)
	if errors.Is(err, config.ErrConfigNotFound) {
		logger.Warn("commands file not found, using defaults", "path", cfg.Discord.CommandsFile)
		return commands, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("loaded commands", "path", cfg.Discord.CommandsFile, "count", len(commands.Commands))
	return commands, nil
}

func providePipeline(cfg *config.Config, commands *core.CommandSet, clientJob *jobs.ClientActionJob, outbox *jobs.Outbox, metrics *observability.Metrics, logger *slog.Logger) *jobs.Pipeline {
	return jobs.NewPipeline(jobs.PipelineConfig{
		OutboxSize:   cfg.Queue.OutboxSize,
		BatchMaxSize: cfg.Batch.MaxSize,
		BatchMaxWait: cfg.Batch.MaxWait,
	}, commands, clientJob, outbox, metrics, logger)
}

func provideInteractionHandler(p *jobs.Pipeline, metrics *observability.Metrics, logger *slog.Logger) *handler.InteractionHandler {
	return handler.NewInteractionHandler(jobs.NewInteractionHandler(p.Dispatcher()), metrics, logger)
}

func provideRouter(interactions *handler.InteractionHandler, verifier *discord.Verifier, metricsHandler MetricsHandler, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	return server.NewRouter(server.RouterDeps{
		Interactions:   interactions,
		Verifier:       verifier,
		MetricsHandler: metricsHandler,
		Metrics:        metrics,
		Logger:         logger,
	})
}

func provideServer(cfg *config.Config, router http.Handler, logger *slog.Logger) app.HTTPServer {
	return server.NewServer(cfg, router, logger)
}
