// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/eris/internal/app"
	"github.com/sevigo/eris/internal/config"
	"github.com/sevigo/eris/internal/discord"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	slogLogger := provideSlogLogger(cfg)

	// Metrics
	metrics, err := provideMetrics(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	metricsHandler := provideMetricsHandler(metrics)

	// Discord REST session
	session, sessionCleanup, err := provideSession(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	verifier, err := provideVerifier(cfg)
	if err != nil {
		sessionCleanup()
		return nil, nil, fmt.Errorf("failed to create signature verifier: %w", err)
	}

	// Client actions
	clientActionHandler := provideClientActionHandler(cfg, session, metrics, slogLogger)
	clientActionJob := provideClientActionJob(cfg, clientActionHandler, slogLogger)

	// Outbox
	channelResolver := discord.NewChannelResolver(session)
	channelCache, err := provideChannelCache(cfg, channelResolver, metrics, slogLogger)
	if err != nil {
		sessionCleanup()
		return nil, nil, fmt.Errorf("failed to create channel cache: %w", err)
	}
	outbox := provideOutbox(channelCache, slogLogger)

	// Commands
	commands, err := provideCommands(cfg, slogLogger)
	if err != nil {
		sessionCleanup()
		return nil, nil, fmt.Errorf("failed to load commands: %w", err)
	}

	// Pipeline
	pipeline := providePipeline(cfg, commands, clientActionJob, outbox, metrics, slogLogger)

	// Server
	interactionHandler := provideInteractionHandler(pipeline, metrics, slogLogger)
	router := provideRouter(interactionHandler, verifier, metricsHandler, metrics, slogLogger)
	srv := provideServer(cfg, router, slogLogger)

	// App
	application := app.NewApp(cfg, srv, pipeline, metrics, slogLogger)

	cleanup := func() {
		sessionCleanup()
	}

	return application, cleanup, nil
}
