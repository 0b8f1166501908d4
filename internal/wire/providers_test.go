package wire

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/eris/internal/app"
	"github.com/sevigo/eris/internal/config"
	"github.com/sevigo/eris/internal/discord"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvideMetrics(t *testing.T) {
	cfg := &config.Config{}

	m, err := provideMetrics(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Nil(t, provideMetricsHandler(m))

	cfg.Metrics.Enabled = true
	m, err = provideMetrics(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.NotNil(t, provideMetricsHandler(m))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestProvideCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yml")
	require.NoError(t, os.WriteFile(path, []byte("commands:\n  - name: hello\n    reply: hi\n"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantCmd string
	}{
		{name: "missing file falls back to defaults", path: filepath.Join(dir, "nope.yml"), wantCmd: "ping"},
		{name: "file is loaded", path: path, wantCmd: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Discord.CommandsFile = tt.path

			commands, err := provideCommands(cfg, discardLogger())
			require.NoError(t, err)
			_, ok := commands.Lookup(tt.wantCmd)
			assert.True(t, ok)
		})
	}
}

// Every provider in AppSet must have a shape wire can generate from:
// (T), (T, error) or (T, func(), error), with each T provided once.
func TestAppSetProviderShapes(t *testing.T) {
	providers := []any{
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
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	cleanupType := reflect.TypeOf(func() {})
	provided := map[reflect.Type]bool{}

	for _, p := range providers {
		fn := reflect.TypeOf(p)
		require.Equal(t, reflect.Func, fn.Kind())

		switch fn.NumOut() {
		case 1:
		case 2:
			assert.Equal(t, errorType, fn.Out(1), "%s", fn)
		case 3:
			assert.Equal(t, cleanupType, fn.Out(1), "%s", fn)
			assert.Equal(t, errorType, fn.Out(2), "%s", fn)
		default:
			t.Fatalf("provider %s returns %d values", fn, fn.NumOut())
		}

		out := fn.Out(0)
		assert.False(t, provided[out], "%s is provided twice", out)
		provided[out] = true
	}
}
