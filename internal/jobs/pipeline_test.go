package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/discord"
	"github.com/sevigo/eris/internal/testutil"
	"github.com/sevigo/eris/mocks"
)

func TestPipeline_EchoCommandIsFederated(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	var mu sync.Mutex
	var executed []discord.ClientAction
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, action discord.ClientAction) (*core.ActionResponse, error) {
			mu.Lock()
			executed = append(executed, action)
			mu.Unlock()
			if create, ok := action.(discord.CreateMessage); ok {
				return &core.ActionResponse{Message: &discordgo.Message{
					ID:        "777",
					ChannelID: create.ChannelID,
					Content:   create.Message.Text,
				}}, nil
			}
			return nil, nil
		}).Times(2)

	dir := &channelDirectory{channels: map[string]core.ChannelInfo{"555": {ID: "555", Name: "bridge"}}}
	notes := make(chan Note, 1)
	outbox := NewOutbox(newChannelCache(t, dir), func(_ context.Context, n Note) { notes <- n }, discardLogger())

	p := NewPipeline(
		PipelineConfig{OutboxSize: 4, BatchMaxSize: 10, BatchMaxWait: 20 * time.Millisecond},
		testCommands,
		NewClientActionJob(discord.NewExecutorHandler(exec), time.Second, discardLogger()),
		outbox,
		nil,
		discardLogger(),
	)

	runErr := make(chan error, 1)
	go func() { runErr <- p.Run(context.Background()) }()

	interaction := commandInteraction("post", textOption("hello fediverse"))
	resp, err := NewInteractionHandler(p.Dispatcher()).Call(context.Background(), interaction)
	require.NoError(t, err)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, resp.Type)

	note := testutil.Receive(t, notes, 2*time.Second)
	assert.Equal(t, "777", note.MessageID)
	assert.Equal(t, "bridge", note.Channel.Name)
	assert.Equal(t, "hello fediverse", note.Content)

	p.Stop()
	assert.NoError(t, testutil.Receive(t, runErr, 2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, executed, 2)
	assert.Equal(t, discord.KindUpdateInteractionResponse, executed[0].Kind())
	assert.Equal(t, discord.KindCreateMessage, executed[1].Kind())
}

func TestPipeline_DispatchAfterStopFails(t *testing.T) {
	dir := &channelDirectory{}
	p := NewPipeline(
		PipelineConfig{OutboxSize: 1, BatchMaxSize: 1, BatchMaxWait: time.Millisecond},
		testCommands,
		NewClientActionJob(discord.NewExecutorHandler(mocks.NewMockExecutor(gomock.NewController(t))), time.Second, discardLogger()),
		NewOutbox(newChannelCache(t, dir), nil, discardLogger()),
		nil,
		discardLogger(),
	)
	p.Stop()

	err := p.Dispatcher().Dispatch(context.Background(), core.ServerActionFromInteraction(commandInteraction("ping")))
	assert.Error(t, err)
	assert.Error(t, p.Dispatcher().Ready(context.Background()))
	assert.Error(t, p.Dispatcher().Dispatch(context.Background(), nil))
}

func TestPipeline_StopAfterRunEndedDoesNotHang(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, action discord.ClientAction) (*core.ActionResponse, error) {
			if create, ok := action.(discord.CreateMessage); ok {
				return &core.ActionResponse{Message: &discordgo.Message{ID: "1", ChannelID: create.ChannelID}}, nil
			}
			return nil, nil
		}).AnyTimes()

	p := NewPipeline(
		PipelineConfig{OutboxSize: 1, BatchMaxSize: 10, BatchMaxWait: time.Second},
		testCommands,
		NewClientActionJob(discord.NewExecutorHandler(exec), time.Second, discardLogger()),
		NewOutbox(newChannelCache(t, &channelDirectory{}), nil, discardLogger()),
		nil,
		discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Run(ctx), context.Canceled)

	// More created messages than the outbox holds, with nobody draining it.
	for range 3 {
		err := p.Dispatcher().Dispatch(context.Background(), core.ServerActionFromResponse(&core.ActionResponse{
			Message: &discordgo.Message{ID: "2", ChannelID: "3"},
		}))
		require.NoError(t, err)
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	testutil.Receive(t, stopped, 2*time.Second)
}
