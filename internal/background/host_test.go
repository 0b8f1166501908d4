package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/eris/internal/core"
	"github.com/sevigo/eris/internal/testutil"
)

// recorder is deliberately unsynchronized: the worker is its only user.
type recorder struct {
	seen []int
}

func (r *recorder) Ready(context.Context) error { return nil }

func (r *recorder) Call(_ context.Context, n int) (int, error) {
	r.seen = append(r.seen, n)
	return len(r.seen), nil
}

func TestHandle_FIFO(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	h := Spawn[int, int](ctx, rec)

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.FireAndForget(i))
	}
	pos, err := h.Call(ctx, 6)
	require.NoError(t, err)

	assert.Equal(t, 6, pos)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, rec.seen)
}

func TestHandle_ConcurrentCallersShareOneWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	h := Spawn[int, int](ctx, rec)

	var wg sync.WaitGroup
	for i := range 50 {
		copyOfHandle := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := copyOfHandle.Call(ctx, i)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.ElementsMatch(t, want, rec.seen)
}

func TestHandle_ResponsesFollowSubmissionOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Spawn[int, int](ctx, &recorder{})

	results := make([]chan int, 10)
	for i := range results {
		results[i] = make(chan int, 1)
		go func() {
			pos, err := h.Call(ctx, i)
			assert.NoError(t, err)
			results[i] <- pos
		}()
		pos := testutil.Receive(t, results[i], time.Second)
		assert.Equal(t, i+1, pos)
	}
}

func TestHandle_HandlerErrorIsReturnedVerbatim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	h := Spawn[string, string](ctx, core.HandlerFunc[string, string](func(context.Context, string) (string, error) {
		return "", boom
	}))

	_, err := h.Call(ctx, "x")
	assert.Same(t, boom, err)
}

type notReady struct{ err error }

func (n notReady) Ready(context.Context) error { return n.err }
func (n notReady) Call(context.Context, string) (string, error) {
	panic("Call must not run when Ready fails")
}

func TestHandle_ReadinessErrorIsDelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unavailable := errors.New("downstream unavailable")
	h := Spawn[string, string](ctx, notReady{err: unavailable})

	_, err := h.Call(ctx, "x")
	assert.ErrorIs(t, err, unavailable)
}

func TestHandle_CallAfterCloseReturnsRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Spawn[string, int](ctx, core.HandlerFunc[string, int](func(_ context.Context, s string) (int, error) {
		return len(s), nil
	}))
	h.Close()
	testutil.Receive(t, h.Done(), time.Second)

	_, err := h.Call(ctx, "payload")
	require.ErrorIs(t, err, ErrRequestNotSent)

	var notSent *RequestNotSentError[string]
	require.ErrorAs(t, err, &notSent)
	assert.Equal(t, "payload", notSent.Request)
	assert.ErrorIs(t, h.Ready(ctx), ErrStopped)
}

func TestHandle_CloseDrainsQueuedRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var handled []string
	h := Spawn[string, struct{}](ctx, core.HandlerFunc[string, struct{}](func(_ context.Context, s string) (struct{}, error) {
		<-release
		handled = append(handled, s)
		return struct{}{}, nil
	}))

	require.NoError(t, h.FireAndForget("a"))
	require.NoError(t, h.FireAndForget("b"))
	h.Close()
	assert.Error(t, h.FireAndForget("c"))

	close(release)
	testutil.Receive(t, h.Done(), time.Second)
	assert.Equal(t, []string{"a", "b"}, handled)
}

func TestHandle_FireAndForgetAfterShutdownDoesNotPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Spawn[int, int](ctx, &recorder{})
	cancel()
	testutil.Receive(t, h.Done(), time.Second)

	assert.NotPanics(t, func() {
		err := h.FireAndForget(1)
		assert.ErrorIs(t, err, ErrRequestNotSent)
	})

	_, err := h.Call(context.Background(), 2)
	assert.ErrorIs(t, err, ErrRequestNotSent)
}

func TestHandle_PanicStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Spawn[string, string](ctx, core.HandlerFunc[string, string](func(_ context.Context, s string) (string, error) {
		if s == "panic" {
			panic("handler bug")
		}
		return s, nil
	}))

	_, err := h.Call(ctx, "panic")
	assert.ErrorIs(t, err, ErrResponseNotReceived)

	testutil.Receive(t, h.Done(), time.Second)
	_, err = h.Call(ctx, "after")
	assert.ErrorIs(t, err, ErrRequestNotSent)
}

func TestHandle_CallWithTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Spawn[time.Duration, string](ctx, core.HandlerFunc[time.Duration, string](func(_ context.Context, d time.Duration) (string, error) {
		time.Sleep(d)
		return fmt.Sprintf("slept %s", d), nil
	}))

	_, err := h.CallWithTimeout(ctx, 100*time.Millisecond, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrResponseNotReceived)

	got, err := h.CallWithTimeout(ctx, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "slept 0s", got)
}

func TestFinishedInTime(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	deadline, _ := ctx.Deadline()

	returned := time.Now()
	// The deadline passes before the worker looks at the result.
	<-ctx.Done()
	require.Error(t, ctx.Err())

	assert.True(t, finishedInTime(ctx, returned))
	assert.False(t, finishedInTime(ctx, deadline))
	assert.False(t, finishedInTime(ctx, deadline.Add(time.Millisecond)))
	assert.True(t, finishedInTime(context.Background(), time.Now()))
}

func TestHandle_CallWithTimeoutDeliversResultProducedInTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Spawn[string, string](ctx, core.HandlerFunc[string, string](func(_ context.Context, s string) (string, error) {
		return s, nil
	}))

	for range 20 {
		got, err := h.CallWithTimeout(ctx, "fast", 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "fast", got)
	}
}

func TestHandle_CallerMayStopWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	done := make(chan string, 1)
	h := Spawn[string, string](ctx, core.HandlerFunc[string, string](func(_ context.Context, s string) (string, error) {
		<-release
		done <- s
		return s, nil
	}))

	callCtx, stopWaiting := context.WithCancel(ctx)
	stopWaiting()
	_, err := h.Call(callCtx, "abandoned")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Equal(t, "abandoned", testutil.Receive(t, done, time.Second))
}

func TestHandle_WorkerCancellationReleasesCallers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	h := Spawn[string, string](ctx, core.HandlerFunc[string, string](func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}))

	first := make(chan error, 1)
	go func() {
		_, err := h.Call(context.Background(), "first")
		first <- err
	}()
	testutil.Receive(t, started, time.Second)

	second := make(chan error, 1)
	go func() {
		_, err := h.Call(context.Background(), "second")
		second <- err
	}()
	testutil.MustWaitFor(t, func() bool { return h.Len() == 1 })

	cancel()
	assert.ErrorIs(t, testutil.Receive(t, first, time.Second), ErrResponseNotReceived)
	assert.ErrorIs(t, testutil.Receive(t, second, time.Second), ErrResponseNotReceived)
}

func TestHandle_ZeroValue(t *testing.T) {
	var h Handle[int, int]
	_, err := h.Call(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRequestNotSent)
	assert.ErrorIs(t, h.FireAndForget(1), ErrRequestNotSent)
	assert.ErrorIs(t, h.Ready(context.Background()), ErrStopped)
}
