package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/eris/internal/core"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func classifyTest(err error) Decision {
	if errors.Is(err, errFlaky) {
		return Retry
	}
	return Abort
}

var fastPolicy = Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

type countingHandler struct {
	calls    int
	failures []error
	readyErr error
}

func (c *countingHandler) Ready(context.Context) error { return c.readyErr }

func (c *countingHandler) Call(_ context.Context, req string) (string, error) {
	c.calls++
	if c.calls <= len(c.failures) {
		return "", c.failures[c.calls-1]
	}
	return req + "-ok", nil
}

func TestWrap_Call(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts uint
		failures    []error
		wantCalls   int
		wantErr     error
		wantResp    string
	}{
		{name: "success on first attempt", maxAttempts: 3, wantCalls: 1, wantResp: "msg-ok"},
		{name: "abort is returned immediately", maxAttempts: 3, failures: []error{errFatal}, wantCalls: 1, wantErr: errFatal},
		{name: "retry until success", maxAttempts: 5, failures: []error{errFlaky, errFlaky}, wantCalls: 3, wantResp: "msg-ok"},
		{name: "cap bounds persistent failures", maxAttempts: 4, failures: []error{errFlaky, errFlaky, errFlaky, errFlaky, errFlaky, errFlaky}, wantCalls: 4, wantErr: errFlaky},
		{name: "abort after a retry", maxAttempts: 5, failures: []error{errFlaky, errFatal}, wantCalls: 2, wantErr: errFatal},
		{name: "no cap keeps retrying", maxAttempts: 0, failures: []error{errFlaky, errFlaky, errFlaky, errFlaky, errFlaky, errFlaky, errFlaky}, wantCalls: 8, wantResp: "msg-ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingHandler{failures: tt.failures}
			p := fastPolicy
			p.MaxAttempts = tt.maxAttempts
			h := Wrap[string, string](inner, classifyTest, p)

			resp, err := h.Call(context.Background(), "msg")
			assert.Equal(t, tt.wantCalls, inner.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResp, resp)
		})
	}
}

func TestWrap_ReusesRequestVerbatim(t *testing.T) {
	var seen []int
	inner := core.HandlerFunc[int, int](func(_ context.Context, n int) (int, error) {
		seen = append(seen, n)
		if len(seen) < 3 {
			return 0, errFlaky
		}
		return n, nil
	})

	h := Wrap[int, int](inner, classifyTest, fastPolicy)
	got, err := h.Call(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []int{42, 42, 42}, seen)
}

func TestWrap_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	inner := core.HandlerFunc[string, string](func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "", errFlaky
	})

	h := Wrap[string, string](inner, classifyTest, Policy{InitialInterval: time.Hour})
	_, err := h.Call(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWrap_ReadyDelegates(t *testing.T) {
	unavailable := errors.New("unavailable")
	h := Wrap[string, string](&countingHandler{readyErr: unavailable}, classifyTest, fastPolicy)
	assert.ErrorIs(t, h.Ready(context.Background()), unavailable)
}

type metricsSpy struct {
	decisions []string
}

func (m *metricsSpy) RecordRetryAttempt(_ context.Context, _ string, decision string) {
	m.decisions = append(m.decisions, decision)
}

func TestWrap_RecordsDecisions(t *testing.T) {
	spy := &metricsSpy{}
	inner := &countingHandler{failures: []error{errFlaky, errFatal}}
	h := Wrap[string, string](inner, classifyTest, fastPolicy, WithMetrics(spy), WithName("test"))

	_, err := h.Call(context.Background(), "x")
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, []string{"retry", "abort"}, spy.decisions)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "abort", Abort.String())
	assert.Equal(t, "retry", Retry.String())
}
