package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/eris/internal/retry"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func restError(status int) error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: status, Status: http.StatusText(status)},
		ResponseBody: []byte(`{}`),
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
	}{
		{name: "503", err: restError(http.StatusServiceUnavailable), wantKind: KindServiceUnavailable, wantStatus: 503},
		{name: "500", err: restError(http.StatusInternalServerError), wantKind: KindServerError, wantStatus: 500},
		{name: "502", err: restError(http.StatusBadGateway), wantKind: KindServerError, wantStatus: 502},
		{name: "502 after exhausted retries", err: fmt.Errorf("Exceeded Max retries HTTP %s, %s", "502 Bad Gateway", []byte("upstream down")), wantKind: KindServerError, wantStatus: 502},
		{name: "404", err: restError(http.StatusNotFound), wantKind: KindTransport, wantStatus: 404},
		{name: "403", err: restError(http.StatusForbidden), wantKind: KindTransport, wantStatus: 403},
		{name: "undecodable body", err: fmt.Errorf("%w: unexpected end of JSON input", discordgo.ErrJSONUnmarshal), wantKind: KindDecode},
		{name: "deadline", err: fmt.Errorf("Post: %w", context.DeadlineExceeded), wantKind: KindTimedOut},
		{name: "network timeout", err: timeoutError{}, wantKind: KindTimedOut},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantKind: KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyTransport(KindCreateMessage, tt.err)
			var actionErr *ActionError
			require.ErrorAs(t, err, &actionErr)
			assert.Equal(t, tt.wantKind, actionErr.Kind)
			assert.Equal(t, tt.wantStatus, actionErr.Status)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyTransport_SessionErrors(t *testing.T) {
	tests := []struct {
		status       int
		wantKind     ErrorKind
		wantDecision retry.Decision
	}{
		{status: http.StatusBadGateway, wantKind: KindServerError, wantDecision: retry.Retry},
		{status: http.StatusInternalServerError, wantKind: KindServerError, wantDecision: retry.Retry},
		{status: http.StatusServiceUnavailable, wantKind: KindServiceUnavailable, wantDecision: retry.Retry},
		{status: http.StatusNotFound, wantKind: KindTransport, wantDecision: retry.Abort},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope","code":0}`))
			}))
			defer srv.Close()

			session, err := NewSession("token", time.Second)
			require.NoError(t, err)

			_, reqErr := session.Request(http.MethodGet, srv.URL+"/channels/1", nil)
			require.Error(t, reqErr)

			err = classifyTransport(KindCreateMessage, reqErr)
			var actionErr *ActionError
			require.ErrorAs(t, err, &actionErr)
			assert.Equal(t, tt.wantKind, actionErr.Kind)
			assert.Equal(t, tt.status, actionErr.Status)
			assert.Equal(t, tt.wantDecision, Classify(err))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Decision
	}{
		{name: "validation", err: &ActionError{Kind: KindValidation}, want: retry.Abort},
		{name: "server error", err: &ActionError{Kind: KindServerError}, want: retry.Retry},
		{name: "service unavailable", err: &ActionError{Kind: KindServiceUnavailable}, want: retry.Retry},
		{name: "timed out", err: &ActionError{Kind: KindTimedOut}, want: retry.Retry},
		{name: "other transport", err: &ActionError{Kind: KindTransport}, want: retry.Abort},
		{name: "decode", err: &ActionError{Kind: KindDecode}, want: retry.Abort},
		{name: "wrapped retryable", err: fmt.Errorf("executing: %w", &ActionError{Kind: KindServerError}), want: retry.Retry},
		{name: "unknown error", err: errors.New("something else"), want: retry.Abort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			// Classification is pure.
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
