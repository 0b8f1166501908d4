package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender is a queue that keeps what it was sent.
type recordingSender[Msg any] struct {
	mu       sync.Mutex
	sent     []Msg
	readyErr error
	callErr  error
}

func (s *recordingSender[Msg]) Ready(context.Context) error { return s.readyErr }

func (s *recordingSender[Msg]) Call(_ context.Context, msg Msg) (struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callErr != nil {
		return struct{}{}, s.callErr
	}
	s.sent = append(s.sent, msg)
	return struct{}{}, nil
}

func (s *recordingSender[Msg]) messages() []Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Msg(nil), s.sent...)
}
