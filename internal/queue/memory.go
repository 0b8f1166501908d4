package queue

import (
	"context"
	"sync"
)

// MemoryQueue is an in-memory queue backed by a channel. Any number of
// producers may send into it; the owner consumes C.
type MemoryQueue[Msg any] struct {
	ch chan Msg
	// done is closed first on Close so blocked senders let go of mu.
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewMemory creates a queue with the given buffer size.
func NewMemory[Msg any](size int) *MemoryQueue[Msg] {
	return &MemoryQueue[Msg]{ch: make(chan Msg, size), done: make(chan struct{})}
}

// C is the consuming end. It is closed by Close.
func (q *MemoryQueue[Msg]) C() <-chan Msg { return q.ch }

// Ready reports ErrQueueClosed once the queue is closed.
func (q *MemoryQueue[Msg]) Ready(context.Context) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Call enqueues msg, blocking while the buffer is full. A sender blocked on
// a full buffer fails with ErrQueueClosed when the queue is closed.
func (q *MemoryQueue[Msg]) Call(ctx context.Context, msg Msg) (struct{}, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return struct{}{}, ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return struct{}{}, nil
	case <-q.done:
		return struct{}{}, ErrQueueClosed
	case <-ctx.Done():
		return struct{}{}, ctx.Err()
	}
}

// Close closes the consuming channel. Later sends fail with ErrQueueClosed.
func (q *MemoryQueue[Msg]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
