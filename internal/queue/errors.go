package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrQueue marks a failure reported by the injected queue.
	ErrQueue = errors.New("queueing service error")
	// ErrInner marks a failure reported by the wrapped handler.
	ErrInner = errors.New("inner service error")
	// ErrQueueClosed is returned when sending into a closed MemoryQueue.
	ErrQueueClosed = errors.New("queue closed")
)

// Error tags a failure with the side of the layer it came from. errors.Is
// matches both the kind (ErrQueue or ErrInner) and the underlying cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func queueError(err error) error { return &Error{Kind: ErrQueue, Err: err} }

func innerError(err error) error { return &Error{Kind: ErrInner, Err: err} }
