package background

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is reported by Ready once the worker no longer accepts requests.
	ErrStopped = errors.New("background worker stopped")
	// ErrRequestNotSent means the request never reached the worker.
	ErrRequestNotSent = errors.New("worker closed channel before request was sent")
	// ErrResponseNotReceived means the worker took the request but never replied,
	// either because it stopped or because the request's deadline expired.
	ErrResponseNotReceived = errors.New("worker closed channel before responding")
)

// RequestNotSentError hands the undelivered request back to the caller so it
// is not silently lost.
type RequestNotSentError[Req any] struct {
	Request Req
}

func (e *RequestNotSentError[Req]) Error() string {
	return fmt.Sprintf("%s: %T", ErrRequestNotSent, e.Request)
}

// Unwrap lets errors.Is match both ErrRequestNotSent and ErrStopped.
func (e *RequestNotSentError[Req]) Unwrap() []error {
	return []error{ErrRequestNotSent, ErrStopped}
}
