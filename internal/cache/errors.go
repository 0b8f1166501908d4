package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrSerialize means a cache key or a response could not be encoded.
	ErrSerialize = errors.New("cache: serialization failed")
	// ErrDeserialize means stored bytes could not be decoded into the response type.
	ErrDeserialize = errors.New("cache: deserialization failed")
	// ErrInner means the wrapped handler was asked and failed.
	ErrInner = errors.New("cache: inner handler failed")
	// ErrCache means the store itself failed. The in-memory store never does.
	ErrCache = errors.New("cache: store failed")
)

// Error carries one of the sentinel kinds above and the underlying cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == ErrInner {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func wrap(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}
