package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/sevigo/eris/internal/retry"
)

// ErrorKind classifies why a client action failed.
type ErrorKind int

const (
	// KindValidation means the action was rejected before anything was sent.
	KindValidation ErrorKind = iota + 1
	// KindServerError means Discord answered with a 5xx status.
	KindServerError
	// KindServiceUnavailable means Discord answered 503.
	KindServiceUnavailable
	// KindTimedOut means the request did not complete in time.
	KindTimedOut
	// KindTransport covers every other failed exchange, including 4xx answers.
	KindTransport
	// KindDecode means Discord accepted the action but its answer was unreadable.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServerError:
		return "server_error"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindTimedOut:
		return "timed_out"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ActionError is the error returned for a failed client action.
type ActionError struct {
	Kind   ErrorKind
	Action string
	// Status is the HTTP status Discord answered with, if any.
	Status int
	Err    error
}

func (e *ActionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("discord %s: %s (status %d): %v", e.Action, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("discord %s: %s: %v", e.Action, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func validationError(a ClientAction, err error) error {
	return &ActionError{Kind: KindValidation, Action: a.Kind(), Err: err}
}

// classifyTransport maps an error from the REST client to an ActionError.
func classifyTransport(action string, err error) error {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return err
	}

	e := &ActionError{Kind: KindTransport, Action: action, Err: err}

	var restErr *discordgo.RESTError
	var netErr net.Error
	switch {
	case errors.As(err, &restErr) && restErr.Response != nil:
		e.Status = restErr.Response.StatusCode
		switch {
		case e.Status == http.StatusServiceUnavailable:
			e.Kind = KindServiceUnavailable
		case e.Status >= 500:
			e.Kind = KindServerError
		}
	case exhaustedRetriesStatus(err) >= 500:
		e.Status = exhaustedRetriesStatus(err)
		e.Kind = KindServerError
	case errors.Is(err, discordgo.ErrJSONUnmarshal):
		e.Kind = KindDecode
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimedOut
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind = KindTimedOut
	}
	return e
}

// With MaxRestRetries at zero discordgo reports a 502 as a plain error
// rather than a RESTError.
var exhaustedRetries = regexp.MustCompile(`Exceeded Max retries HTTP (\d{3})`)

func exhaustedRetriesStatus(err error) int {
	m := exhaustedRetries.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	status, _ := strconv.Atoi(m[1])
	return status
}

// Classify decides whether a failed client action is worth retrying.
// Server-side trouble and timeouts are; everything else is not.
func Classify(err error) retry.Decision {
	var e *ActionError
	if !errors.As(err, &e) {
		return retry.Abort
	}
	switch e.Kind {
	case KindServerError, KindServiceUnavailable, KindTimedOut:
		return retry.Retry
	default:
		return retry.Abort
	}
}
