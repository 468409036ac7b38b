package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when submit is triggered with an empty file selection.
	ErrNoFiles = errors.New("no file selected")
	// ErrBusy is returned when submit is triggered while a submission is in flight.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrUnbound is returned by Submit on the nil controller Bind hands out.
	ErrUnbound = errors.New("controller is not bound to a page")
)

// RemoteRejectionError is a non-2xx answer from the upload endpoint.
type RemoteRejectionError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server responded with status %d", e.StatusCode)
	}
	return e.Body
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// OutcomeKind tags the result of one Submit call.
type OutcomeKind int

const (
	// OutcomeIgnored means the click arrived while another submission was running.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeRejected means local validation failed and nothing was sent.
	OutcomeRejected
	OutcomeSuccess
	OutcomeRemoteRejection
	OutcomeTransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuccess:
		return "success"
	case OutcomeRemoteRejection:
		return "remote_rejection"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Result is the tagged outcome of a submission. Detail is the text surfaced to the
// user on failure; StatusCode is set whenever a response was received.
type Result struct {
	Kind       OutcomeKind
	StatusCode int
	Detail     string
	Err        error
}

// Failed reports whether the submission ended on the failure path.
func (r Result) Failed() bool {
	return r.Kind == OutcomeRemoteRejection || r.Kind == OutcomeTransportFailure
}

// State is the controller's position in the submit cycle.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
