package chat

import (
	"errors"
	"net/http"

	"github.com/docuchat/internal/assistant"
)

// Kind tags the closed set of failure classes chat operations can return.
// Callers match on the kind (via errors.As on *Error) instead of probing
// ad hoc fields.
type Kind int

const (
	// KindInvalidRequest means the caller supplied missing or malformed input.
	KindInvalidRequest Kind = iota
	// KindThreadNotFound means the thread id was never registered in this process.
	KindThreadNotFound
	// KindUpstreamUnavailable means the assistant platform errored or was unreachable.
	KindUpstreamUnavailable
	// KindRunFailed means a run reached a terminal state other than completed.
	KindRunFailed
	// KindMalformedUpstreamResponse means a run completed but the response
	// had an unexpected shape.
	KindMalformedUpstreamResponse
	// KindLocalResource means a staged file could not be read or deleted.
	KindLocalResource
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindThreadNotFound:
		return "thread_not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindRunFailed:
		return "run_failed"
	case KindMalformedUpstreamResponse:
		return "malformed_upstream_response"
	case KindLocalResource:
		return "local_resource"
	}
	return "unknown"
}

// Error is a tagged chat failure carrying the HTTP status the API surface
// should report.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps any error to the status the API should respond with.
// Untagged errors report as internal failures.
func HTTPStatus(err error) int {
	var chatErr *Error
	if errors.As(err, &chatErr) && chatErr.Status != 0 {
		return chatErr.Status
	}
	return http.StatusInternalServerError
}

// KindOf returns the failure class of err, or ok=false for untagged errors.
func KindOf(err error) (Kind, bool) {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind, true
	}
	return 0, false
}

func errThreadNotFound(threadID string) *Error {
	return &Error{
		Kind:    KindThreadNotFound,
		Status:  http.StatusNotFound,
		Message: "unknown thread id: " + threadID,
	}
}

// errUpstream wraps a gateway failure, propagating the platform's reported
// status when present and defaulting to 500 otherwise.
func errUpstream(op string, err error) *Error {
	status := http.StatusInternalServerError
	message := op + ": " + err.Error()

	var apiErr *assistant.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode != 0 {
			status = apiErr.StatusCode
		}
		if apiErr.Message != "" {
			message = op + ": " + apiErr.Message
		}
	}

	return &Error{
		Kind:    KindUpstreamUnavailable,
		Status:  status,
		Message: message,
		Err:     err,
	}
}
