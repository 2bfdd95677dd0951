package extractor

import (
	"errors"
	"net/http"
)

// Kind classifies extraction failures
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindToolNotFound      Kind = "tool_not_found"
	KindExternalTool      Kind = "external_tool_error"
	KindMalformedResponse Kind = "malformed_response"
	KindNoOutput          Kind = "no_output_produced"
	KindNoAudio           Kind = "no_audio_produced"
	KindInternal          Kind = "internal"
)

// Error is returned by the resolver and the orchestrator
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing text for err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// StatusCode maps a Kind to the HTTP status returned to the caller
func StatusCode(kind Kind) int {
	if kind == KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
