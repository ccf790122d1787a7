// Package apperr defines the error kinds surfaced by repositories, jobs and
// services. Every operation returns at most one kind, wrapping the cause.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an error for callers and for HTTP status mapping.
type Kind string

const (
	Unauthorized         Kind = "unauthorized"
	NotFound             Kind = "not_found"
	Validation           Kind = "validation"
	StorageFailure       Kind = "storage_failure"
	TranscriptionFailed  Kind = "transcription_failed"
	SummarizationFailed  Kind = "summarization_failed"
	RemoteDeliveryFailed Kind = "remote_delivery_failed"
	Internal             Kind = "internal"
)

// Error implements the error interface so a bare Kind can be used as an
// errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is a kinded error carrying the failing operation and its cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against a bare Kind, so errors.Is(err, apperr.NotFound)
// works through any amount of wrapping.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates an error of the given kind with a message and no cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the outermost kind in the chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	case StorageFailure, TranscriptionFailed, SummarizationFailed, RemoteDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the single notice shown to the user for a failure.
func UserMessage(err error) string {
	switch KindOf(err) {
	case Unauthorized:
		return "Please log in to continue"
	case NotFound:
		return "The requested item could not be found"
	case Validation:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "Invalid request"
	case StorageFailure:
		return "Failed to store or load the file. Please try again."
	case TranscriptionFailed:
		return "Failed to create transcript"
	case SummarizationFailed:
		return "Failed to summarize transcript"
	case RemoteDeliveryFailed:
		return "Failed to send document"
	default:
		return "Something went wrong"
	}
}
