// Package apperr defines the error kinds shared by the lookup, invoice and
// storage layers and understood by the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. A Kind is itself an error so that callers can
// write errors.Is(err, apperr.NotFound).
type Kind string

const (
	Validation        Kind = "validation"
	NotFound          Kind = "not_found"
	RemoteUnavailable Kind = "remote_unavailable"
	RemoteRejected    Kind = "remote_rejected"
	PersistenceFailed Kind = "persistence"
	// Unreconciled means SAP accepted a document that could not be
	// recorded locally.
	Unreconciled Kind = "unreconciled"
)

func (k Kind) Error() string {
	return string(k)
}

type Error struct {
	Kind    Kind
	Message string
	// Serial is the serial number that caused the error, if any.
	Serial string
	// Status is the HTTP status returned by the remote system, if any.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Serial != "" {
		return fmt.Sprintf("serial number %s: %s", e.Serial, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Retryable reports whether retrying the same call may succeed. Server side
// errors of the remote system count as transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case RemoteUnavailable:
		return true
	case RemoteRejected:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// WithSerial returns a copy of e that identifies the offending serial number.
func (e *Error) WithSerial(serial string) *Error {
	c := *e
	c.Serial = serial
	return &c
}

func New(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func Validationf(format string, a ...any) *Error {
	return New(Validation, format, a...)
}

func NotFoundf(format string, a ...any) *Error {
	return New(NotFound, format, a...)
}

// Unavailable wraps a transport level failure (connection refused, timeout).
func Unavailable(err error) *Error {
	return &Error{Kind: RemoteUnavailable, Message: "SAP is unreachable", Err: err}
}

// Rejected is a non-success answer from the remote system. msg is what the
// remote system said and is safe to show to users.
func Rejected(status int, msg string) *Error {
	return &Error{Kind: RemoteRejected, Status: status, Message: msg}
}

func Persistence(err error) *Error {
	return &Error{Kind: PersistenceFailed, Message: "local storage error", Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err. Errors that are not *Error are reported as
// persistence failures, since they're internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return PersistenceFailed
}

// Public returns the message that can be shown to an API client. Causes of
// transport and storage failures are not exposed.
func Public(err error) string {
	e, ok := As(err)
	if !ok {
		return "internal server error"
	}
	switch e.Kind {
	case RemoteUnavailable:
		msg := "SAP is unreachable, try again later"
		if e.Serial != "" {
			msg = fmt.Sprintf("serial number %s: %s", e.Serial, msg)
		}
		return msg
	case PersistenceFailed:
		return "local storage error"
	case Unreconciled:
		return "the invoice was created in SAP but could not be recorded locally, contact an administrator"
	}
	return e.Error()
}
