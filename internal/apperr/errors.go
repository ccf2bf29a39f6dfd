// Package apperr normalizes every failure the client can surface into one shape: a kind
// (validation, auth, transport) plus a user-facing message.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindTransport  Kind = "transport"
)

// DefaultMessage is shown when neither the caller nor the backend supplied one.
const DefaultMessage = "Something went wrong"

var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrAuth       = &Error{Kind: KindAuth, Message: "unauthorized"}
	ErrTransport  = &Error{Kind: KindTransport, Message: DefaultMessage}
)

type Error struct {
	Kind    Kind
	Message string
	// Status is the backend HTTP status, zero when the request never got a response.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return DefaultMessage
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind against the kind sentinels, so errors.Is(err, ErrAuth)
// works for every auth failure. Any other *Error target matches by identity only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	switch t {
	case ErrValidation, ErrAuth, ErrTransport:
		return t.Kind == e.Kind
	}
	return e == t
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func AuthWrap(message string, err error) *Error {
	return &Error{Kind: KindAuth, Message: message, Err: err}
}

func Transport(message string, err error) *Error {
	if message == "" {
		message = DefaultMessage
	}
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// FromStatus maps a non-2xx backend response onto the taxonomy.
func FromStatus(status int, message string) *Error {
	e := &Error{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	default:
		e.Kind = KindTransport
	}
	if e.Message == "" {
		e.Message = DefaultMessage
	}
	return e
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Message returns the user-facing text for err; anything outside the taxonomy gets the
// generic fallback so transport details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return DefaultMessage
}

// Normalize converts err into an *Error, wrapping foreign errors as transport failures.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Transport(DefaultMessage, err)
}

// HTTPStatus is the status the local shell answers with for err.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
