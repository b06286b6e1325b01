package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for clients and logs.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Policy is how a code is presented over HTTP. Fallback is shown whenever the
// error's own message must stay server side.
type Policy struct {
	Status      int
	Retryable   bool
	Fallback    string
	ShowMessage bool
	ShowDetails bool
}

var policies = map[Code]Policy{
	CodeValidation:    {Status: http.StatusBadRequest, Fallback: "please check the highlighted fields", ShowMessage: true, ShowDetails: true},
	CodeUnauthorized:  {Status: http.StatusUnauthorized, Fallback: "please sign in to continue", ShowMessage: true},
	CodeForbidden:     {Status: http.StatusForbidden, Fallback: "this action is not available to your account", ShowMessage: true},
	CodeNotFound:      {Status: http.StatusNotFound, Fallback: "we could not find that", ShowMessage: true},
	CodeConflict:      {Status: http.StatusConflict, Fallback: "this already exists", ShowMessage: true},
	CodeStateConflict: {Status: http.StatusUnprocessableEntity, Fallback: "this order cannot move to that status", ShowMessage: true, ShowDetails: true},
	CodeIdempotency:   {Status: http.StatusConflict, Fallback: "this request was already submitted", ShowMessage: true, ShowDetails: true},
	CodeRateLimit:     {Status: http.StatusTooManyRequests, Fallback: "too many attempts, please wait a few minutes", ShowMessage: true},
	CodeInternal:      {Status: http.StatusInternalServerError, Retryable: true, Fallback: "something went wrong on our side"},
	CodeDependency:    {Status: http.StatusServiceUnavailable, Retryable: true, Fallback: "a partner service is unavailable, please try again shortly"},
}

// PolicyFor returns the presentation policy for code. Unknown codes are
// treated as internal errors.
func PolicyFor(code Code) Policy {
	if p, ok := policies[code]; ok {
		return p
	}
	return policies[CodeInternal]
}

// PublicMessage is what a client may see for e.
func (p Policy) PublicMessage(e *Error) string {
	if p.ShowMessage && e.Message() != "" {
		return e.Message()
	}
	return p.Fallback
}

// Error carries a code, a message safe for the code's policy, optional
// structured details and the underlying cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return As(err) != nil && CodeOf(err) == code
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
