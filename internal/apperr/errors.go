// Package apperr defines the closed set of application error kinds and the
// uniform wire representation clients receive for every failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is an application-level failure category. The set is closed: every
// error surfaced to a client carries exactly one of these kinds.
type Kind int

const (
	BadRequest Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	UnavailableForLegalReasons
	Internal
	External
)

var kindCodes = map[Kind]int{
	BadRequest:                 400,
	Unauthorized:               401,
	Forbidden:                  403,
	NotFound:                   404,
	Conflict:                   409,
	UnavailableForLegalReasons: 451,
	Internal:                   500,
	External:                   502,
}

var kindNames = map[Kind]string{
	BadRequest:                 "BadRequest",
	Unauthorized:               "Unauthorized",
	Forbidden:                  "Forbidden",
	NotFound:                   "NotFound",
	Conflict:                   "Conflict",
	UnavailableForLegalReasons: "UnavailableForLegalReasons",
	Internal:                   "InternalError",
	External:                   "ExternalError",
}

// Code returns the HTTP-semantic status code for the kind.
func (k Kind) Code() int { return kindCodes[k] }

// String returns the stable wire-safe name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// Error is a typed application error. Context carries free-form diagnostic
// data for logs and reports; it is stripped before anything reaches a client.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	cause   error
}

// New constructs a typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a typed error retaining its underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithContext attaches diagnostic context and returns the same error.
func (e *Error) WithContext(ctx map[string]any) *Error {
	e.Context = ctx
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.Kind.Code(), e.Message, e.cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the kind from err. ok is false when err carries no
// recognized kind anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return Internal, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Unexpected reports whether err must be escalated to the error tracker:
// Internal and External kinds, plus anything without a recognized kind.
func Unexpected(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	return k == Internal || k == External
}
