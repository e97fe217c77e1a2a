package apperr

import "errors"

// The envelope shape below is fixed for client compatibility: the outer
// extensions code is always the same constant, the real status code lives in
// extensions.exception.code.

const wireCode = "INTERNAL_SERVER_ERROR"

// genericInternalMessage replaces anything reaching the boundary without a
// recognized kind. The message deliberately says nothing about the cause.
const genericInternalMessage = "Unknown Error."

// WireError is a single entry in a response's error list.
type WireError struct {
	Message    string         `json:"message"`
	Extensions WireExtensions `json:"extensions"`
}

// WireExtensions carries the constant outer code plus the exception detail.
type WireExtensions struct {
	Code      string        `json:"code"`
	Exception WireException `json:"exception"`
}

// WireException is the client-visible error detail: numeric code, message,
// and stable kind name. Never anything else.
type WireException struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Name string `json:"name"`
}

// ToWire converts err into the client envelope entry. Diagnostic context and
// causes are dropped; errors without a recognized kind become a generic
// internal error so no raw message ever crosses the boundary.
func ToWire(err error) WireError {
	kind := Internal
	message := genericInternalMessage
	var appErr *Error
	if errors.As(err, &appErr) {
		kind = appErr.Kind
		message = appErr.Message
	}
	return WireError{
		Message: message,
		Extensions: WireExtensions{
			Code: wireCode,
			Exception: WireException{
				Code: kind.Code(),
				Msg:  message,
				Name: kind.String(),
			},
		},
	}
}
