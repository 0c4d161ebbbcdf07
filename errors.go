// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed dispatch attempt.
//
// The set is closed: every failure produced by the client carries exactly one
// kind, chosen by the first matching rule of the dispatcher.
type ErrorKind int

const (
	// KindUnknown is the zero value and never produced by the dispatcher
	KindUnknown ErrorKind = iota

	// KindBadRequest maps HTTP 400
	KindBadRequest

	// KindNotFound maps HTTP 404; Error.Resource names the missing entity
	KindNotFound

	// KindUnauthorized maps HTTP 401
	KindUnauthorized

	// KindForbidden maps HTTP 403
	KindForbidden

	// KindConflict maps HTTP 409
	KindConflict

	// KindValidation maps HTTP 422
	KindValidation

	// KindOtherHTTPStatus covers any other non-success status; see Error.StatusCode
	KindOtherHTTPStatus

	// KindBodyDecodeFailed means a success response carried a body that is not JSON
	KindBodyDecodeFailed

	// KindConnectionFailed means the controller could not be reached
	KindConnectionFailed

	// KindTimedOut means the request timeout elapsed
	KindTimedOut

	// KindTransportError covers DNS, TLS and other transport-level failures
	KindTransportError

	// KindStreamStartFailed means a streaming request could not be opened
	KindStreamStartFailed

	// KindStreamDecodeFailed marks a notification line that is not JSON
	KindStreamDecodeFailed

	// KindStreamEndedEarly means the stream broke before it was closed
	KindStreamEndedEarly

	// KindEmptyResponse means a listing the caller depends on came back empty
	KindEmptyResponse

	// KindUnexpected captures anything else, including recovered panics
	KindUnexpected
)

var kindNames = map[ErrorKind]string{
	KindUnknown:            "Unknown Error",
	KindBadRequest:         "Bad Request Error",
	KindNotFound:           "Not Found Error",
	KindUnauthorized:       "Unauthorized Error",
	KindForbidden:          "Forbidden Error",
	KindConflict:           "Conflict Error",
	KindValidation:         "Validation Error",
	KindOtherHTTPStatus:    "Other HTTP Code Error",
	KindBodyDecodeFailed:   "JSON Decode Error",
	KindConnectionFailed:   "Connection Error",
	KindTimedOut:           "Timeout Error",
	KindTransportError:     "Request Error",
	KindStreamStartFailed:  "Start Error",
	KindStreamDecodeFailed: "Stream Decode Error",
	KindStreamEndedEarly:   "Encoding Error",
	KindEmptyResponse:      "Empty Data Error",
	KindUnexpected:         "Unexpected Error",
}

// String returns the human-readable name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// IsHTTP reports whether the kind was derived from a response status code
func (k ErrorKind) IsHTTP() bool {
	switch k {
	case KindBadRequest, KindNotFound, KindUnauthorized, KindForbidden,
		KindConflict, KindValidation, KindOtherHTTPStatus:
		return true
	}
	return false
}

// kindForStatus maps a non-success status code onto its ErrorKind
func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindOtherHTTPStatus
	}
}

// Error is the failure half of every dispatch outcome.
//
// All methods of Client that talk to the controller return either a result
// or an *Error, never both. Use AsError or errors.Is with the Err* sentinels
// to branch on the kind:
//
//	_, err := client.Get(ctx, gns3.Endpoints.User(id))
//	if errors.Is(err, gns3.ErrNotFound) {
//	    e, _ := gns3.AsError(err)
//	    fmt.Println("missing:", e.Resource)
//	}
type Error struct {
	// Kind classifies the failure
	Kind ErrorKind

	// Operation is "<METHOD> <endpoint>" of the failed request
	Operation string

	// StatusCode is the HTTP status, zero for non-HTTP failures
	StatusCode int

	// Message is the server-provided or derived human-readable message
	Message string

	// Resource is set only for KindNotFound
	Resource string

	// Body holds the raw response body of HTTP failures
	Body []byte

	// InternalMsg contains the underlying error text for debug logging
	InternalMsg string

	// Err is the wrapped cause, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := "gns3"
	if e.Operation != "" {
		prefix = "gns3: " + e.Operation
	}
	if e.Kind == KindOtherHTTPStatus {
		return fmt.Sprintf("%s: %s (%d): %s", prefix, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Kind, e.Message)
}

// DetailedError returns the full error message including internal details
//
// This should only be used for debug output; the internal message may
// include addresses and low-level transport errors.
func (e *Error) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s (internal: %s)", e.Error(), e.InternalMsg)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrNotFound) works
// for any not-found failure regardless of message or resource.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Operation == "" && t.Message == ""
}

// Sentinels for errors.Is comparisons
var (
	ErrBadRequest         = &Error{Kind: KindBadRequest}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrOtherHTTPStatus    = &Error{Kind: KindOtherHTTPStatus}
	ErrBodyDecodeFailed   = &Error{Kind: KindBodyDecodeFailed}
	ErrConnectionFailed   = &Error{Kind: KindConnectionFailed}
	ErrTimedOut           = &Error{Kind: KindTimedOut}
	ErrTransportError     = &Error{Kind: KindTransportError}
	ErrStreamStartFailed  = &Error{Kind: KindStreamStartFailed}
	ErrStreamDecodeFailed = &Error{Kind: KindStreamDecodeFailed}
	ErrStreamEndedEarly   = &Error{Kind: KindStreamEndedEarly}
	ErrEmptyResponse      = &Error{Kind: KindEmptyResponse}
	ErrUnexpected         = &Error{Kind: KindUnexpected}
)

// AsError extracts the *Error from err, following wrap chains
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// NewError builds an *Error for helpers layered on top of the dispatcher
// that need to report a failure from the same taxonomy (for example an empty
// listing during name resolution).
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
