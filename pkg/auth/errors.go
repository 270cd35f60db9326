// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"fmt"
	"net/http"
)

// Kind classifies why a single verification attempt was rejected.
type Kind int

const (
	// UnknownApp means the application identifier is not in the key directory.
	UnknownApp Kind = iota + 1
	// MissingSignature means the request carried no signature.
	MissingSignature
	// BadSignature means no candidate time bucket produced a matching signature.
	BadSignature
	// EncodingFailure means the body could not be canonicalized or signed.
	EncodingFailure
)

// String returns a stable name for the kind, suitable for logs.
func (k Kind) String() string {
	switch k {
	case UnknownApp:
		return "unknown_app"
	case MissingSignature:
		return "missing_signature"
	case BadSignature:
		return "bad_signature"
	case EncodingFailure:
		return "encoding_failure"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrUnknownApp       = &Error{Kind: UnknownApp, Message: "Unrecognised AppId"}
	ErrMissingSignature = &Error{Kind: MissingSignature, Message: "Missing signature"}
	ErrBadSignature     = &Error{Kind: BadSignature, Message: "Bad signature"}
	ErrEncodingFailure  = &Error{Kind: EncodingFailure, Message: "Unable to encode request"}
)

// Error is returned by the signer and verifier. It never carries key material.
type Error struct {
	Kind    Kind   // Kind drives the suggested response code.
	Message string // Message is safe to show to the caller.
	Err     error  // Err retains the underlying cause, if any.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.As checks.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so wrapped encoding failures still
// compare equal to ErrEncodingFailure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// SuggestedResponseCode gives the HTTP status a transport should answer with.
func (e *Error) SuggestedResponseCode() int {
	switch e.Kind {
	case UnknownApp:
		return http.StatusNotFound
	case MissingSignature:
		return http.StatusPaymentRequired
	case BadSignature:
		return http.StatusForbidden
	case EncodingFailure:
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}

func encodingError(err error) *Error {
	return &Error{Kind: EncodingFailure, Message: ErrEncodingFailure.Message, Err: err}
}
