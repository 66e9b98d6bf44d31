package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed taxonomy every raised error is classified into.
type ErrorKind int

const (
	// KindUnknown is an unclassified backend error. It carries the raw
	// payload and is never retried automatically.
	KindUnknown ErrorKind = iota
	// KindConfiguration is a malformed backend definition, fatal at init.
	KindConfiguration
	// KindPrecondition is a locally-detected failure (missing credential or
	// required argument) raised before any network I/O.
	KindPrecondition
	// KindAuthentication is a rejected signature or credential.
	KindAuthentication
	// KindInvalidNonce is a nonce the backend refused as stale or reused.
	KindInvalidNonce
	// KindInvalidOrder is an order the backend's validation rejected.
	KindInvalidOrder
	// KindOrderNotFound is fatal for that order id, not for the session.
	KindOrderNotFound
	// KindInsufficientFunds is fatal for that call.
	KindInsufficientFunds
	// KindRateLimit is a backend-reported rate limit breach, retryable.
	KindRateLimit
	// KindServiceUnavailable is a transient availability failure, retryable.
	KindServiceUnavailable
	// KindTransport is a network-level failure (timeout, reset, DNS),
	// retryable with backoff.
	KindTransport
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return [...]string{
		"UNKNOWN",
		"CONFIGURATION",
		"PRECONDITION",
		"AUTHENTICATION",
		"INVALID_NONCE",
		"INVALID_ORDER",
		"ORDER_NOT_FOUND",
		"INSUFFICIENT_FUNDS",
		"RATE_LIMIT",
		"SERVICE_UNAVAILABLE",
		"TRANSPORT",
	}[k]
}

// Retryable reports whether a caller-level retry with backoff may succeed.
// Retrying is always the caller's decision; nothing in this module retries
// backend-reported errors on its own.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimit || k == KindServiceUnavailable || k == KindTransport
}

// ParseErrorKind maps a kind name as used in exception tables back to its
// ErrorKind. Unrecognized names map to KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	for k := KindUnknown; k <= KindTransport; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindUnknown
}

// BackendError is the structured error every failed operation surfaces. It
// always names the backend and the operation attempted and carries the raw
// payload for diagnosis.
type BackendError struct {
	Kind       ErrorKind `json:"kind"`
	Backend    string    `json:"backend"`
	Operation  string    `json:"operation,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	// Code is the backend-reported error code, when one was extractable.
	Code string `json:"code,omitempty"`
	// Message is the backend-reported or locally-produced description.
	Message string `json:"message"`
	// Raw is the unmodified response payload, nil for local errors.
	Raw       []byte    `json:"raw,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s %s (%d/%s): %s",
			e.Backend, e.Operation, e.Kind, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s %s (%d): %s",
		e.Backend, e.Operation, e.Kind, e.StatusCode, e.Message)
}

// Retryable reports whether the error's kind is retryable.
func (e *BackendError) Retryable() bool {
	return e.Kind.Retryable()
}

// NewBackendError creates a BackendError with the current timestamp.
func NewBackendError(backend string, kind ErrorKind, message string) *BackendError {
	return &BackendError{
		Kind:      kind,
		Backend:   backend,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewPreconditionError reports a locally-detected failure that must never
// reach the network.
func NewPreconditionError(backend, operation, message string) *BackendError {
	e := NewBackendError(backend, KindPrecondition, message)
	e.Operation = operation
	return e
}

// NewConfigurationError reports a malformed backend definition.
func NewConfigurationError(backend, message string) *BackendError {
	return NewBackendError(backend, KindConfiguration, message)
}

// IsKind reports whether err is a BackendError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// IsRetryable reports whether err is a BackendError whose kind permits a
// caller-level retry.
func IsRetryable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return false
}

// IsAuthentication reports a rejected signature or credential.
func IsAuthentication(err error) bool { return IsKind(err, KindAuthentication) }

// IsOrderNotFound reports an unknown order id.
func IsOrderNotFound(err error) bool { return IsKind(err, KindOrderNotFound) }

// IsInsufficientFunds reports a balance shortfall.
func IsInsufficientFunds(err error) bool { return IsKind(err, KindInsufficientFunds) }

// IsPrecondition reports a locally-detected failure.
func IsPrecondition(err error) bool { return IsKind(err, KindPrecondition) }

// IsTransport reports a network-level failure.
func IsTransport(err error) bool { return IsKind(err, KindTransport) }
