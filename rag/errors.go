package rag

import (
	"errors"
	"fmt"

	"github.com/teilomillet/ragd/rag/providers"
)

// ErrorKind classifies a pipeline failure. Every error that crosses a
// pipeline step boundary carries exactly one kind so callers can map it to
// a stable code and status class without inspecting message strings.
type ErrorKind int

const (
	// KindInternal is the catch-all for unexpected failures mid-pipeline.
	KindInternal ErrorKind = iota
	// KindValidation covers malformed, empty or oversized input.
	KindValidation
	// KindNotFound covers missing collections and unknown job ids.
	KindNotFound
	// KindExternalService covers embedding/completion provider failures.
	KindExternalService
	// KindDatabase covers vector-store failures.
	KindDatabase
	// KindFileProcessing covers unsupported file types, decode failures
	// and oversized uploads.
	KindFileProcessing
)

// FailureReason subdivides external-service errors so callers can produce
// distinct user-facing messages for authentication and rate-limit failures.
type FailureReason string

const (
	ReasonAuth      FailureReason = "auth"
	ReasonRateLimit FailureReason = "rate_limit"
	ReasonGeneric   FailureReason = "generic"
)

// Error is the typed error carried across pipeline boundaries.
type Error struct {
	Kind    ErrorKind
	Reason  FailureReason // set for KindExternalService only
	Service string        // originating service for external errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the stable machine-readable code for the error.
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindExternalService:
		return "external_service_error"
	case KindDatabase:
		return "database_error"
	case KindFileProcessing:
		return "file_processing_error"
	default:
		return "processing_error"
	}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ReasonOf returns the failure reason of an external-service error, or
// ReasonGeneric when err is not one.
func ReasonOf(err error) FailureReason {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindExternalService && e.Reason != "" {
		return e.Reason
	}
	return ReasonGeneric
}

// ValidationError reports malformed or out-of-bounds input.
func ValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing resource by type and identifier.
func NotFoundError(resource, identifier string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, identifier)}
}

// ExternalError wraps a provider failure with its service name and reason.
func ExternalError(service string, reason FailureReason, message string, err error) *Error {
	return &Error{
		Kind:    KindExternalService,
		Reason:  reason,
		Service: service,
		Message: fmt.Sprintf("%s service error: %s", service, message),
		Err:     err,
	}
}

// DatabaseError wraps a vector-store failure.
func DatabaseError(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: "database error: " + message, Err: err}
}

// FileError wraps a failure while reading or parsing an uploaded file.
func FileError(name string, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindFileProcessing {
		return e
	}
	return &Error{
		Kind:    KindFileProcessing,
		Message: fmt.Sprintf("failed to process file %s: %v", name, err),
		Err:     err,
	}
}

// ClassifyProviderError maps a raw provider failure to the external-service
// taxonomy using the response status, never message strings.
// Already-classified errors pass through unchanged.
func ClassifyProviderError(service string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case providers.IsAuth(err):
		return ExternalError(service, ReasonAuth, "authentication failed", err)
	case providers.IsRateLimit(err):
		return ExternalError(service, ReasonRateLimit, "rate limit exceeded", err)
	default:
		return ExternalError(service, ReasonGeneric, err.Error(), err)
	}
}

// InternalError wraps an unexpected failure. Classified errors pass through
// untouched so the original kind survives the outermost boundary.
func InternalError(message string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
