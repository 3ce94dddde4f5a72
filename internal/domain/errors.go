// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation       ErrorType = iota // Input validation errors (400 Bad Request)
	ErrorTypeNotFound                          // Resource not found errors (404 Not Found)
	ErrorTypeConflict                          // Resource conflict errors (409 Conflict)
	ErrorTypeInternal                          // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                       // Service unavailable errors (503 Service Unavailable)
	ErrorTypePermissionDenied                  // Caller lacks the required role (403 Forbidden)
)

// Sentinel errors shared by the storage and service layers.
var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrInternal            = errors.New("internal error")
	ErrRevisionMismatch    = errors.New("revision mismatch")
	ErrUnmarshal           = errors.New("unmarshal error")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrValidationFailed    = errors.New("validation failed")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyResolved     = errors.New("task approval already resolved")
	ErrNotAwaitingApproval = errors.New("task is not awaiting approval")
	ErrInvalidTransition   = errors.New("invalid meeting status transition")
	ErrUnknownCallable     = errors.New("unknown callable")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAgendaItemNotFound  = errors.New("agenda item not found")
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

var sentinelTypes = []struct {
	err error
	typ ErrorType
}{
	{ErrMeetingNotFound, ErrorTypeNotFound},
	{ErrTaskNotFound, ErrorTypeNotFound},
	{ErrParticipantNotFound, ErrorTypeNotFound},
	{ErrAgendaItemNotFound, ErrorTypeNotFound},
	{ErrUnknownCallable, ErrorTypeNotFound},
	{ErrRevisionMismatch, ErrorTypeConflict},
	{ErrAlreadyResolved, ErrorTypeConflict},
	{ErrNotAwaitingApproval, ErrorTypeConflict},
	{ErrInvalidTransition, ErrorTypeValidation},
	{ErrValidationFailed, ErrorTypeValidation},
	{ErrPermissionDenied, ErrorTypePermissionDenied},
	{ErrServiceUnavailable, ErrorTypeUnavailable},
}

// GetErrorType returns the semantic type of an error. A DomainError carries
// its own type; bare sentinels are classified by identity.
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	for _, st := range sentinelTypes {
		if errors.Is(err, st.err) {
			return st.typ
		}
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewPermissionDeniedError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypePermissionDenied, Message: message, Err: errors.Join(err...)}
}
