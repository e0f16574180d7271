package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an operational failure
type ErrorType string

const (
	// ErrorTypeValidation represents bad argument errors (env/phase/region/format)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePrerequisite represents missing credentials or required tools
	ErrorTypePrerequisite ErrorType = "prerequisite"
	// ErrorTypeTopology represents ambiguous or unrecognized phase layouts
	ErrorTypeTopology ErrorType = "topology"
	// ErrorTypeBackend represents object-storage API failures
	ErrorTypeBackend ErrorType = "backend"
	// ErrorTypeEngine represents provisioning-engine subprocess failures
	ErrorTypeEngine ErrorType = "engine"
	// ErrorTypeVerification represents post-migration check failures
	ErrorTypeVerification ErrorType = "verification"
	// ErrorTypeTimeout represents engine or storage calls that exceeded their deadline
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConfirmationDeclined represents an operator declining a prompt.
	// Not a failure: callers map it to exit code 0.
	ErrorTypeConfirmationDeclined ErrorType = "confirmation_declined"
)

// Error is a structured error carrying the failure class, the affected
// phase (when applicable), and a remediation hint for the operator.
type Error struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Phase       string    `json:"phase,omitempty"`
	Remediation string    `json:"remediation,omitempty"`
	Cause       error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Phase != "" {
		msg = fmt.Sprintf("[%s] %s", e.Phase, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// Newf creates a new structured error with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *Error {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap creates a new structured error around a cause
func Wrap(err error, errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   err,
	}
}

// WithPhase attaches the affected phase name
func (e *Error) WithPhase(phase string) *Error {
	e.Phase = phase
	return e
}

// WithRemediation attaches the exact command the operator should run next
func (e *Error) WithRemediation(hint string) *Error {
	e.Remediation = hint
	return e
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...interface{}) *Error {
	return Newf(ErrorTypeValidation, format, args...)
}

// NewPrerequisiteError creates a prerequisite error
func NewPrerequisiteError(format string, args ...interface{}) *Error {
	return Newf(ErrorTypePrerequisite, format, args...)
}

// NewTopologyError creates a topology error
func NewTopologyError(format string, args ...interface{}) *Error {
	return Newf(ErrorTypeTopology, format, args...)
}

// NewBackendError creates a backend error around a storage API failure
func NewBackendError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeBackend, fmt.Sprintf(format, args...))
}

// NewEngineError creates an engine error carrying the captured subprocess output
func NewEngineError(err error, output string) *Error {
	e := Wrap(err, ErrorTypeEngine, "provisioning engine failed")
	if output != "" {
		e.Message = fmt.Sprintf("provisioning engine failed: %s", output)
	}
	return e
}

// NewVerificationError creates a post-migration verification error
func NewVerificationError(format string, args ...interface{}) *Error {
	return Newf(ErrorTypeVerification, format, args...)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(format string, args ...interface{}) *Error {
	return Newf(ErrorTypeTimeout, format, args...)
}

// NewConfirmationDeclined signals that the operator answered "no" to a prompt
func NewConfirmationDeclined(message string) *Error {
	return New(ErrorTypeConfirmationDeclined, message)
}

// TypeOf returns the ErrorType of err, or "" when err is not a structured error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType reports whether err is a structured error of the given type
func IsType(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}

// IsDeclined reports whether err represents a declined confirmation
func IsDeclined(err error) bool {
	return IsType(err, ErrorTypeConfirmationDeclined)
}
