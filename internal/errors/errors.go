package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of the wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError anywhere in its chain
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether any AppError in the chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Is and As forward to the standard library so callers need one import
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidEvidence = "INVALID_EVIDENCE"
	CodeInsufficient    = "INSUFFICIENT_DATA"
	CodeFitConvergence  = "FIT_CONVERGENCE"
	CodeNoRootFound     = "NO_ROOT_FOUND"
	CodeDegenerateTrain = "DEGENERATE_TRAINING_SET"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// InvalidEvidence reports a non-positive, non-finite or missing likelihood ratio
func InvalidEvidence(message string) *AppError {
	return New(CodeInvalidEvidence, message)
}

// InsufficientData reports too few points for the requested statistical procedure
func InsufficientData(procedure string, have, need int) *AppError {
	return Newf(CodeInsufficient, "%s needs at least %d points, got %d", procedure, need, have)
}

// FitConvergence reports a nonlinear solver that did not converge within its budget.
// Callers are expected to fall back to a literature-derived parameter set.
func FitConvergence(iterations int, cause error) *AppError {
	return &AppError{
		Code:    CodeFitConvergence,
		Message: fmt.Sprintf("fit did not converge within %d iterations", iterations),
		Cause:   cause,
	}
}

// NoRootFound reports a root search that diverged or found no crossing
func NoRootFound(message string) *AppError {
	return New(CodeNoRootFound, message)
}

// DegenerateTrainingSet reports a classifier training set that collapses to a single point
func DegenerateTrainingSet(message string) *AppError {
	return New(CodeDegenerateTrain, message)
}
