package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrTenantMismatch
	ErrOutsideAvailability
	ErrSlotConflict
	ErrTimeout
	ErrConflict
	ErrConstraintViolation
)

// CodeOf returns the error code carried by err, or ErrInternal when err
// is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// TenantMismatch signals a cross-clinic reference, which is a caller bug.
func TenantMismatch(message string) *AppError {
	return &AppError{
		Code:    ErrTenantMismatch,
		Message: message,
	}
}

// OutsideAvailability is a business rejection, not a fault.
func OutsideAvailability(message string) *AppError {
	return &AppError{
		Code:    ErrOutsideAvailability,
		Message: message,
	}
}

// SlotConflict is returned to the loser of a booking race.
func SlotConflict(message string) *AppError {
	return &AppError{
		Code:    ErrSlotConflict,
		Message: message,
	}
}

func Timeout(err error) *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Message: "operation timed out",
		Err:     err,
	}
}

// Conflict signals an optimistic-concurrency mismatch during update.
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

// ConstraintViolation signals a store-level invariant breach, usually a
// race lost at commit time.
func ConstraintViolation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConstraintViolation,
		Message: message,
		Err:     err,
	}
}
