package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError marks a failure that may succeed when the same work is attempted again,
// e.g. a dropped database connection while handling an inbound frame.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps err with a formatted message and marks it retryable.
func NewRetryable(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(format, allArgs...)}
}

// FatalError marks a failure that will not go away on retry (bad input, missing thread).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps err with a formatted message and marks it fatal.
func NewFatal(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(format, allArgs...)}
}

// Sentinel errors. Storage wraps driver errors into these; transports map them to
// status codes or ack decisions with errors.Is.
var (
	// ErrNotFound: channel, thread or message is missing (or soft-deleted where that matters).
	ErrNotFound = errors.New("resource not found")
	// ErrValidation: a required field is missing or malformed. Raised before any write.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase is a generic persistence failure.
	ErrDatabase = errors.New("database error")
	// ErrNATS is a generic NATS failure.
	ErrNATS = errors.New("nats communication error")
	// ErrUnauthorized is returned by the auth collaborator.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict is a uniqueness violation the get-or-create re-query could not resolve.
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest is a constraint violation caused by caller input.
	ErrBadRequest = errors.New("bad request")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
	// ErrDependencyDegraded: a collaborator (file storage, holiday calendar, auth backend) is unavailable.
	ErrDependencyDegraded = errors.New("dependency degraded")
)

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsDependencyDegraded checks if the error is or wraps ErrDependencyDegraded.
func IsDependencyDegraded(err error) bool {
	return errors.Is(err, ErrDependencyDegraded)
}
