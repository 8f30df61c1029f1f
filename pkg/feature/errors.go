package feature

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against any error produced by the store.
var (
	// ErrValidation indicates malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unregistered feature or an unknown definition id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a feature name collision in the catalog.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable indicates a timeout, connection failure or pool
	// exhaustion against the cache engine or the catalog.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidEntry indicates a cache entry that cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// ErrorClass classifies an Error for callers and for HTTP status mapping.
type ErrorClass string

const (
	// ClassValidation represents malformed input.
	ClassValidation ErrorClass = "validation"

	// ClassNotFound represents a missing catalog entry.
	ClassNotFound ErrorClass = "not_found"

	// ClassAlreadyExists represents a catalog name collision.
	ClassAlreadyExists ErrorClass = "already_exists"

	// ClassStoreUnavailable represents a failing external dependency.
	ClassStoreUnavailable ErrorClass = "store_unavailable"
)

func (c ErrorClass) sentinel() error {
	switch c {
	case ClassValidation:
		return ErrValidation
	case ClassNotFound:
		return ErrNotFound
	case ClassAlreadyExists:
		return ErrAlreadyExists
	case ClassStoreUnavailable:
		return ErrStoreUnavailable
	default:
		return nil
	}
}

// Error is a classified error with the failing operation attached.
type Error struct {
	Class   ErrorClass
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Class)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's class.
func (e *Error) Is(target error) bool {
	s := e.Class.sentinel()
	return s != nil && target == s
}

// Validationf returns a ClassValidation error.
func Validationf(op, format string, args ...any) error {
	return &Error{Class: ClassValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a ClassNotFound error.
func NotFoundf(op, format string, args ...any) error {
	return &Error{Class: ClassNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExistsf returns a ClassAlreadyExists error.
func AlreadyExistsf(op, format string, args ...any) error {
	return &Error{Class: ClassAlreadyExists, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps err as a ClassStoreUnavailable error.
func Unavailable(op string, err error) error {
	return &Error{Class: ClassStoreUnavailable, Op: op, Message: "store unavailable", Err: err}
}

// UnregisteredFeatureError is returned by ingestion when a feature name has no
// definition in the catalog. It matches ErrNotFound.
type UnregisteredFeatureError struct {
	Name string
}

// Error implements the error interface.
func (e *UnregisteredFeatureError) Error() string {
	return fmt.Sprintf("Feature '%s' not registered", e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *UnregisteredFeatureError) Is(target error) bool {
	return target == ErrNotFound
}

// IsRetryable reports whether the caller may retry the failed operation.
// Only StoreUnavailable conditions are retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
