// Package errors provides the error taxonomy shared by the transcoder:
// classified errors, the domain sentinels every component wraps, and the
// mapping from an error to the status reported to the client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may succeed on a later request
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors caused by the client's input
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop the process
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Domain errors. Components wrap these so callers can match with errors.Is.
var (
	// ErrUnsupportedFormat means no codec matches the requested content type.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedInput means a codec could not parse the request body.
	ErrMalformedInput = errors.New("malformed input")
	// ErrCanonicalization means a JSON-LD algorithm rejected the document.
	ErrCanonicalization = errors.New("canonicalization failed")
	// ErrRemoteFetch means a proxied resource could not be retrieved.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrRegistryConflict means a codec name was registered twice.
	ErrRegistryConflict = errors.New("codec name already registered")
	// ErrInvalidCodec means a codec failed the capability check.
	ErrInvalidCodec = errors.New("codec does not satisfy the codec contract")
	// ErrCodecNotFound means no codec is registered under a name or mimetype.
	ErrCodecNotFound = errors.New("codec not found")
	// ErrRegistryFrozen means registration was attempted after startup.
	ErrRegistryFrozen = errors.New("codec registry is frozen")
	// ErrInvalidConfig means the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsTransient checks if an error is transient
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}
	return errors.Is(err, ErrRemoteFetch) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// IsFatal checks if an error is fatal
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorFatal
	}
	return errors.Is(err, ErrInvalidConfig)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorInvalid
	}
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrCanonicalization)
}

// Classify returns the error class for an error. Unknown errors are
// treated as transient.
func Classify(err error) ErrorClass {
	switch {
	case IsFatal(err):
		return ErrorFatal
	case IsInvalid(err):
		return ErrorInvalid
	default:
		return ErrorTransient
	}
}

func newClassified(class ErrorClass, err error, component, operation string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   err.Error(),
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorTransient, Wrap(err, component, method, action), component, method)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorFatal, Wrap(err, component, method, action), component, method)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorInvalid, Wrap(err, component, method, action), component, method)
}

// Mark attaches a domain sentinel to err so errors.Is matches both. The
// message of err is kept unchanged.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return &marked{err: err, sentinel: sentinel}
}

type marked struct {
	err      error
	sentinel error
}

func (m *marked) Error() string   { return m.err.Error() }
func (m *marked) Unwrap() []error { return []error{m.err, m.sentinel} }

// HTTPStatus maps an error to the status code reported to the client.
// Unsupported formats map to 415; the rendering side overrides this with 406
// where it applies.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrMalformedInput), errors.Is(err, ErrCanonicalization):
		return http.StatusBadRequest
	case errors.Is(err, ErrRemoteFetch):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
